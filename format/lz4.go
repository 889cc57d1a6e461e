package format

import (
	"encoding/binary"
	"sync"

	pack "github.com/andybalholm/zpack"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

const lz4Version = 1

// LZ4 level range. Level 1 uses the fast hash table, higher levels search
// hash chains.
const (
	LZ4MinLevel     = 1
	LZ4MaxLevel     = 12
	LZ4DefaultLevel = 1
)

// lz4MaxDistance is the largest offset an LZ4 block can encode.
const lz4MaxDistance = 65535

// LZ4 is the LZ4 block format, without frame headers. Matches come from
// the pack match finders; decoding uses pierrec/lz4.
type LZ4 struct {
	level   int
	finders sync.Pool
}

// NewLZ4 returns the lz4 format at level; 0 selects LZ4DefaultLevel.
func NewLZ4(level int) *LZ4 {
	if level == 0 {
		level = LZ4DefaultLevel
	}
	level = min(max(level, LZ4MinLevel), LZ4MaxLevel)
	l := &LZ4{level: level}
	l.finders.New = func() interface{} { return newLZ4Finder(level) }
	return l
}

func newLZ4Finder(level int) pack.MatchFinder {
	switch {
	case level == 1:
		return &pack.FastHash{MaxDistance: lz4MaxDistance}
	case level <= 3:
		return &pack.DualHash{MaxDistance: lz4MaxDistance, Parser: &pack.GreedyParser{}}
	default:
		return &pack.HashChain{MaxDistance: lz4MaxDistance, SearchLen: 1 << (level - 3), Parser: &pack.LazyParser{}}
	}
}

func (l *LZ4) Name() string { return "lz4" }

func (l *LZ4) Version() int { return lz4Version }

func (l *LZ4) KeySuffix() string { return keySuffix(l.Name(), l.level, lz4Version) }

func (l *LZ4) CompressedBufferSize(n int) int { return lz4.CompressBlockBound(n) }

func (l *LZ4) Compress(dst, src []byte) (int, error) {
	limit := min(len(dst), l.CompressedBufferSize(len(src)))
	mf := l.finders.Get().(pack.MatchFinder)
	mf.Reset()
	matches := mf.FindMatches(nil, src)
	l.finders.Put(mf)

	out := appendLZ4Block(dst[:0:limit], src, matches)
	if len(out) > limit {
		return 0, errors.Wrapf(ErrBufferTooSmall, "lz4: %d bytes compressed, room for %d", len(out), limit)
	}
	return len(out), nil
}

func (l *LZ4) Uncompress(dst, src []byte) (int, error) {
	if len(src) == 1 && src[0] == 0 {
		// The block for empty input.
		return 0, nil
	}
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		// A block that overruns dst looks the same as a corrupt one.
		return 0, errors.Wrapf(ErrCorrupt, "lz4: %v", err)
	}
	return n, nil
}

// appendLZ4Block appends src to dst as an LZ4 block, using matches.
func appendLZ4Block(dst, src []byte, matches []pack.Match) []byte {
	// The block must end with at least 5 literals, and the last match
	// must start at least 12 bytes before the end. A match that runs too
	// close to the end is shortened; it is dropped only if that would
	// leave it under the 4-byte minimum.
	trailing := 0
	for len(matches) > 0 {
		last := &matches[len(matches)-1]
		if last.Length > 0 && trailing+last.Length >= 12 {
			cut := max(5-trailing, 0)
			if last.Length-cut >= 4 {
				last.Length -= cut
				trailing += cut
				break
			}
		}
		matches = matches[:len(matches)-1]
		trailing += last.Unmatched + last.Length
	}

	pos := 0
	for _, m := range matches {
		dst = append(dst, lz4Token(m.Unmatched, m.Length-4))
		if m.Unmatched >= 15 {
			dst = appendLZ4Length(dst, m.Unmatched-15)
		}
		dst = append(dst, src[pos:pos+m.Unmatched]...)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(m.Distance))
		if m.Length-4 >= 15 {
			dst = appendLZ4Length(dst, m.Length-19)
		}
		pos += m.Unmatched + m.Length
	}

	dst = append(dst, lz4Token(trailing, 0))
	if trailing >= 15 {
		dst = appendLZ4Length(dst, trailing-15)
	}
	return append(dst, src[pos:]...)
}

func lz4Token(literals, matchLen int) byte {
	return byte(min(literals, 15)<<4 | min(matchLen, 15))
}

// appendLZ4Length appends the continuation bytes of a length that didn't
// fit in a token nibble.
func appendLZ4Length(dst []byte, n int) []byte {
	for n >= 255 {
		dst = append(dst, 255)
		n -= 255
	}
	return append(dst, byte(n))
}
