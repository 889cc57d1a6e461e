package format

import (
	"sync"

	pack "github.com/andybalholm/zpack"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

const snappyVersion = 1

// Snappy is the snappy block format. It has a single level.
type Snappy struct {
	finders sync.Pool
}

func NewSnappy() *Snappy {
	s := new(Snappy)
	s.finders.New = func() interface{} { return &pack.FastHash{TableBits: 14} }
	return s
}

func (s *Snappy) Name() string { return "snappy" }

func (s *Snappy) Version() int { return snappyVersion }

func (s *Snappy) KeySuffix() string { return keySuffix(s.Name(), 0, snappyVersion) }

func (s *Snappy) CompressedBufferSize(n int) int { return snappy.MaxEncodedLen(n) }

func (s *Snappy) Compress(dst, src []byte) (int, error) {
	limit := s.CompressedBufferSize(len(src))
	if limit < 0 {
		return 0, errors.Errorf("snappy: %d bytes is too large to compress", len(src))
	}
	limit = min(len(dst), limit)
	mf := s.finders.Get().(*pack.FastHash)
	mf.Reset()
	matches := mf.FindMatches(nil, src)
	s.finders.Put(mf)

	out := appendSnappyBlock(dst[:0:limit], src, matches)
	if len(out) > limit {
		return 0, errors.Wrapf(ErrBufferTooSmall, "snappy: %d bytes compressed, room for %d", len(out), limit)
	}
	return len(out), nil
}

func (s *Snappy) Uncompress(dst, src []byte) (int, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "snappy: %v", err)
	}
	if n > len(dst) {
		return 0, errors.Wrapf(ErrBufferTooSmall, "snappy: content size %d, room for %d", n, len(dst))
	}
	out, err := snappy.Decode(dst, src)
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "snappy: %v", err)
	}
	return len(out), nil
}

const (
	snappyTagLiteral = 0x00
	snappyTagCopy1   = 0x01
	snappyTagCopy2   = 0x02
)

// appendSnappyBlock appends src to dst as a snappy block: the content
// length as a uvarint, then literal and copy elements.
func appendSnappyBlock(dst, src []byte, matches []pack.Match) []byte {
	dst = appendUvarint(dst, uint64(len(src)))
	pos := 0
	for _, m := range matches {
		if m.Unmatched > 0 {
			dst = appendSnappyLiteral(dst, src[pos:pos+m.Unmatched])
			pos += m.Unmatched
		}
		if m.Length > 0 {
			dst = appendSnappyCopy(dst, m.Length, m.Distance)
			pos += m.Length
		}
	}
	if pos < len(src) {
		dst = appendSnappyLiteral(dst, src[pos:])
	}
	return dst
}

func appendSnappyLiteral(dst, lit []byte) []byte {
	n := len(lit) - 1
	switch {
	case n < 60:
		dst = append(dst, byte(n)<<2|snappyTagLiteral)
	case n < 1<<8:
		dst = append(dst, 60<<2|snappyTagLiteral, byte(n))
	case n < 1<<16:
		dst = append(dst, 61<<2|snappyTagLiteral, byte(n), byte(n>>8))
	case n < 1<<24:
		dst = append(dst, 62<<2|snappyTagLiteral, byte(n), byte(n>>8), byte(n>>16))
	default:
		dst = append(dst, 63<<2|snappyTagLiteral, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return append(dst, lit...)
}

// appendSnappyCopy splits a match into copy elements of at most 64 bytes.
// A tail of 65 to 67 bytes is split 60 + rest, so that the rest can still
// use the 2-byte form.
func appendSnappyCopy(dst []byte, length, offset int) []byte {
	for length >= 68 {
		dst = append(dst, 63<<2|snappyTagCopy2, byte(offset), byte(offset>>8))
		length -= 64
	}
	if length > 64 {
		dst = append(dst, 59<<2|snappyTagCopy2, byte(offset), byte(offset>>8))
		length -= 60
	}
	if length >= 12 || offset >= 2048 {
		return append(dst, byte(length-1)<<2|snappyTagCopy2, byte(offset), byte(offset>>8))
	}
	return append(dst, byte(offset>>8)<<5|byte(length-4)<<2|snappyTagCopy1, byte(offset))
}

func appendUvarint(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}
	return append(dst, byte(x))
}
