package zstd

import (
	"bytes"
	"encoding/binary"
	"sort"

	pack "github.com/andybalholm/zpack"
	"github.com/pierrec/xxHash/xxHash64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DictOptions configures BuildDict.
type DictOptions struct {
	// MaxSize is the largest dictionary BuildDict returns, tables included.
	MaxSize int
	// ID is written into the dictionary. 0 derives one from the content.
	ID uint32
	// SegmentSize caps the length of one content segment.
	SegmentSize int
	// Logger receives progress output; nil means silent.
	Logger logrus.FieldLogger
}

// DefaultDictOptions returns options for a 110 KiB dictionary.
func DefaultDictOptions() *DictOptions {
	return &DictOptions{
		MaxSize:     112640,
		SegmentSize: 1024,
	}
}

func (o DictOptions) withDefaults() DictOptions {
	def := DefaultDictOptions()
	if o.MaxSize <= 0 {
		o.MaxSize = def.MaxSize
	}
	if o.SegmentSize <= 0 {
		o.SegmentSize = def.SegmentSize
	}
	if o.Logger == nil {
		o.Logger = silentLogger()
	}
	return o
}

const (
	// dictKmer is the length of the byte strings counted across samples.
	dictKmer = 8
	// dictTablesReserve is room left in MaxSize for everything but content.
	dictTablesReserve = 1024
	// Dictionary IDs derived from content stay out of the reserved ranges.
	dictIDMin   = 32768
	dictIDRange = 1<<31 - dictIDMin
)

// BuildDict trains a formatted dictionary on samples. The content is made
// of the byte strings that recur across the most samples, with the most
// useful last (closest to the data, so cheapest to reference). Literal and
// sequence statistics come from compressing the samples against that
// content.
func BuildDict(samples [][]byte, opts *DictOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultDictOptions()
	}
	o := opts.withDefaults()
	log := o.Logger.WithField("component", "zstd-dictbuilder")
	if len(samples) == 0 {
		return nil, errors.Wrap(ErrTrainingFailed, "no samples")
	}
	budget := o.MaxSize - dictTablesReserve
	if budget < dictKmer {
		return nil, errors.Wrapf(ErrTrainingFailed, "maximum size %d is too small", o.MaxSize)
	}

	content := selectContent(samples, budget, o.SegmentSize)
	if len(content) < dictKmer {
		return nil, errors.Wrap(ErrTrainingFailed, "samples have no content in common")
	}
	log.WithField("content", len(content)).Debug("selected dictionary content")

	var st dictStats
	st.gather(samples, content)

	id := o.ID
	if id == 0 {
		id = uint32(xxHash64.Checksum(content, 0)%dictIDRange) + dictIDMin
	}

	out := make([]byte, 8, len(content)+dictTablesReserve)
	binary.LittleEndian.PutUint32(out, dictMagic)
	binary.LittleEndian.PutUint32(out[4:], id)

	out, err := st.appendTables(out, len(content))
	if err != nil {
		return nil, err
	}
	for _, r := range defaultReps {
		out = binary.LittleEndian.AppendUint32(out, uint32(r))
	}
	if extra := len(out) + len(content) - o.MaxSize; extra > 0 {
		content = content[extra:]
	}
	out = append(out, content...)

	if _, err := LoadDict(out); err != nil {
		return nil, errors.Wrap(ErrTrainingFailed, err.Error())
	}
	log.WithFields(logrus.Fields{"id": id, "size": len(out)}).Info("built dictionary")
	return out, nil
}

type dictSegment struct {
	data  []byte
	score int
}

// selectContent picks segments made of k-mers that occur in at least two
// samples, best first, until budget bytes are taken. It returns them in
// reverse order.
func selectContent(samples [][]byte, budget, segmentSize int) []byte {
	type kmerStat struct {
		docs int32
		last int32
	}
	freq := make(map[uint64]kmerStat)
	for si, s := range samples {
		for i := 0; i+dictKmer <= len(s); i++ {
			k := binary.LittleEndian.Uint64(s[i:])
			st := freq[k]
			if st.docs == 0 || st.last != int32(si) {
				st.docs++
				st.last = int32(si)
				freq[k] = st
			}
		}
	}

	best := make(map[string]int)
	for _, s := range samples {
		start, score := -1, 0
		emit := func(end int) {
			if start >= 0 {
				seg := string(s[start : end+dictKmer-1])
				if score > best[seg] {
					best[seg] = score
				}
			}
			start, score = -1, 0
		}
		for i := 0; i+dictKmer <= len(s); i++ {
			docs := int(freq[binary.LittleEndian.Uint64(s[i:])].docs)
			if docs < 2 {
				emit(i)
				continue
			}
			if start < 0 {
				start = i
			}
			score += docs
			if i+dictKmer-start >= segmentSize {
				emit(i + 1)
			}
		}
		emit(len(s) - dictKmer + 1)
	}

	segs := make([]dictSegment, 0, len(best))
	for data, score := range best {
		segs = append(segs, dictSegment{data: []byte(data), score: score})
	}
	sort.Slice(segs, func(i, j int) bool {
		if segs[i].score != segs[j].score {
			return segs[i].score > segs[j].score
		}
		return bytes.Compare(segs[i].data, segs[j].data) < 0
	})

	var taken []byte
	var picked []dictSegment
	for _, seg := range segs {
		if len(taken) >= budget {
			break
		}
		if bytes.Contains(taken, seg.data) {
			continue
		}
		if room := budget - len(taken); len(seg.data) > room {
			seg.data = seg.data[:room]
		}
		taken = append(taken, seg.data...)
		picked = append(picked, seg)
	}

	content := make([]byte, 0, len(taken))
	for i := len(picked) - 1; i >= 0; i-- {
		content = append(content, picked[i].data...)
	}
	return content
}

// dictStats holds the symbol counts of the samples compressed against the
// dictionary content.
type dictStats struct {
	literals [256]uint32
	codes    [3][256]uint32 // by tableIndex
}

func (st *dictStats) gather(samples [][]byte, content []byte) {
	window := MaxWindowSize
	finder := &pack.HashChain{
		SearchLen:   16,
		MaxDistance: window,
		Parser:      &pack.LazyParser{},
	}
	var b blockEnc
	var matches []pack.Match
	for _, s := range samples {
		finder.Prime(content)
		b.init(defaultReps, window)
		for pos := 0; pos < len(s); pos += maxCompressedBlockSize {
			block := s[pos:min(pos+maxCompressedBlockSize, len(s))]
			matches = finder.FindMatches(matches[:0], block)
			b.buildSequences(block, matches, len(content)+pos)
			for _, c := range b.literals {
				st.literals[c]++
			}
			for _, q := range b.sequences {
				st.codes[tableLiteralLengths][q.llCode]++
				st.codes[tableMatchLengths][q.mlCode]++
				st.codes[tableOffsets][q.ofCode]++
			}
		}
	}
}

// appendTables writes the literals table and the OF, ML and LL
// distributions. Every symbol the samples might need gets a nonzero
// probability.
func (st *dictStats) appendTables(dst []byte, contentSize int) ([]byte, error) {
	var h huffEncoder
	for i, c := range st.literals {
		h.count[i] = c + 1
	}
	written := false
	for maxBits := uint8(huffMaxTableLog); maxBits >= 9 && !written; maxBits-- {
		if !h.buildCode(maxBits) {
			break
		}
		dst, written = h.appendTable(dst)
	}
	if !written {
		return nil, errors.Wrap(ErrTrainingFailed, "literal statistics can't be described")
	}

	maxOf := int(highBit(uint32(contentSize + maxCompressedBlockSize)))
	for _, t := range [3]tableIndex{tableOffsets, tableMatchLengths, tableLiteralLengths} {
		var enc fseEncoder
		maxSym := [3]int{maxLiteralLengthSymbol, min(maxOf, maxOffsetLengthSymbol), maxMatchLengthSymbol}[t]
		total := 0
		for s := 0; s < 256; s++ {
			c := st.codes[t][s]
			if s <= maxSym {
				c++
			}
			if c > 0 {
				maxSym = max(maxSym, s)
			}
			enc.count[s] = c
			total += int(c)
		}
		enc.symbolLen = uint16(maxSym + 1)
		enc.actualTableLog = [3]uint8{maxLiteralLengthLog, maxOffsetLog, maxMatchLengthLog}[t]
		enc.normalizeCount(total)
		var err error
		if dst, err = enc.writeCount(dst); err != nil {
			return nil, errors.Wrapf(ErrTrainingFailed, "%v table: %v", t, err)
		}
	}
	return dst, nil
}
