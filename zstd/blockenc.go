// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"math"

	pack "github.com/andybalholm/zpack"
	"github.com/pkg/errors"
)

// Repeat offsets a frame starts with.
var defaultReps = [3]int{1, 4, 8}

// invalidReps never match a real distance. Parallel jobs other than the
// first start with them, so no block depends on another job's offsets.
var invalidReps = [3]int{0, 0, 0}

var errIncompressible = errors.New("incompressible block")

// blockEnc turns blocks and their matches into zstd blocks. It keeps the
// repeat offsets across the blocks of a frame.
type blockEnc struct {
	reps      [3]int
	savedReps [3]int
	window    int

	literals  []byte
	sequences []seq
	codes     [3][]uint8

	lit        huffEncoder
	coders     [3]fseEncoder
	active     [3]*fseEncoder
	litScratch []byte
	content    []byte
	hdrScratch []byte
	bw         bitWriter
}

// init prepares b for a new frame or job.
func (b *blockEnc) init(reps [3]int, window int) {
	initPredefined()
	b.reps = reps
	b.window = window
}

// appendBlock encodes src as one block and appends it to dst. history is
// the number of bytes before src a match may reach into.
func (b *blockEnc) appendBlock(dst, src []byte, matches []pack.Match, last bool, history int) []byte {
	if len(src) == 0 {
		return appendBlockHeader(dst, last, blockTypeRaw, 0)
	}
	if len(src) > 2 && allSame(src) {
		dst = appendBlockHeader(dst, last, blockTypeRLE, len(src))
		return append(dst, src[0])
	}

	b.savedReps = b.reps
	b.buildSequences(src, matches, history)
	content, err := b.encodeContent(b.content[:0])
	b.content = content
	if err != nil || len(content) >= len(src) {
		// The decoder won't see these sequences.
		b.reps = b.savedReps
		dst = appendBlockHeader(dst, last, blockTypeRaw, len(src))
		return append(dst, src...)
	}
	dst = appendBlockHeader(dst, last, blockTypeCompressed, len(content))
	return append(dst, content...)
}

// buildSequences converts matches into literals and sequences. Matches
// that the format can't express are turned into literals; overlong ones
// are split.
func (b *blockEnc) buildSequences(src []byte, matches []pack.Match, history int) {
	b.literals = b.literals[:0]
	b.sequences = b.sequences[:0]
	pos := 0
	litLen := 0
	for _, m := range matches {
		if m.Unmatched > 0 {
			end := min(pos+m.Unmatched, len(src))
			b.literals = append(b.literals, src[pos:end]...)
			litLen += end - pos
			pos = end
		}
		length := min(m.Length, len(src)-pos)
		if length <= 0 {
			continue
		}
		if length < zstdMinMatch || m.Distance <= 0 || m.Distance > b.window || m.Distance > history+pos {
			b.literals = append(b.literals, src[pos:pos+length]...)
			litLen += length
			pos += length
			continue
		}
		for length > 0 {
			n := length
			if n > maxMatchLen {
				// Leave at least a minimum match for the next piece.
				n = maxMatchLen - zstdMinMatch
			}
			b.addSequence(litLen, n, m.Distance)
			litLen = 0
			length -= n
			pos += n
		}
	}
	if pos < len(src) {
		b.literals = append(b.literals, src[pos:]...)
	}
}

// addSequence appends a sequence, using a repeat code for dist if it can.
func (b *blockEnc) addSequence(litLen, matchLen, dist int) {
	r := &b.reps
	var offset uint32
	if litLen > 0 {
		switch dist {
		case r[0]:
			offset = 1
		case r[1]:
			r[0], r[1] = r[1], r[0]
			offset = 2
		case r[2]:
			r[0], r[1], r[2] = r[2], r[0], r[1]
			offset = 3
		}
	} else {
		switch dist {
		case r[1]:
			r[0], r[1] = r[1], r[0]
			offset = 1
		case r[2]:
			r[0], r[1], r[2] = r[2], r[0], r[1]
			offset = 2
		case r[0] - 1:
			r[0], r[1], r[2] = dist, r[0], r[1]
			offset = 3
		}
	}
	if offset == 0 {
		r[0], r[1], r[2] = dist, r[0], r[1]
		offset = uint32(dist) + 3
	}
	s := seq{
		litLen:   uint32(litLen),
		matchLen: uint32(matchLen - zstdMinMatch),
		offset:   offset,
	}
	s.llCode = llCode(s.litLen)
	s.mlCode = mlCode(s.matchLen)
	s.ofCode = ofCode(s.offset)
	b.sequences = append(b.sequences, s)
}

// encodeContent writes the literals and sequences sections.
func (b *blockEnc) encodeContent(dst []byte) ([]byte, error) {
	dst = b.appendLiterals(dst, b.literals)

	n := len(b.sequences)
	switch {
	case n < 128:
		dst = append(dst, byte(n))
	case n < 0x7f00:
		dst = append(dst, byte(n>>8)+128, byte(n))
	default:
		dst = append(dst, 255, byte(n-0x7f00), byte((n-0x7f00)>>8))
	}
	if n == 0 {
		return dst, nil
	}

	for t := range b.codes {
		b.codes[t] = b.codes[t][:0]
	}
	for _, s := range b.sequences {
		b.codes[tableLiteralLengths] = append(b.codes[tableLiteralLengths], s.llCode)
		b.codes[tableOffsets] = append(b.codes[tableOffsets], s.ofCode)
		b.codes[tableMatchLengths] = append(b.codes[tableMatchLengths], s.mlCode)
	}

	modePos := len(dst)
	dst = append(dst, 0)
	var modes byte
	for i, t := range [3]tableIndex{tableLiteralLengths, tableOffsets, tableMatchLengths} {
		enc, mode, err := b.chooseTable(t)
		if err != nil {
			return dst, err
		}
		b.active[t] = enc
		modes |= byte(mode) << (6 - 2*uint(i))
		if dst, err = enc.writeCount(dst); err != nil {
			return dst, err
		}
	}
	dst[modePos] = modes
	return b.appendSequenceBits(dst), nil
}

// chooseTable picks the cheapest way to code table t: RLE, the predefined
// distribution, or a distribution written into the block.
func (b *blockEnc) chooseTable(t tableIndex) (*fseEncoder, seqCompMode, error) {
	codes := b.codes[t]
	enc := &b.coders[t]
	enc.histogram(codes)
	if enc.maxCount == len(codes) {
		enc.setRLE(codes[0])
		return enc, compModeRLE, nil
	}

	counts := enc.count[:enc.symbolLen]
	predef := &fsePredefEnc[t]
	predefCost := predef.bitCost(counts)

	maxLog := [3]uint8{maxLiteralLengthLog, maxOffsetLog, maxMatchLengthLog}[t]
	enc.optimalTableLog(len(codes), maxLog)
	enc.normalizeCount(len(codes))
	customCost := math.Inf(1)
	if err := enc.buildCTable(); err == nil {
		hdr, err := enc.writeCount(b.hdrScratch[:0])
		if err == nil {
			b.hdrScratch = hdr
			customCost = enc.bitCost(counts) + 8*float64(len(hdr))
		}
	}
	switch {
	case predefCost <= customCost && !math.IsInf(predefCost, 1):
		return predef, compModePredefined, nil
	case !math.IsInf(customCost, 1):
		return enc, compModeFSE, nil
	}
	return nil, 0, errIncompressible
}

// appendSequenceBits writes the interleaved sequence bitstream. Sequences
// are written last to first so the decoder reads them in order.
func (b *blockEnc) appendSequenceBits(dst []byte) []byte {
	bw := &b.bw
	bw.reset(dst)
	ll := seqCoder{enc: b.active[tableLiteralLengths]}
	of := seqCoder{enc: b.active[tableOffsets]}
	ml := seqCoder{enc: b.active[tableMatchLengths]}

	seqs := b.sequences
	s := seqs[len(seqs)-1]
	ml.init(bw, s.mlCode)
	of.init(bw, s.ofCode)
	ll.init(bw, s.llCode)
	b.addExtraBits(s)
	for i := len(seqs) - 2; i >= 0; i-- {
		s := seqs[i]
		of.encode(s.ofCode)
		ml.encode(s.mlCode)
		ll.encode(s.llCode)
		b.addExtraBits(s)
	}
	ml.flush()
	of.flush()
	ll.flush()
	return bw.close()
}

func (b *blockEnc) addExtraBits(s seq) {
	llb := llBaselines[s.llCode]
	b.bw.addBits(s.litLen-llb.baseLine, llb.addBits)
	mlb := mlBaselines[s.mlCode]
	b.bw.addBits(s.matchLen+zstdMinMatch-mlb.baseLine, mlb.addBits)
	b.bw.addBits(s.offset-(1<<s.ofCode), s.ofCode)
}
