// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"fmt"
	"math"
)

type seq struct {
	litLen   uint32
	matchLen uint32
	offset   uint32

	// Codes are stored here for the encoder
	// so they only have to be looked up once.
	llCode, mlCode, ofCode uint8
}

func (s seq) String() string {
	if s.offset <= 3 {
		if s.offset == 0 {
			return fmt.Sprint("litLen:", s.litLen, ", matchLen:", s.matchLen+zstdMinMatch, ", offset: INVALID (0)")
		}
		return fmt.Sprint("litLen:", s.litLen, ", matchLen:", s.matchLen+zstdMinMatch, ", offset:", s.offset, " (repeat)")
	}
	return fmt.Sprint("litLen:", s.litLen, ", matchLen:", s.matchLen+zstdMinMatch, ", offset:", s.offset-3, " (new)")
}

type seqCompMode uint8

const (
	compModePredefined seqCompMode = iota
	compModeRLE
	compModeFSE
	compModeRepeat
)

// parseSeqCount reads the number of sequences.
func parseSeqCount(in []byte) (nbSeq, n int, err error) {
	if len(in) < 1 {
		return 0, 0, corrupt("missing sequences section")
	}
	b0 := int(in[0])
	switch {
	case b0 < 128:
		return b0, 1, nil
	case b0 < 255:
		if len(in) < 2 {
			return 0, 0, corrupt("sequence count truncated")
		}
		return (b0-128)<<8 | int(in[1]), 2, nil
	default:
		if len(in) < 3 {
			return 0, 0, corrupt("sequence count truncated")
		}
		return (int(in[1]) | int(in[2])<<8) + 0x7f00, 3, nil
	}
}

// readSeqTable sets up table t in the given mode, reading its description
// from in, and returns the number of bytes used.
func (d *frameDec) readSeqTable(t tableIndex, mode seqCompMode, in []byte) (int, error) {
	maxSym := [3]uint16{maxLiteralLengthSymbol, maxOffsetLengthSymbol, maxMatchLengthSymbol}[t]
	maxLog := [3]uint8{maxLiteralLengthLog, maxOffsetLog, maxMatchLengthLog}[t]
	switch mode {
	case compModePredefined:
		initPredefined()
		d.seqTables[t] = &fsePredef[t]
		return 0, nil
	case compModeRLE:
		if len(in) < 1 {
			return 0, corrupt("%v RLE symbol missing", t)
		}
		sym, err := rleSymbol(t, in[0])
		if err != nil {
			return 0, err
		}
		d.seqDecs[t].setRLE(sym)
		d.seqTables[t] = &d.seqDecs[t]
		return 1, nil
	case compModeFSE:
		dec := &d.seqDecs[t]
		n, err := dec.readNCount(in, maxSym, maxLog)
		if err != nil {
			return 0, err
		}
		if err := dec.transform(t); err != nil {
			return 0, err
		}
		d.seqTables[t] = dec
		return n, nil
	default:
		if d.seqTables[t] == nil {
			return 0, corrupt("%v repeat mode without a previous table", t)
		}
		return 0, nil
	}
}

// decodeSequences parses the sequences section into d.seqs. Repeat codes
// are resolved, so every offset is a new offset (distance + 3).
func (d *frameDec) decodeSequences(in []byte) error {
	d.seqs = d.seqs[:0]
	nbSeq, n, err := parseSeqCount(in)
	if err != nil {
		return err
	}
	in = in[n:]
	if nbSeq == 0 {
		if len(in) != 0 {
			return corrupt("%d bytes after empty sequences section", len(in))
		}
		return nil
	}
	if len(in) < 1 {
		return corrupt("missing sequence modes")
	}
	modes := in[0]
	if modes&3 != 0 {
		return corrupt("reserved sequence mode bits set")
	}
	in = in[1:]
	for i, t := range [3]tableIndex{tableLiteralLengths, tableOffsets, tableMatchLengths} {
		mode := seqCompMode(modes>>(6-2*uint(i))) & 3
		n, err := d.readSeqTable(t, mode, in)
		if err != nil {
			return err
		}
		in = in[n:]
	}

	var br bitReader
	if err := br.init(in); err != nil {
		return err
	}
	ll, of, ml := d.seqTables[tableLiteralLengths], d.seqTables[tableOffsets], d.seqTables[tableMatchLengths]
	var llState, ofState, mlState fseState
	llState.init(&br, ll.actualTableLog, ll.dt[:1<<ll.actualTableLog])
	ofState.init(&br, of.actualTableLog, of.dt[:1<<of.actualTableLog])
	mlState.init(&br, ml.actualTableLog, ml.dt[:1<<ml.actualTableLog])

	for i := 0; i < nbSeq; i++ {
		ofs, mls, lls := ofState.state, mlState.state, llState.state
		offset := uint32(ofs.baselineInt()) + br.readBits(ofs.addBits())
		matchLen := uint32(mls.baselineInt()) + br.readBits(mls.addBits())
		litLen := uint32(lls.baselineInt()) + br.readBits(lls.addBits())
		if br.overread() {
			return corrupt("sequence bitstream overread at sequence %d of %d", i, nbSeq)
		}

		dist, err := d.resolveOffset(offset, litLen)
		if err != nil {
			return err
		}
		d.seqs = append(d.seqs, seq{litLen: litLen, matchLen: matchLen - zstdMinMatch, offset: dist + 3})

		if i < nbSeq-1 {
			llState.next(&br)
			mlState.next(&br)
			ofState.next(&br)
		}
	}
	if !br.finished() {
		return corrupt("sequence bitstream has %d bits left", br.remain())
	}
	return nil
}

// resolveOffset turns an offset value into a match distance, updating the
// repeat offsets.
func (d *frameDec) resolveOffset(offset, litLen uint32) (uint32, error) {
	r := &d.reps
	if offset > 3 {
		r[2], r[1], r[0] = r[1], r[0], offset-3
		return r[0], nil
	}
	idx := offset
	if litLen == 0 {
		idx++
	}
	var dist uint32
	switch idx {
	case 1:
		return r[0], nil
	case 2:
		dist = r[1]
		r[1] = r[0]
	case 3:
		dist = r[2]
		r[2], r[1] = r[1], r[0]
	case 4:
		if r[0] <= 1 {
			return 0, corrupt("repeat offset 0")
		}
		dist = r[0] - 1
		r[2], r[1] = r[1], r[0]
	default:
		return 0, corrupt("offset value 0")
	}
	r[0] = dist
	return dist, nil
}

// maxOffset is the largest match distance allowed after pos bytes of frame
// content. The whole dictionary stays in reach until the frame content
// fills the window.
func (d *frameDec) maxOffset(pos int) int {
	limit := int(min(d.hdr.WindowSize, math.MaxInt))
	if pos < limit {
		limit = max(limit, pos+len(d.dict.history()))
	}
	return limit
}

// executeSequences applies d.seqs and the literals to the history.
func (d *frameDec) executeSequences(lits []byte) error {
	start := len(d.hist)
	for _, s := range d.seqs {
		ll := int(s.litLen)
		if ll > len(lits) {
			return corrupt("literal length %d exceeds %d remaining literals", ll, len(lits))
		}
		d.hist = append(d.hist, lits[:ll]...)
		lits = lits[ll:]

		ml := int(s.matchLen) + zstdMinMatch
		off := int(s.offset) - 3
		if limit := d.maxOffset(int(d.decoded) + len(d.hist) - start); off <= 0 || off > limit {
			return corrupt("match offset %d outside window of %d bytes", off, limit)
		}
		if off > len(d.hist) {
			return corrupt("match offset %d beyond %d bytes of history", off, len(d.hist))
		}
		if len(d.hist)-start+ml > maxCompressedBlockSize {
			return ErrBlockTooLarge
		}
		from := len(d.hist) - off
		if off >= ml {
			d.hist = append(d.hist, d.hist[from:from+ml]...)
		} else {
			for i := 0; i < ml; i++ {
				d.hist = append(d.hist, d.hist[from+i])
			}
		}
	}
	d.hist = append(d.hist, lits...)
	if len(d.hist)-start > maxCompressedBlockSize {
		return ErrBlockTooLarge
	}
	return nil
}
