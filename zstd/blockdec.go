// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"encoding/binary"
	"hash"

	"github.com/pierrec/xxHash/xxHash64"
	"github.com/pkg/errors"
)

// frameDec holds the decoding state of one frame: the history window, the
// repeat offsets and the entropy tables that later blocks may repeat.
type frameDec struct {
	hdr  FrameHeader
	dict *Dict

	hist    []byte
	histMin int // len(hist) at frame start, the dictionary content
	emitted int // first byte of hist not yet returned
	decoded uint64

	reps      [3]uint32
	huff      huffDecoder
	huffValid bool
	seqDecs   [3]fseDecoder
	seqTables [3]*fseDecoder
	seqs      []seq
	litBuf    []byte

	hasher hash.Hash64
}

// begin resets the state for a frame with header hdr.
func (d *frameDec) begin(hdr FrameHeader, dict *Dict) {
	d.hdr = hdr
	d.dict = dict
	d.hist = d.hist[:0]
	d.reps = [3]uint32{1, 4, 8}
	d.huffValid = false
	d.seqTables = [3]*fseDecoder{}
	d.decoded = 0
	if dict != nil {
		d.hist = append(d.hist, dict.content...)
		for i, r := range dict.offsets {
			d.reps[i] = uint32(r)
		}
		if dict.hasEntropy {
			d.huff = dict.huff
			d.huffValid = true
			for i := range d.seqDecs {
				d.seqDecs[i] = dict.seq[i]
				d.seqTables[i] = &d.seqDecs[i]
			}
		}
	}
	d.histMin = len(d.hist)
	d.emitted = len(d.hist)
	if hdr.Checksum {
		if d.hasher == nil {
			d.hasher = xxHash64.New(0)
		}
		d.hasher.Reset()
	}
}

// blockHeader is a parsed 3-byte block header.
type blockHeader struct {
	last bool
	typ  blockType
	size int
}

func parseBlockHeader(b []byte) blockHeader {
	h := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return blockHeader{last: h&1 != 0, typ: blockType((h >> 1) & 3), size: int(h >> 3)}
}

// contentSize returns how many input bytes follow the block header.
func (h blockHeader) contentSize(maxBlock int) (int, error) {
	switch h.typ {
	case blockTypeReserved:
		return 0, ErrReservedBlockType
	case blockTypeRLE:
		if h.size > maxBlock {
			return 0, errors.Wrapf(ErrBlockTooLarge, "rle block of %d bytes", h.size)
		}
		return 1, nil
	}
	if h.size > maxBlock {
		return 0, errors.Wrapf(ErrBlockTooLarge, "block of %d bytes, max %d", h.size, maxBlock)
	}
	return h.size, nil
}

// decodeBlock decodes one block's content, appending its output to d.hist.
func (d *frameDec) decodeBlock(h blockHeader, in []byte) error {
	start := len(d.hist)
	switch h.typ {
	case blockTypeRaw:
		d.hist = append(d.hist, in...)
	case blockTypeRLE:
		for i := 0; i < h.size; i++ {
			d.hist = append(d.hist, in[0])
		}
	case blockTypeCompressed:
		lits, n, err := d.decodeLiterals(in)
		if err != nil {
			return err
		}
		if err := d.decodeSequences(in[n:]); err != nil {
			return err
		}
		if err := d.executeSequences(lits); err != nil {
			return err
		}
	default:
		return ErrReservedBlockType
	}
	out := d.hist[start:]
	if len(out) > d.hdr.maxBlockSize() {
		return errors.Wrapf(ErrBlockTooLarge, "block decoded to %d bytes", len(out))
	}
	d.decoded += uint64(len(out))
	if d.hdr.Checksum {
		_, _ = d.hasher.Write(out)
	}
	return nil
}

// finish validates the content size and the checksum in (4 bytes, or nil
// if the frame has none).
func (d *frameDec) finish(checksum []byte, verify bool) error {
	if d.hdr.HasContentSize && d.decoded != d.hdr.ContentSize {
		return errors.Wrapf(ErrFrameSizeMismatch, "header says %d bytes, decoded %d", d.hdr.ContentSize, d.decoded)
	}
	if !d.hdr.Checksum || !verify {
		return nil
	}
	want := binary.LittleEndian.Uint32(checksum)
	if got := uint32(d.hasher.Sum64()); got != want {
		return errors.Wrapf(ErrChecksumMismatch, "got %08x, want %08x", got, want)
	}
	return nil
}

// trim drops history the decoder can no longer need, keeping at least
// keep bytes before the first byte not yet emitted.
func (d *frameDec) trim(keep int) {
	drop := d.emitted - keep
	if drop <= 0 || drop < len(d.hist)/2 {
		return
	}
	n := copy(d.hist, d.hist[drop:])
	d.hist = d.hist[:n]
	d.emitted -= drop
	d.histMin = max(d.histMin-drop, 0)
}
