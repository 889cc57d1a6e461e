// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"
)

// FrameHeader describes a Zstandard frame.
type FrameHeader struct {
	// WindowSize is the minimum history a decoder needs. For single
	// segment frames it equals ContentSize.
	WindowSize uint64
	// ContentSize is the decompressed size; only valid if HasContentSize.
	ContentSize    uint64
	HasContentSize bool
	SingleSegment  bool
	Checksum       bool
	DictID         uint32
	// HeaderSize is the encoded length, magic number included.
	HeaderSize int
}

// maxBlockSize returns the largest block the frame may contain.
func (f FrameHeader) maxBlockSize() int {
	return int(min(f.WindowSize, maxCompressedBlockSize))
}

// ReadFrameHeader parses the frame header at the start of b. Skippable
// frames and legacy frames are reported with an error; see IsSkippable.
func ReadFrameHeader(b []byte) (FrameHeader, error) {
	var f FrameHeader
	if len(b) < 4 {
		return f, ErrUnexpectedEOF
	}
	magic := binary.LittleEndian.Uint32(b)
	switch {
	case magic == frameMagic:
	case magic >= legacyMagicMin && magic <= legacyMagicMax:
		return f, ErrLegacyFrame
	default:
		return f, ErrMagicMismatch
	}
	if len(b) < 5 {
		return f, ErrUnexpectedEOF
	}
	fhd := b[4]
	if fhd&0x08 != 0 {
		return f, corrupt("reserved frame header bit set")
	}
	f.SingleSegment = fhd&0x20 != 0
	f.Checksum = fhd&0x04 != 0
	f.HeaderSize = frameHeaderSize(fhd)
	if len(b) < f.HeaderSize {
		return f, ErrUnexpectedEOF
	}
	fcsSize := fcsFieldSize(fhd)
	dictIDSize := [4]int{0, 1, 2, 4}[fhd&3]
	pos := 5
	if !f.SingleSegment {
		wd := b[pos]
		pos++
		windowLog := 10 + uint(wd>>3)
		if windowLog > maxWindowLog {
			return f, errors.Wrapf(ErrWindowSizeExceeded, "window log %d", windowLog)
		}
		windowBase := uint64(1) << windowLog
		f.WindowSize = windowBase + (windowBase/8)*uint64(wd&7)
	}
	switch dictIDSize {
	case 1:
		f.DictID = uint32(b[pos])
	case 2:
		f.DictID = uint32(binary.LittleEndian.Uint16(b[pos:]))
	case 4:
		f.DictID = binary.LittleEndian.Uint32(b[pos:])
	}
	pos += dictIDSize
	f.HasContentSize = fcsSize > 0
	switch fcsSize {
	case 1:
		f.ContentSize = uint64(b[pos])
	case 2:
		f.ContentSize = uint64(binary.LittleEndian.Uint16(b[pos:])) + 256
	case 4:
		f.ContentSize = uint64(binary.LittleEndian.Uint32(b[pos:]))
	case 8:
		f.ContentSize = binary.LittleEndian.Uint64(b[pos:])
	}
	if f.SingleSegment {
		f.WindowSize = f.ContentSize
	}
	return f, nil
}

// fcsFieldSize returns the size of the frame content size field.
func fcsFieldSize(fhd byte) int {
	n := [4]int{0, 2, 4, 8}[fhd>>6]
	if n == 0 && fhd&0x20 != 0 {
		n = 1
	}
	return n
}

// frameHeaderSize returns the header length implied by the descriptor byte.
func frameHeaderSize(fhd byte) int {
	n := 5 + [4]int{0, 1, 2, 4}[fhd&3] + fcsFieldSize(fhd)
	if fhd&0x20 == 0 {
		n++ // window descriptor
	}
	return n
}

// IsSkippable reports whether b starts with a skippable frame, and if so
// its total length.
func IsSkippable(b []byte) (int, bool) {
	if len(b) < 8 || binary.LittleEndian.Uint32(b)&skippableFrameMask != skippableFrameMagic {
		return 0, false
	}
	return 8 + int(binary.LittleEndian.Uint32(b[4:])), true
}

// AppendSkippableFrame appends a skippable frame holding data. n selects the
// magic number variant, 0 to 15.
func AppendSkippableFrame(dst []byte, n uint8, data []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, skippableFrameMagic|uint32(n&15))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// appendTo writes the header. WindowSize must be a power of two unless the
// frame is a single segment.
func (f FrameHeader) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, frameMagic)
	var fhd uint8
	if f.Checksum {
		fhd |= 1 << 2
	}
	if f.SingleSegment {
		fhd |= 1 << 5
	}

	var dictIDContent []byte
	if f.DictID > 0 {
		var tmp [4]byte
		if f.DictID < 256 {
			fhd |= 1
			tmp[0] = uint8(f.DictID)
			dictIDContent = tmp[:1]
		} else if f.DictID < 1<<16 {
			fhd |= 2
			binary.LittleEndian.PutUint16(tmp[:2], uint16(f.DictID))
			dictIDContent = tmp[:2]
		} else {
			fhd |= 3
			binary.LittleEndian.PutUint32(tmp[:4], f.DictID)
			dictIDContent = tmp[:4]
		}
	}
	var fcs uint8
	if f.HasContentSize {
		if f.ContentSize >= 256 {
			fcs++
		}
		if f.ContentSize >= 65536+256 {
			fcs++
		}
		if f.ContentSize >= 0xffffffff {
			fcs++
		}
	}

	fhd |= fcs << 6

	dst = append(dst, fhd)
	if !f.SingleSegment {
		windowLog := (bits.Len64(f.WindowSize-1) - minWindowLog) << 3
		dst = append(dst, uint8(windowLog))
	}
	if f.DictID > 0 {
		dst = append(dst, dictIDContent...)
	}
	switch fcs {
	case 0:
		// Unless SingleSegment is set, sizes < 256 are not stored.
		if f.SingleSegment {
			dst = append(dst, uint8(f.ContentSize))
		}
	case 1:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f.ContentSize-256))
	case 2:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(f.ContentSize))
	case 3:
		dst = binary.LittleEndian.AppendUint64(dst, f.ContentSize)
	}
	return dst
}

// appendBlockHeader writes a 3-byte block header.
func appendBlockHeader(dst []byte, last bool, typ blockType, size int) []byte {
	h := uint32(typ)<<1 | uint32(size)<<3
	if last {
		h |= 1
	}
	return append(dst, byte(h), byte(h>>8), byte(h>>16))
}
