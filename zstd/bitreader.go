// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"math/bits"
)

// bitReader reads a bitstream in reverse.
// The last set bit indicates the start of the stream and is used
// for aligning the input.
//
// pos is the number of bits left to read. Bits below position zero read as
// zero, and a stream that was read past its start reports overread.
type bitReader struct {
	in  []byte
	pos int
}

// init initializes and resets the bit reader.
func (b *bitReader) init(in []byte) error {
	if len(in) < 1 {
		return corrupt("empty bitstream")
	}
	v := in[len(in)-1]
	if v == 0 {
		return corrupt("bitstream has no end marker")
	}
	b.in = in
	b.pos = 8*len(in) - 8 + bits.Len8(v) - 1
	return nil
}

// peek returns the next n bits without consuming them. n must be <= 56.
func (b *bitReader) peek(n uint8) uint64 {
	if n == 0 {
		return 0
	}
	if b.pos <= 0 {
		return 0
	}
	// Load the 8 bytes that end at bit pos-1. Bytes before the start of the
	// stream are zero.
	var v uint64
	endByte := (b.pos - 1) >> 3
	startByte := endByte - 7
	for i := max(startByte, 0); i <= endByte; i++ {
		v |= uint64(b.in[i]) << (uint(i-startByte) * 8)
	}
	// v holds bits [startByte*8, endByte*8+8); bit pos-1 is at index top.
	top := uint(b.pos - 1 - startByte*8)
	v <<= 63 - top
	v >>= 64 - uint(n)
	return v
}

// readBits reads and consumes n bits. n must be <= 56.
func (b *bitReader) readBits(n uint8) uint32 {
	v := b.peek(n)
	b.pos -= int(n)
	return uint32(v)
}

// readBits64 is readBits for values wider than 32 bits.
func (b *bitReader) readBits64(n uint8) uint64 {
	v := b.peek(n)
	b.pos -= int(n)
	return v
}

// skip consumes n bits.
func (b *bitReader) skip(n uint8) {
	b.pos -= int(n)
}

// finished returns true if all bits have been read from the bit stream.
func (b *bitReader) finished() bool {
	return b.pos == 0
}

// overread returns true if more bits have been requested than is on the stream.
func (b *bitReader) overread() bool {
	return b.pos < 0
}

// remain returns the number of bits remaining.
func (b *bitReader) remain() int {
	return b.pos
}

// fwdReader reads bits forward, LSB first, as used by table descriptions.
type fwdReader struct {
	in  []byte
	off int // bit offset
}

// peek returns the next n bits (n <= 32); bits past the end read as zero.
func (f *fwdReader) peek(n uint) uint32 {
	var v uint64
	byteOff := f.off >> 3
	for i := 0; i < 5 && byteOff+i < len(f.in); i++ {
		v |= uint64(f.in[byteOff+i]) << (8 * uint(i))
	}
	v >>= uint(f.off & 7)
	return uint32(v & (1<<n - 1))
}

func (f *fwdReader) skip(n uint) {
	f.off += int(n)
}

func (f *fwdReader) read(n uint) uint32 {
	v := f.peek(n)
	f.off += int(n)
	return v
}

// overread reports whether more bits were consumed than the input holds.
func (f *fwdReader) overread() bool {
	return f.off > 8*len(f.in)
}

// consumed returns the number of bytes touched so far.
func (f *fwdReader) consumed() int {
	return (f.off + 7) >> 3
}
