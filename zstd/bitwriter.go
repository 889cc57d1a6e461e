// Copyright 2018 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// Based on work Copyright (c) 2013, Yann Collet, released under BSD License.

package zstd

// bitWriter will write bits.
// First bit will be LSB of the first byte of output.
type bitWriter struct {
	bitContainer uint64
	nBits        uint8
	out          []byte
}

// bitMask16 is bitmasks. Has extra to avoid bounds check.
var bitMask32 = [33]uint32{
	0, 1, 3, 7, 0xF, 0x1F, 0x3F, 0x7F, 0xFF,
	0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF, 0xFFFF,
	0x1FFFF, 0x3FFFF, 0x7FFFF, 0xFFFFF, 0x1FFFFF, 0x3FFFFF, 0x7FFFFF, 0xFFFFFF,
	0x1FFFFFF, 0x3FFFFFF, 0x7FFFFFF, 0xFFFFFFF, 0x1FFFFFFF, 0x3FFFFFFF, 0x7FFFFFFF, 0xFFFFFFFF,
}

// reset and continue writing by appending to out.
func (b *bitWriter) reset(out []byte) {
	b.bitContainer = 0
	b.nBits = 0
	b.out = out
}

// addBits adds the low nBits of value. Up to 32 bits can be added at once.
func (b *bitWriter) addBits(value uint32, bits uint8) {
	if b.nBits > 32 {
		b.flush32()
	}
	b.bitContainer |= uint64(value&bitMask32[bits]) << (b.nBits & 63)
	b.nBits += bits
}

// flush32 will flush out, so there are at least 32 bits available for writing.
func (b *bitWriter) flush32() {
	if b.nBits < 32 {
		return
	}
	v := uint32(b.bitContainer)
	b.out = append(b.out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	b.nBits -= 32
	b.bitContainer >>= 32
}

// flushAlign will flush remaining full bytes and align to next byte boundary.
func (b *bitWriter) flushAlign() {
	nbBytes := (b.nBits + 7) >> 3
	for i := uint8(0); i < nbBytes; i++ {
		b.out = append(b.out, byte(b.bitContainer>>(i*8)))
	}
	b.nBits = 0
	b.bitContainer = 0
}

// close will write the end-of-stream marker and flush everything, returning
// the output.
func (b *bitWriter) close() []byte {
	b.addBits(1, 1)
	b.flushAlign()
	return b.out
}

// fwdWriter writes bits forward, LSB first, for table descriptions.
type fwdWriter struct {
	container uint64
	n         uint
	out       []byte
}

func (f *fwdWriter) add(v uint32, n uint) {
	f.container |= uint64(v) << f.n
	f.n += n
	for f.n >= 8 {
		f.out = append(f.out, byte(f.container))
		f.container >>= 8
		f.n -= 8
	}
}

func (f *fwdWriter) close() []byte {
	if f.n > 0 {
		f.out = append(f.out, byte(f.container))
	}
	f.container, f.n = 0, 0
	return f.out
}
