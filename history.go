package pack

import (
	"encoding/binary"
	"math/bits"
)

const defaultMaxDistance = 65535

// history is the sliding window shared by the hash-based match finders.
// Positions in the hash tables are indexes into buf; 0 means "empty", so
// the first byte of the window is never used as a match source.
type history struct {
	buf         []byte
	maxDistance int
}

func (h *history) reset() {
	h.buf = h.buf[:0]
}

// add appends src to the window and returns the index where it starts, and
// how many bytes were dropped from the front to make room. Tables holding
// positions must be shifted down by the dropped amount.
func (h *history) add(src []byte) (start, dropped int) {
	if len(h.buf) > 2*h.maxDistance {
		dropped = len(h.buf) - h.maxDistance
		copy(h.buf, h.buf[dropped:])
		h.buf = h.buf[:h.maxDistance]
	}
	start = len(h.buf)
	h.buf = append(h.buf, src...)
	return start, dropped
}

// prime replaces the window with the last maxDistance bytes of dict.
func (h *history) prime(dict []byte) {
	if len(dict) > h.maxDistance {
		dict = dict[len(dict)-h.maxDistance:]
	}
	h.buf = append(h.buf[:0], dict...)
}

// rebase shifts the positions in table down by delta, clearing the ones
// that fall out of the window.
func rebase(table []uint32, delta int) {
	if delta == 0 {
		return
	}
	for i, v := range table {
		if int(v) <= delta {
			table[i] = 0
		} else {
			table[i] = v - uint32(delta)
		}
	}
}

const (
	hashMul32 = 0x1e35a7bd
	hashMul64 = 0x1FE35A7BD3579BD3
)

func hash4(u uint32, tableBits uint) uint32 {
	return (u * hashMul32) >> (32 - tableBits)
}

func hash8(u uint64, tableBits uint) uint32 {
	return uint32((u * hashMul64) >> (64 - tableBits))
}

func load32(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[i:])
}

func load64(b []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(b[i:])
}

// extendMatch returns the largest k such that k <= len(src) and that
// src[i:i+k-j] and src[j:k] have the same contents.
//
// It assumes that:
//
//	0 <= i && i < j && j <= len(src)
func extendMatch(src []byte, i, j int) int {
	for j+8 <= len(src) {
		iBytes := load64(src, i)
		jBytes := load64(src, j)
		if iBytes != jBytes {
			return j + bits.TrailingZeros64(iBytes^jBytes)>>3
		}
		i, j = i+8, j+8
	}
	for ; j < len(src) && src[i] == src[j]; i, j = i+1, j+1 {
	}
	return j
}

// extendBackward moves a match at start (copying from match) backward
// while the preceding bytes agree, without going below min.
func extendBackward(src []byte, start, match, min int) (int, int) {
	for start > min && match > 0 && src[start-1] == src[match-1] {
		start--
		match--
	}
	return start, match
}
