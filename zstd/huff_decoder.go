package zstd

import (
	"encoding/binary"
)

type huffEntry struct {
	sym    uint8
	nbBits uint8
}

// huffDecoder holds a Huffman decoding table. It survives across blocks so
// treeless literals can reuse it.
type huffDecoder struct {
	tableLog uint8
	dt       [1 << huffMaxTableLog]huffEntry

	weights [256]uint8
	wDec    fseDecoder
}

// readTable reads a Huffman table description and returns the number of
// bytes used.
func (h *huffDecoder) readTable(in []byte) (int, error) {
	if len(in) < 1 {
		return 0, corrupt("missing huffman table")
	}
	var n, consumed int
	if hb := int(in[0]); hb >= 128 {
		// Direct representation, 4 bits per weight.
		n = hb - 127
		consumed = 1 + (n+1)/2
		if len(in) < consumed {
			return 0, corrupt("huffman weights truncated")
		}
		for i := 0; i < n; i += 2 {
			b := in[1+i/2]
			h.weights[i] = b >> 4
			if i+1 < n {
				h.weights[i+1] = b & 15
			}
		}
	} else {
		consumed = 1 + hb
		if len(in) < consumed {
			return 0, corrupt("huffman weights truncated")
		}
		w, err := h.decodeWeights(in[1:consumed])
		if err != nil {
			return 0, err
		}
		n = len(w)
	}
	if err := h.build(n); err != nil {
		return 0, err
	}
	return consumed, nil
}

// decodeWeights decodes FSE-compressed weights into h.weights.
func (h *huffDecoder) decodeWeights(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, corrupt("empty huffman weights")
	}
	d := &h.wDec
	hdr, err := d.readNCount(in, maxSymbolValue, huffWeightsLog)
	if err != nil {
		return nil, err
	}
	if hdr >= len(in) {
		return nil, corrupt("huffman weights have no bitstream")
	}
	var br bitReader
	if err := br.init(in[hdr:]); err != nil {
		return nil, err
	}
	dt := d.dt[:1<<d.actualTableLog]
	var s1, s2 fseState
	s1.init(&br, d.actualTableLog, dt)
	s2.init(&br, d.actualTableLog, dt)
	n := 0
	for {
		if n+2 > 255 {
			return nil, corrupt("too many huffman weights")
		}
		h.weights[n] = s1.state.addBits()
		n++
		s1.next(&br)
		if br.overread() {
			h.weights[n] = s2.state.addBits()
			n++
			break
		}
		h.weights[n] = s2.state.addBits()
		n++
		s2.next(&br)
		if br.overread() {
			h.weights[n] = s1.state.addBits()
			n++
			break
		}
	}
	return h.weights[:n], nil
}

// build fills the decoding table from the first n weights, adding the
// implied last one.
func (h *huffDecoder) build(n int) error {
	var rankCount [huffMaxTableLog + 2]uint32
	total := uint32(0)
	for _, w := range h.weights[:n] {
		if w > huffMaxTableLog {
			return corrupt("huffman weight %d too large", w)
		}
		rankCount[w]++
		if w > 0 {
			total += 1 << (w - 1)
		}
	}
	if total == 0 {
		return corrupt("huffman weights are all zero")
	}
	tableLog := highBit(total) + 1
	if tableLog > huffMaxTableLog {
		return corrupt("huffman table log %d too large", tableLog)
	}
	rest := (uint32(1) << tableLog) - total
	if !isPowerOfTwo(int(rest)) {
		return corrupt("huffman weights don't complete a power of two")
	}
	if n >= 256 {
		return corrupt("too many huffman weights")
	}
	last := uint8(highBit(rest) + 1)
	h.weights[n] = last
	rankCount[last]++
	n++
	if rankCount[1] < 2 || rankCount[1]&1 != 0 {
		return corrupt("invalid huffman rank 1 count %d", rankCount[1])
	}

	var rankStart [huffMaxTableLog + 2]uint32
	next := uint32(0)
	for w := uint32(1); w <= tableLog; w++ {
		rankStart[w] = next
		next += rankCount[w] << (w - 1)
	}
	for s, w := range h.weights[:n] {
		if w == 0 {
			continue
		}
		e := huffEntry{sym: uint8(s), nbBits: uint8(tableLog) + 1 - w}
		length := uint32(1) << (w - 1)
		start := rankStart[w]
		for i := start; i < start+length; i++ {
			h.dt[i] = e
		}
		rankStart[w] += length
	}
	h.tableLog = uint8(tableLog)
	return nil
}

// decode1X decodes n symbols from a single stream, appending them to dst.
func (h *huffDecoder) decode1X(dst []byte, in []byte, n int) ([]byte, error) {
	var br bitReader
	if err := br.init(in); err != nil {
		return dst, err
	}
	tl := h.tableLog
	for i := 0; i < n; i++ {
		e := h.dt[br.peek(tl)]
		dst = append(dst, e.sym)
		br.skip(e.nbBits)
	}
	if !br.finished() {
		return dst, corrupt("huffman stream has %d bits left", br.remain())
	}
	return dst, nil
}

// decode4X decodes n symbols from four streams behind a jump table.
func (h *huffDecoder) decode4X(dst []byte, in []byte, n int) ([]byte, error) {
	if len(in) < 6+4 {
		return dst, corrupt("huffman 4-stream input too short")
	}
	segSize := (n + 3) / 4
	if 3*segSize > n {
		return dst, corrupt("too few literals (%d) for 4 streams", n)
	}
	var sizes [4]int
	sizes[0] = int(binary.LittleEndian.Uint16(in[0:]))
	sizes[1] = int(binary.LittleEndian.Uint16(in[2:]))
	sizes[2] = int(binary.LittleEndian.Uint16(in[4:]))
	in = in[6:]
	sizes[3] = len(in) - sizes[0] - sizes[1] - sizes[2]
	if sizes[3] < 1 {
		return dst, corrupt("huffman jump table exceeds input")
	}
	var err error
	for i, sz := range sizes {
		regen := segSize
		if i == 3 {
			regen = n - 3*segSize
		}
		dst, err = h.decode1X(dst, in[:sz], regen)
		if err != nil {
			return dst, err
		}
		in = in[sz:]
	}
	return dst, nil
}
