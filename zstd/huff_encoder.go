package zstd

import (
	"encoding/binary"
	"sort"
)

const (
	// huffMaxTableLog is the longest Huffman code length.
	huffMaxTableLog = 11
	// huffWeightsLog is the largest table log for FSE-compressed weights.
	huffWeightsLog = 6
	// huffMinLiterals is the fewest literals worth a Huffman table.
	huffMinLiterals = 64
	// huffSingleStreamMax is the most literals coded as a single stream.
	huffSingleStreamMax = 255
)

// huffEncoder builds a length-limited Huffman code for a block's literals
// and writes the zstd table description and streams.
type huffEncoder struct {
	count     [256]uint32
	nbBits    [256]uint8
	code      [256]uint16
	symbolLen int   // highest present symbol + 1
	tableLog  uint8 // longest code length

	weights [256]uint8
	wEnc    fseEncoder
	bw      bitWriter
	verify  huffDecoder
	syms    []int
}

// build computes the code for in. It returns false if in doesn't have at
// least two distinct symbols.
func (h *huffEncoder) build(in []byte) bool {
	for i := range h.count {
		h.count[i] = 0
	}
	for _, b := range in {
		h.count[b]++
	}
	return h.buildCode(huffMaxTableLog)
}

// buildCode computes a code from h.count with lengths of at most maxBits.
func (h *huffEncoder) buildCode(maxBits uint8) bool {
	h.syms = h.syms[:0]
	for s, c := range h.count {
		h.nbBits[s] = 0
		if c > 0 {
			h.syms = append(h.syms, s)
			h.symbolLen = s + 1
		}
	}
	if len(h.syms) < 2 {
		return false
	}
	h.buildLengths()
	h.limitLengths(maxBits)
	h.tableLog = 0
	for _, s := range h.syms {
		if h.nbBits[s] > h.tableLog {
			h.tableLog = h.nbBits[s]
		}
	}
	h.assignCodes()
	return true
}

type huffNode struct {
	count  uint32
	parent int32
}

// buildLengths computes unlimited Huffman code lengths with the two-queue
// method.
func (h *huffEncoder) buildLengths() {
	sort.SliceStable(h.syms, func(i, j int) bool {
		return h.count[h.syms[i]] < h.count[h.syms[j]]
	})
	n := len(h.syms)
	nodes := make([]huffNode, n, 2*n-1)
	for i, s := range h.syms {
		nodes[i] = huffNode{count: h.count[s], parent: -1}
	}
	leaf, inner := 0, n
	pick := func() int {
		if leaf < n && (inner >= len(nodes) || nodes[leaf].count <= nodes[inner].count) {
			leaf++
			return leaf - 1
		}
		inner++
		return inner - 1
	}
	for k := 0; k < n-1; k++ {
		a, b := pick(), pick()
		nodes = append(nodes, huffNode{count: nodes[a].count + nodes[b].count, parent: -1})
		nodes[a].parent = int32(len(nodes) - 1)
		nodes[b].parent = int32(len(nodes) - 1)
	}
	depth := make([]int, len(nodes))
	for i := len(nodes) - 2; i >= 0; i-- {
		depth[i] = depth[nodes[i].parent] + 1
	}
	for i, s := range h.syms {
		d := depth[i]
		if d > 255 {
			d = 255
		}
		h.nbBits[s] = uint8(d)
	}
}

// limitLengths caps code lengths at maxBits while keeping the code complete.
func (h *huffEncoder) limitLengths(maxBits uint8) {
	limit := 1 << maxBits
	kraft := 0
	for _, s := range h.syms {
		if h.nbBits[s] > maxBits {
			h.nbBits[s] = maxBits
		}
		kraft += 1 << (maxBits - h.nbBits[s])
	}
	if kraft == limit {
		return
	}
	// h.syms is sorted by ascending count.
	for kraft > limit {
		// Lengthen the rarest of the longest codes that can grow.
		best := -1
		for _, s := range h.syms {
			if h.nbBits[s] < maxBits && (best < 0 || h.nbBits[s] > h.nbBits[best]) {
				best = s
			}
		}
		kraft -= 1 << (maxBits - h.nbBits[best] - 1)
		h.nbBits[best]++
	}
	for kraft < limit {
		// Shorten the most frequent of the longest codes.
		best := -1
		for i := len(h.syms) - 1; i >= 0; i-- {
			s := h.syms[i]
			if h.nbBits[s] > 1 && (best < 0 || h.nbBits[s] > h.nbBits[best]) {
				best = s
			}
		}
		kraft += 1 << (maxBits - h.nbBits[best])
		h.nbBits[best]--
	}
}

// assignCodes gives each symbol the code the decoder's table fill implies:
// ranks by weight, symbols in order within a rank.
func (h *huffEncoder) assignCodes() {
	var rankStart [huffMaxTableLog + 2]uint32
	var rankCount [huffMaxTableLog + 2]uint32
	for _, s := range h.syms {
		rankCount[h.tableLog+1-h.nbBits[s]]++
	}
	next := uint32(0)
	for w := uint8(1); w <= h.tableLog; w++ {
		rankStart[w] = next
		next += rankCount[w] << (w - 1)
	}
	for s := 0; s < h.symbolLen; s++ {
		if h.nbBits[s] == 0 {
			h.weights[s] = 0
			continue
		}
		w := h.tableLog + 1 - h.nbBits[s]
		h.weights[s] = w
		h.code[s] = uint16(rankStart[w] >> (w - 1))
		rankStart[w] += 1 << (w - 1)
	}
}

// estimateSize returns the number of bytes needed to code the histogram.
func (h *huffEncoder) estimateSize() int {
	bits := 0
	for _, s := range h.syms {
		bits += int(h.count[s]) * int(h.nbBits[s])
	}
	return (bits + 7) >> 3
}

// appendTable writes the table description. It returns false if the
// weights can't be described.
func (h *huffEncoder) appendTable(dst []byte) ([]byte, bool) {
	weights := h.weights[:h.symbolLen-1]
	n := len(weights)
	if n > 2 {
		if b, ok := h.compressWeights(weights); ok && len(b) < 128 && (n > 128 || len(b) < (n+1)/2) {
			dst = append(dst, byte(len(b)))
			return append(dst, b...), true
		}
	}
	if n > 128 {
		return dst, false
	}
	dst = append(dst, byte(127+n))
	for i := 0; i < n; i += 2 {
		b := weights[i] << 4
		if i+1 < n {
			b |= weights[i+1]
		}
		dst = append(dst, b)
	}
	return dst, true
}

// compressWeights FSE-compresses the weights with two interleaved states,
// and checks that they decode back.
func (h *huffEncoder) compressWeights(weights []uint8) ([]byte, bool) {
	enc := &h.wEnc
	enc.histogram(weights)
	if enc.maxCount == len(weights) || enc.maxCount == 1 {
		return nil, false
	}
	enc.optimalTableLog(len(weights), huffWeightsLog)
	enc.normalizeCount(len(weights))
	if err := enc.buildCTable(); err != nil {
		return nil, false
	}
	out, err := enc.writeCount(nil)
	if err != nil {
		return nil, false
	}
	hdr := len(out)
	tt := enc.ct.symbolTT
	h.bw.reset(out)
	var c1, c2 cState
	ip := len(weights)
	if ip&1 == 1 {
		c1.init(&h.bw, &enc.ct, tt[weights[ip-1]])
		c2.init(&h.bw, &enc.ct, tt[weights[ip-2]])
		c1.encode(tt[weights[ip-3]])
		ip -= 3
	} else {
		c2.init(&h.bw, &enc.ct, tt[weights[ip-1]])
		c1.init(&h.bw, &enc.ct, tt[weights[ip-2]])
		ip -= 2
	}
	for ip > 0 {
		c2.encode(tt[weights[ip-1]])
		c1.encode(tt[weights[ip-2]])
		ip -= 2
	}
	c2.flush(enc.actualTableLog)
	c1.flush(enc.actualTableLog)
	out = h.bw.close()
	if len(out) == hdr {
		return nil, false
	}

	// Some distributions decode to extra weights; those can't be used.
	got, err := h.verify.decodeWeights(out)
	if err != nil || string(got) != string(weights) {
		return nil, false
	}
	return out, true
}

// appendStream1X Huffman-codes src as a single stream.
func (h *huffEncoder) appendStream1X(dst, src []byte) []byte {
	h.bw.reset(dst)
	for i := len(src) - 1; i >= 0; i-- {
		s := src[i]
		h.bw.addBits(uint32(h.code[s]), h.nbBits[s])
	}
	return h.bw.close()
}

// appendStreams4X codes src as four streams behind a jump table.
func (h *huffEncoder) appendStreams4X(dst, src []byte) ([]byte, bool) {
	segSize := (len(src) + 3) / 4
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0, 0, 0)
	prev := len(dst)
	for i := 0; i < 4; i++ {
		seg := src[min(i*segSize, len(src)):min((i+1)*segSize, len(src))]
		if i == 3 {
			seg = src[3*segSize:]
		}
		dst = h.appendStream1X(dst, seg)
		if i < 3 {
			n := len(dst) - prev
			if n > 0xffff {
				return dst, false
			}
			binary.LittleEndian.PutUint16(dst[start+2*i:], uint16(n))
		}
		prev = len(dst)
	}
	return dst, true
}
