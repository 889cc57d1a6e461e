// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"math"
)

// fseEncoder holds the symbol statistics and compression table of one FSE
// stream.
type fseEncoder struct {
	symbolLen      uint16 // Length of active part of the symbol table.
	actualTableLog uint8  // Selected tablelog.
	ct             cTable // Compression tables.
	maxCount       int    // count of the most probable symbol
	useRLE         bool   // This encoder is for RLE
	preDefined     bool   // This encoder is predefined.
	rleVal         uint8  // RLE Symbol

	count [256]uint32
	norm  [256]int16
}

// cTable contains tables used for compression.
type cTable struct {
	tableSymbol []byte
	stateTable  []uint16
	symbolTT    []symbolTransform
}

// symbolTransform contains the state transform for a symbol.
type symbolTransform struct {
	deltaNbBits    uint32
	deltaFindState int16
}

// histogram counts the codes in in and records the largest symbol and count.
func (s *fseEncoder) histogram(in []uint8) {
	for i := range s.count {
		s.count[i] = 0
	}
	maxSym := 0
	for _, v := range in {
		s.count[v]++
		if int(v) > maxSym {
			maxSym = int(v)
		}
	}
	s.maxCount = 0
	for _, c := range s.count[:maxSym+1] {
		if int(c) > s.maxCount {
			s.maxCount = int(c)
		}
	}
	s.symbolLen = uint16(maxSym + 1)
	s.useRLE = false
	s.preDefined = false
}

// setRLE prepares the encoder to emit nothing for a stream of one symbol.
func (s *fseEncoder) setRLE(val byte) {
	s.useRLE = true
	s.preDefined = false
	s.rleVal = val
	s.actualTableLog = 0
}

// setNorm installs a fixed distribution.
func (s *fseEncoder) setNorm(norm []int16, tableLog uint8) {
	for i := range s.norm {
		s.norm[i] = 0
	}
	copy(s.norm[:], norm)
	s.symbolLen = uint16(len(norm))
	s.actualTableLog = tableLog
	s.useRLE = false
}

// optimalTableLog calculates and sets the optimal tableLog in s.actualTableLog
func (s *fseEncoder) optimalTableLog(length int, maxLog uint8) {
	srcBits := 0
	if length > 1 {
		srcBits = int(highBit(uint32(length - 1)))
	}
	tableLog := int(maxLog)
	if maxBitsSrc := srcBits - 2; maxBitsSrc < tableLog {
		// Accuracy can be reduced
		tableLog = maxBitsSrc
	}
	minBits := min(srcBits+1, int(highBit(uint32(s.symbolLen-1)))+2)
	if minBits > tableLog {
		tableLog = minBits
	}
	// Need a minimum to safely represent all symbol values
	tableLog = max(tableLog, minTablelog)
	tableLog = min(tableLog, int(maxLog))
	s.actualTableLog = uint8(tableLog)
}

// normalizeCount scales the histogram of length symbols to the table size.
// Every present symbol gets a probability of at least 1; the encoder never
// uses the "less than 1" probability.
func (s *fseEncoder) normalizeCount(length int) {
	tableSize := int(1) << s.actualTableLog
	sum := 0
	for i, c := range s.count[:s.symbolLen] {
		if c == 0 {
			s.norm[i] = 0
			continue
		}
		n := int(uint64(c) * uint64(tableSize) / uint64(length))
		if n == 0 {
			n = 1
		}
		s.norm[i] = int16(n)
		sum += n
	}
	for sum > tableSize {
		// Take from the biggest probability, which loses the least.
		largest := -1
		for i, n := range s.norm[:s.symbolLen] {
			if n > 1 && (largest < 0 || n > s.norm[largest]) {
				largest = i
			}
		}
		s.norm[largest]--
		sum--
	}
	if sum < tableSize {
		largest := 0
		for i, c := range s.count[:s.symbolLen] {
			if c > s.count[largest] {
				largest = i
			}
		}
		s.norm[largest] += int16(tableSize - sum)
	}
	for i := s.symbolLen; i < uint16(len(s.norm)); i++ {
		s.norm[i] = 0
	}
}

// buildCTable will populate the compression table so it is ready to be used.
func (s *fseEncoder) buildCTable() error {
	tableSize := uint32(1 << s.actualTableLog)
	highThreshold := tableSize - 1
	var cumul [257]int16

	if cap(s.ct.tableSymbol) < int(tableSize) {
		s.ct.tableSymbol = make([]byte, tableSize)
	}
	s.ct.tableSymbol = s.ct.tableSymbol[:tableSize]
	if cap(s.ct.stateTable) < int(tableSize) {
		s.ct.stateTable = make([]uint16, tableSize)
	}
	s.ct.stateTable = s.ct.stateTable[:tableSize]
	if cap(s.ct.symbolTT) < 256 {
		s.ct.symbolTT = make([]symbolTransform, 256)
	}
	s.ct.symbolTT = s.ct.symbolTT[:256]

	// symbol start positions
	{
		cumul[0] = 0
		for ui, v := range s.norm[:s.symbolLen-1] {
			u := byte(ui) // one less than reference
			if v == -1 {
				// Low proba symbol
				cumul[u+1] = cumul[u] + 1
				s.ct.tableSymbol[highThreshold] = u
				highThreshold--
			} else {
				cumul[u+1] = cumul[u] + v
			}
		}
		// Encode last symbol separately to avoid overflowing u
		u := int(s.symbolLen - 1)
		v := s.norm[s.symbolLen-1]
		if v == -1 {
			// Low proba symbol
			cumul[u+1] = cumul[u] + 1
			s.ct.tableSymbol[highThreshold] = byte(u)
			highThreshold--
		} else {
			cumul[u+1] = cumul[u] + v
		}
		if uint32(cumul[s.symbolLen]) != tableSize {
			return corrupt("internal error: expected cumul[s.symbolLen] (%d) == tableSize (%d)", cumul[s.symbolLen], tableSize)
		}
		cumul[s.symbolLen] = int16(tableSize) + 1
	}
	// Spread symbols
	{
		step := tableStep(tableSize)
		tableMask := tableSize - 1
		var position uint32
		for ui, v := range s.norm[:s.symbolLen] {
			symbol := byte(ui)
			for nbOccurrences := int16(0); nbOccurrences < v; nbOccurrences++ {
				s.ct.tableSymbol[position] = symbol
				position = (position + step) & tableMask
				for position > highThreshold {
					position = (position + step) & tableMask
				} /* Low proba area */
			}
		}

		// Check if we have gone through all positions
		if position != 0 {
			return corrupt("position != 0")
		}
	}

	// Build table
	table := s.ct.stateTable
	{
		tsi := int(tableSize)
		for u, v := range s.ct.tableSymbol {
			// TableU16 : sorted by symbol order; gives next state value
			table[cumul[v]] = uint16(tsi + u)
			cumul[v]++
		}
	}

	// Build Symbol Transformation Table
	{
		total := int16(0)
		symbolTT := s.ct.symbolTT[:s.symbolLen]
		tableLog := s.actualTableLog
		tl := (uint32(tableLog) << 16) - (1 << tableLog)
		for i, v := range s.norm[:s.symbolLen] {
			switch v {
			case 0:
			case -1, 1:
				symbolTT[i].deltaNbBits = tl
				symbolTT[i].deltaFindState = total - 1
				total++
			default:
				maxBitsOut := uint32(tableLog) - highBit(uint32(v-1))
				minStatePlus := uint32(v) << maxBitsOut
				symbolTT[i].deltaNbBits = (maxBitsOut << 16) - minStatePlus
				symbolTT[i].deltaFindState = total - v
				total += v
			}
		}
		if total != int16(tableSize) {
			return corrupt("total mismatch %d (got) != %d (want)", total, tableSize)
		}
	}
	return nil
}

// writeCount will write the normalized histogram count to header.
// This is read back by readNCount.
func (s *fseEncoder) writeCount(out []byte) ([]byte, error) {
	if s.useRLE {
		return append(out, s.rleVal), nil
	}
	if s.preDefined {
		// nothing to write
		return out, nil
	}

	var (
		tableLog  = s.actualTableLog
		tableSize = 1 << tableLog
		previous0 bool
		charnum   uint16
		fw        = fwdWriter{out: out}

		// Table Size
		remaining = int16(tableSize + 1) /* +1 for extra accuracy */
		threshold = int16(tableSize)
		nbBits    = uint(tableLog + 1)
		alphabet  = s.symbolLen
	)
	fw.add(uint32(tableLog-minTablelog), 4)

	for remaining > 1 { // stops at 1
		if previous0 {
			start := charnum
			for s.norm[charnum] == 0 {
				charnum++
				if charnum == alphabet {
					return nil, corrupt("incorrect distribution")
				}
			}
			for charnum >= start+24 {
				start += 24
				fw.add(0xffff, 16)
			}
			for charnum >= start+3 {
				start += 3
				fw.add(3, 2)
			}
			fw.add(uint32(charnum-start), 2)
		}

		count := s.norm[charnum]
		charnum++
		max := (2*threshold - 1) - remaining
		if count < 0 {
			remaining += count
		} else {
			remaining -= count
		}
		count++ // +1 for extra accuracy
		if count >= threshold {
			count += max // [0..max[ [max..threshold[ (...) [threshold+max 2*threshold[
		}
		if count < max {
			fw.add(uint32(count), nbBits-1)
		} else {
			fw.add(uint32(count), nbBits)
		}
		previous0 = count == 1
		if remaining < 1 {
			return nil, corrupt("remaining < 1")
		}
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
		if remaining > 1 && charnum == alphabet {
			return nil, corrupt("distribution does not cover table")
		}
	}
	return fw.close(), nil
}

// bitCost estimates the number of bits needed to code the histogram
// with the current distribution. It returns +Inf if a present symbol
// can't be coded.
func (s *fseEncoder) bitCost(count []uint32) float64 {
	if s.useRLE {
		for i, c := range count {
			if c > 0 && i != int(s.rleVal) {
				return math.Inf(1)
			}
		}
		return 0
	}
	tableSize := float64(int(1) << s.actualTableLog)
	var bits float64
	for i, c := range count {
		if c == 0 {
			continue
		}
		if i >= int(s.symbolLen) || s.norm[i] == 0 {
			return math.Inf(1)
		}
		p := float64(s.norm[i])
		if p < 0 {
			p = 1
		}
		bits += float64(c) * math.Log2(tableSize/p)
	}
	return bits
}

// cState contains the compression state of a stream.
type cState struct {
	bw         *bitWriter
	stateTable []uint16
	state      uint16
}

// init will initialize the compression state to the first symbol of the stream.
func (c *cState) init(bw *bitWriter, ct *cTable, first symbolTransform) {
	c.bw = bw
	c.stateTable = ct.stateTable
	nbBitsOut := (first.deltaNbBits + (1 << 15)) >> 16
	im := int32((nbBitsOut << 16) - first.deltaNbBits)
	lu := (im >> nbBitsOut) + int32(first.deltaFindState)
	c.state = c.stateTable[lu]
}

// encode the output symbol provided and write it to the bitstream.
func (c *cState) encode(symbolTT symbolTransform) {
	nbBitsOut := (uint32(c.state) + symbolTT.deltaNbBits) >> 16
	dstState := int32(c.state>>(nbBitsOut&15)) + int32(symbolTT.deltaFindState)
	c.bw.addBits(uint32(c.state), uint8(nbBitsOut))
	c.state = c.stateTable[dstState]
}

// flush will write the tablelog to the output and flush the remaining full bytes.
func (c *cState) flush(tableLog uint8) {
	c.bw.addBits(uint32(c.state), tableLog)
}

// seqCoder pairs an encoder with its running state in a sequence bitstream.
type seqCoder struct {
	enc   *fseEncoder
	state cState
}

func (s *seqCoder) init(bw *bitWriter, first uint8) {
	if s.enc.useRLE {
		return
	}
	s.state.init(bw, &s.enc.ct, s.enc.ct.symbolTT[first])
}

func (s *seqCoder) encode(symbol uint8) {
	if s.enc.useRLE {
		return
	}
	s.state.encode(s.enc.ct.symbolTT[symbol])
}

func (s *seqCoder) flush() {
	if s.enc.useRLE {
		return
	}
	s.state.flush(s.enc.actualTableLog)
}
