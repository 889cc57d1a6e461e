// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

const (
	tablelogAbsoluteMax = 9
)

const (
	maxTableLog    = tablelogAbsoluteMax
	maxTablesize   = 1 << maxTableLog
	maxTableMask   = (1 << maxTableLog) - 1
	minTablelog    = 5
	maxSymbolValue = 255
)

// fseDecoder provides temporary storage for compression and decompression.
type fseDecoder struct {
	dt             [maxTablesize]decSymbol // Decompression table.
	symbolLen      uint16                  // Length of active part of the symbol table.
	actualTableLog uint8                   // Selected tablelog.
	maxBits        uint8                   // Maximum number of additional bits

	// used for table creation to avoid allocations.
	stateTable [256]uint16
	norm       [maxSymbolValue + 1]int16
	preDefined bool
}

// tableStep returns the next table index.
func tableStep(tableSize uint32) uint32 {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// readNCount will read the symbol distribution so decoding tables can be
// constructed, and returns the number of bytes it used.
func (s *fseDecoder) readNCount(in []byte, maxSymbol uint16, maxLog uint8) (int, error) {
	if len(in) < 1 {
		return 0, corrupt("empty table description")
	}
	br := fwdReader{in: in}
	nbBits := uint(br.read(4)) + minTablelog
	if nbBits > uint(maxLog) {
		return 0, corrupt("table log %d exceeds maximum %d", nbBits, maxLog)
	}
	s.actualTableLog = uint8(nbBits)
	remaining := int32((1 << nbBits) + 1)
	threshold := int32(1 << nbBits)
	nbBits++

	charnum := uint16(0)
	previous0 := false
	for remaining > 1 && charnum <= maxSymbol {
		if previous0 {
			for {
				repeat := br.read(2)
				for k := uint32(0); k < repeat; k++ {
					if charnum > maxSymbol {
						return 0, corrupt("zero run past symbol %d", maxSymbol)
					}
					s.norm[charnum] = 0
					charnum++
				}
				if repeat != 3 {
					break
				}
				if br.overread() {
					return 0, corrupt("table description truncated")
				}
			}
			if charnum > maxSymbol {
				return 0, corrupt("zero run past symbol %d", maxSymbol)
			}
		}

		max := (2*threshold - 1) - remaining
		var count int32
		if low := int32(br.peek(nbBits - 1)); low < max {
			count = low
			br.skip(nbBits - 1)
		} else {
			count = int32(br.peek(nbBits)) & (2*threshold - 1)
			if count >= threshold {
				count -= max
			}
			br.skip(nbBits)
		}

		count-- // extra accuracy
		if count < 0 {
			// -1 means +1
			remaining += count
		} else {
			remaining -= count
		}
		s.norm[charnum] = int16(count)
		charnum++
		previous0 = count == 0
		if remaining < 1 {
			return 0, corrupt("table distribution overflow")
		}
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
		if br.overread() {
			return 0, corrupt("table description truncated")
		}
	}
	if remaining != 1 {
		return 0, corrupt("table distribution sums to %d, not 1", remaining)
	}
	s.symbolLen = charnum
	if s.symbolLen <= 1 {
		return 0, corrupt("symbolLen (%d) too small", s.symbolLen)
	}
	if br.overread() {
		return 0, corrupt("table description truncated")
	}
	return br.consumed(), s.buildDtable()
}

// decSymbol contains information about a state entry,
// Including the state offset base, the output symbol and
// the number of bits to read for the low part of the destination state.
// Using a composite uint64 is faster than a struct with separate members.
type decSymbol uint64

func newDecSymbol(nbits, addBits uint8, newState uint16, baseline uint32) decSymbol {
	return decSymbol(nbits) | (decSymbol(addBits) << 8) | (decSymbol(newState) << 16) | (decSymbol(baseline) << 32)
}

func (d decSymbol) nbBits() uint8 {
	return uint8(d)
}

// addBits is the symbol until transform is called.
func (d decSymbol) addBits() uint8 {
	return uint8(d >> 8)
}

func (d decSymbol) newState() uint16 {
	return uint16(d >> 16)
}

func (d decSymbol) baselineInt() int {
	return int(d >> 32)
}

func (d *decSymbol) setNBits(nBits uint8) {
	const mask = 0xffffffffffffff00
	*d = (*d & mask) | decSymbol(nBits)
}

func (d *decSymbol) setAddBits(addBits uint8) {
	const mask = 0xffffffffffff00ff
	*d = (*d & mask) | (decSymbol(addBits) << 8)
}

func (d *decSymbol) setNewState(state uint16) {
	const mask = 0xffffffff0000ffff
	*d = (*d & mask) | decSymbol(state)<<16
}

func (d *decSymbol) setExt(addBits uint8, baseline uint32) {
	const mask = 0xffff00ff
	*d = (*d & mask) | (decSymbol(addBits) << 8) | (decSymbol(baseline) << 32)
}

// setRLE will set the decoder til RLE mode.
func (s *fseDecoder) setRLE(symbol decSymbol) {
	s.actualTableLog = 0
	s.maxBits = symbol.addBits()
	s.dt[0] = symbol
	s.preDefined = false
}

// buildDtable will build the decoding table.
func (s *fseDecoder) buildDtable() error {
	tableSize := uint32(1 << s.actualTableLog)
	highThreshold := tableSize - 1
	symbolNext := s.stateTable[:256]

	// Init, lay down lowprob symbols
	{
		for i, v := range s.norm[:s.symbolLen] {
			if v == -1 {
				s.dt[highThreshold].setAddBits(uint8(i))
				highThreshold--
				symbolNext[i] = 1
			} else {
				symbolNext[i] = uint16(v)
			}
		}
	}
	// Spread symbols
	{
		tableMask := tableSize - 1
		step := tableStep(tableSize)
		position := uint32(0)
		for ss, v := range s.norm[:s.symbolLen] {
			for i := 0; i < int(v); i++ {
				s.dt[position].setAddBits(uint8(ss))
				position = (position + step) & tableMask
				for position > highThreshold {
					// lowprob area
					position = (position + step) & tableMask
				}
			}
		}
		if position != 0 {
			// position must reach all cells once, otherwise normalizedCounter is incorrect
			return corrupt("position != 0")
		}
	}

	// Build Decoding table
	{
		tableSize := uint16(1 << s.actualTableLog)
		for u, v := range s.dt[:tableSize] {
			symbol := v.addBits()
			nextState := symbolNext[symbol]
			symbolNext[symbol] = nextState + 1
			nBits := s.actualTableLog - byte(highBit(uint32(nextState)))
			s.dt[u&maxTableMask].setNBits(nBits)
			newState := (nextState << nBits) - tableSize
			if newState > tableSize {
				return corrupt("newState (%d) outside table size (%d)", newState, tableSize)
			}
			if newState == uint16(u) && nBits == 0 {
				return corrupt("newState (%d) == oldState (%d) and no bits", newState, u)
			}
			s.dt[u&maxTableMask].setNewState(newState)
		}
	}
	s.preDefined = false
	return nil
}

// baselines returns the code table used by a sequence table.
func (t tableIndex) baselines() []baseOffset {
	switch t {
	case tableLiteralLengths:
		return llBaselines[:]
	case tableMatchLengths:
		return mlBaselines[:]
	}
	return nil
}

// transform will transform the decoder table into a table usable for
// decoding without having to apply the transformation while decoding.
// The state will contain the base value and the number of bits to read.
func (s *fseDecoder) transform(t tableIndex) error {
	tableSize := uint16(1 << s.actualTableLog)
	base := t.baselines()
	s.maxBits = 0
	for i, v := range s.dt[:tableSize] {
		add := v.addBits()
		var lu baseOffset
		if t == tableOffsets {
			if add > maxOffsetLengthSymbol {
				return corrupt("invalid offset code %d", add)
			}
			lu = baseOffset{baseLine: 1 << add, addBits: add}
		} else {
			if int(add) >= len(base) {
				return corrupt("invalid %v table entry %d, symbol %d >= max (%d)", t, i, add, len(base))
			}
			lu = base[add]
		}
		if lu.addBits > s.maxBits {
			s.maxBits = lu.addBits
		}
		v.setExt(lu.addBits, lu.baseLine)
		s.dt[i] = v
	}
	return nil
}

// rleSymbol returns the single transformed state for an RLE sequence table.
func rleSymbol(t tableIndex, code uint8) (decSymbol, error) {
	if t == tableOffsets {
		if code > maxOffsetLengthSymbol {
			return 0, corrupt("invalid offset code %d", code)
		}
		return newDecSymbol(0, code, 0, 1<<code), nil
	}
	base := t.baselines()
	if int(code) >= len(base) {
		return 0, corrupt("invalid %v code %d", t, code)
	}
	lu := base[code]
	return newDecSymbol(0, lu.addBits, 0, lu.baseLine), nil
}

// fseState is an FSE decoder state walking a table.
type fseState struct {
	dt    []decSymbol
	state decSymbol
}

// init reads the initial state from the bit stream.
func (s *fseState) init(br *bitReader, tableLog uint8, dt []decSymbol) {
	s.dt = dt
	s.state = dt[br.readBits(tableLog)]
}

// next moves to the next state, consuming its low bits.
func (s *fseState) next(br *bitReader) {
	lowBits := uint16(br.readBits(s.state.nbBits()))
	s.state = s.dt[s.state.newState()+lowBits]
}
