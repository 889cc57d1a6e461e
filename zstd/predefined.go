// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

package zstd

import (
	"sync"
)

type tableIndex uint8

const (
	// indexes for fsePredef and symbolTableX
	tableLiteralLengths tableIndex = 0
	tableOffsets        tableIndex = 1
	tableMatchLengths   tableIndex = 2

	maxLiteralLengthSymbol = 35
	maxOffsetLengthSymbol  = 31
	maxMatchLengthSymbol   = 52

	maxLiteralLengthLog = 9
	maxMatchLengthLog   = 9
	maxOffsetLog        = 8
)

func (t tableIndex) String() string {
	switch t {
	case tableLiteralLengths:
		return "literal lengths"
	case tableOffsets:
		return "offsets"
	case tableMatchLengths:
		return "match lengths"
	}
	return "unknown table"
}

// baseOffset is the decoded value of a code: baseLine plus addBits extra bits.
type baseOffset struct {
	baseLine uint32
	addBits  uint8
}

var llBaselines = [maxLiteralLengthSymbol + 1]baseOffset{
	{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0},
	{8, 0}, {9, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0},
	{16, 1}, {18, 1}, {20, 1}, {22, 1}, {24, 2}, {28, 2}, {32, 3}, {40, 3},
	{48, 4}, {64, 6}, {128, 7}, {256, 8}, {512, 9}, {1024, 10}, {2048, 11},
	{4096, 12}, {8192, 13}, {16384, 14}, {32768, 15}, {65536, 16},
}

var mlBaselines = [maxMatchLengthSymbol + 1]baseOffset{
	{3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0}, {8, 0}, {9, 0}, {10, 0},
	{11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0}, {16, 0}, {17, 0}, {18, 0},
	{19, 0}, {20, 0}, {21, 0}, {22, 0}, {23, 0}, {24, 0}, {25, 0}, {26, 0},
	{27, 0}, {28, 0}, {29, 0}, {30, 0}, {31, 0}, {32, 0}, {33, 0}, {34, 0},
	{35, 1}, {37, 1}, {39, 1}, {41, 1}, {43, 2}, {47, 2}, {51, 3}, {59, 3},
	{67, 4}, {83, 4}, {99, 5}, {131, 7}, {259, 8}, {515, 9}, {1027, 10}, {2051, 11},
	{4099, 12}, {8195, 13}, {16387, 14}, {32771, 15}, {65539, 16},
}

// Default distributions, from RFC 8878 section 3.1.1.3.2.2.
var (
	llDefaultNorm = [maxLiteralLengthSymbol + 1]int16{
		4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
		2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1,
		-1, -1, -1, -1,
	}
	mlDefaultNorm = [maxMatchLengthSymbol + 1]int16{
		1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1,
		-1, -1, -1, -1, -1,
	}
	ofDefaultNorm = [29]int16{
		1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
	}
)

const (
	llDefaultLog = 6
	mlDefaultLog = 6
	ofDefaultLog = 5
)

// llCode returns the literal length code for a literal length.
func llCode(litLength uint32) uint8 {
	const llDeltaCode = 19
	if litLength <= 63 {
		return llCodeTable[litLength&63]
	}
	return uint8(highBit(litLength)) + llDeltaCode
}

var llCodeTable = [64]byte{0, 1, 2, 3, 4, 5, 6, 7,
	8, 9, 10, 11, 12, 13, 14, 15,
	16, 16, 17, 17, 18, 18, 19, 19,
	20, 20, 20, 20, 21, 21, 21, 21,
	22, 22, 22, 22, 22, 22, 22, 22,
	23, 23, 23, 23, 23, 23, 23, 23,
	24, 24, 24, 24, 24, 24, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24}

// mlCode returns the match length code for a match length minus 3.
func mlCode(mlBase uint32) uint8 {
	const mlDeltaCode = 36
	if mlBase <= 127 {
		return mlCodeTable[mlBase&127]
	}
	return uint8(highBit(mlBase)) + mlDeltaCode
}

var mlCodeTable = [128]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
	32, 32, 33, 33, 34, 34, 35, 35, 36, 36, 36, 36, 37, 37, 37, 37,
	38, 38, 38, 38, 38, 38, 38, 38, 39, 39, 39, 39, 39, 39, 39, 39,
	40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40,
	41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41, 41,
	42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42,
	42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42, 42}

// ofCode returns the offset code for an offset value (offset + 3, or a
// repeat code).
func ofCode(offset uint32) uint8 {
	return uint8(highBit(offset))
}

// Predefined tables, built once and shared read-only.
var (
	predefOnce   sync.Once
	fsePredef    [3]fseDecoder
	fsePredefEnc [3]fseEncoder
)

func initPredefined() {
	predefOnce.Do(func() {
		norms := [3][]int16{llDefaultNorm[:], ofDefaultNorm[:], mlDefaultNorm[:]}
		logs := [3]uint8{llDefaultLog, ofDefaultLog, mlDefaultLog}
		for i := range fsePredef {
			dec := &fsePredef[i]
			copy(dec.norm[:], norms[i])
			dec.symbolLen = uint16(len(norms[i]))
			dec.actualTableLog = logs[i]
			if err := dec.buildDtable(); err != nil {
				panic(err)
			}
			if err := dec.transform(tableIndex(i)); err != nil {
				panic(err)
			}
			dec.preDefined = true

			enc := &fsePredefEnc[i]
			enc.setNorm(norms[i], logs[i])
			if err := enc.buildCTable(); err != nil {
				panic(err)
			}
			enc.preDefined = true
		}
	})
}
