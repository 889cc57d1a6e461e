// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.
// Based on work by Yann Collet, released under BSD License.

// Package zstd implements the Zstandard frame format (RFC 8878): a frame
// codec, block compressor and decompressor, the FSE and Huffman entropy
// stages, dictionaries, and a job-based parallel compression mode.
//
// Compression is driven by a pack.MatchFinder chosen by the compression
// level; Encoder turns its matches into Zstandard blocks.
package zstd

import (
	"math/bits"
)

type blockType uint8

const (
	blockTypeRaw blockType = iota
	blockTypeRLE
	blockTypeCompressed
	blockTypeReserved
)

type literalsBlockType uint8

const (
	literalsBlockRaw literalsBlockType = iota
	literalsBlockRLE
	literalsBlockCompressed
	literalsBlockTreeless
)

const (
	frameMagic          = 0xFD2FB528
	skippableFrameMagic = 0x184D2A50
	skippableFrameMask  = 0xFFFFFFF0
	dictMagic           = 0xEC30A437

	// Magic numbers of the pre-1.0 formats from v0.5 on.
	legacyMagicMin = 0xFD2FB525
	legacyMagicMax = 0xFD2FB527

	// maxCompressedBlockSize is the biggest allowed compressed block size (128KB)
	maxCompressedBlockSize = 128 << 10

	// https://github.com/facebook/zstd/blob/dev/doc/zstd_compression_format.md#literals_section_header
	maxCompressedLiteralSize = 1 << 18
	maxMatchLen              = 131074
	maxSequences             = 0x7f00 + 0xffff

	// zstdMinMatch is the minimum zstd match length.
	zstdMinMatch = 3

	minWindowLog = 10
	maxWindowLog = 31

	// We support slightly less than the reference decoder to be able to
	// use ints on 32 bit archs.
	maxOffsetBits = 30
)

// MinWindowSize and MaxWindowSize bound the encoder's window size.
const (
	MinWindowSize = 1 << minWindowLog
	MaxWindowSize = 1 << 27
)

// DefaultDecoderMaxWindow is the largest window a Decoder accepts unless
// configured otherwise.
const DefaultDecoderMaxWindow = 1 << 27

func highBit(v uint32) uint32 {
	return uint32(bits.Len32(v) - 1)
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
