package zstd

// literalsHeader holds the parsed literals section header.
type literalsHeader struct {
	typ        literalsBlockType
	regenSize  int
	compSize   int
	fourStream bool
	size       int // header length in bytes
}

// parseLiteralsHeader reads the literals section header at the start of in.
func parseLiteralsHeader(in []byte) (literalsHeader, error) {
	var h literalsHeader
	if len(in) < 1 {
		return h, corrupt("missing literals section")
	}
	h.typ = literalsBlockType(in[0] & 3)
	sizeFormat := (in[0] >> 2) & 3
	switch h.typ {
	case literalsBlockRaw, literalsBlockRLE:
		switch sizeFormat {
		case 0, 2:
			h.size = 1
			h.regenSize = int(in[0] >> 3)
		case 1:
			h.size = 2
			if len(in) < 2 {
				return h, corrupt("literals header truncated")
			}
			h.regenSize = int(in[0]>>4) | int(in[1])<<4
		case 3:
			h.size = 3
			if len(in) < 3 {
				return h, corrupt("literals header truncated")
			}
			h.regenSize = int(in[0]>>4) | int(in[1])<<4 | int(in[2])<<12
		}
	default:
		h.size = 3 + max(int(sizeFormat)-1, 0)
		if len(in) < h.size {
			return h, corrupt("literals header truncated")
		}
		var v uint64
		for i := h.size - 1; i >= 0; i-- {
			v = v<<8 | uint64(in[i])
		}
		v >>= 4
		bitsPer := [4]uint{10, 10, 14, 18}[sizeFormat]
		mask := uint64(1)<<bitsPer - 1
		h.regenSize = int(v & mask)
		h.compSize = int((v >> bitsPer) & mask)
		h.fourStream = sizeFormat != 0
	}
	if h.regenSize > maxCompressedBlockSize {
		return h, corrupt("literals size %d exceeds block size", h.regenSize)
	}
	return h, nil
}

// decodeLiterals decodes the literals section at the start of in and
// returns the literals and the number of bytes used. Raw literals alias in.
func (d *frameDec) decodeLiterals(in []byte) ([]byte, int, error) {
	h, err := parseLiteralsHeader(in)
	if err != nil {
		return nil, 0, err
	}
	in = in[h.size:]
	switch h.typ {
	case literalsBlockRaw:
		if len(in) < h.regenSize {
			return nil, 0, corrupt("raw literals truncated")
		}
		return in[:h.regenSize], h.size + h.regenSize, nil
	case literalsBlockRLE:
		if len(in) < 1 {
			return nil, 0, corrupt("rle literals truncated")
		}
		out := d.litBuf[:0]
		for i := 0; i < h.regenSize; i++ {
			out = append(out, in[0])
		}
		d.litBuf = out
		return out, h.size + 1, nil
	}

	if len(in) < h.compSize {
		return nil, 0, corrupt("compressed literals truncated: want %d, have %d", h.compSize, len(in))
	}
	in = in[:h.compSize]
	if h.typ == literalsBlockCompressed {
		n, err := d.huff.readTable(in)
		if err != nil {
			return nil, 0, err
		}
		d.huffValid = true
		in = in[n:]
	} else if !d.huffValid {
		return nil, 0, corrupt("treeless literals without a previous table")
	}
	out := d.litBuf[:0]
	if h.fourStream {
		out, err = d.huff.decode4X(out, in, h.regenSize)
	} else {
		out, err = d.huff.decode1X(out, in, h.regenSize)
	}
	d.litBuf = out
	if err != nil {
		return nil, 0, err
	}
	return out, h.size + h.compSize, nil
}

// appendLiteralsHeader writes a raw or RLE literals header for size bytes.
func appendLiteralsHeader(dst []byte, typ literalsBlockType, size int) []byte {
	switch {
	case size <= 31:
		return append(dst, byte(typ)|byte(size)<<3)
	case size <= 4095:
		return append(dst, byte(typ)|1<<2|byte(size&15)<<4, byte(size>>4))
	default:
		return append(dst, byte(typ)|3<<2|byte(size&15)<<4, byte(size>>4), byte(size>>12))
	}
}

// appendCompressedLiteralsHeader writes a compressed literals header.
func appendCompressedLiteralsHeader(dst []byte, regen, comp int, fourStream bool) []byte {
	var sizeFormat uint64
	var bitsPer uint
	var n int
	switch {
	case !fourStream:
		sizeFormat, bitsPer, n = 0, 10, 3
	case regen <= 1023 && comp <= 1023:
		sizeFormat, bitsPer, n = 1, 10, 3
	case regen <= 16383 && comp <= 16383:
		sizeFormat, bitsPer, n = 2, 14, 4
	default:
		sizeFormat, bitsPer, n = 3, 18, 5
	}
	v := uint64(literalsBlockCompressed) | sizeFormat<<2 | uint64(regen)<<4 | uint64(comp)<<(4+bitsPer)
	for i := 0; i < n; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// appendLiterals writes the literals section for lits, choosing between raw,
// RLE and Huffman-compressed representations.
func (b *blockEnc) appendLiterals(dst []byte, lits []byte) []byte {
	if len(lits) > 1 && allSame(lits) {
		dst = appendLiteralsHeader(dst, literalsBlockRLE, len(lits))
		return append(dst, lits[0])
	}
	if len(lits) < huffMinLiterals || !b.lit.build(lits) {
		dst = appendLiteralsHeader(dst, literalsBlockRaw, len(lits))
		return append(dst, lits...)
	}
	rawSize := len(lits) + 3
	if b.lit.estimateSize()+6+8 >= rawSize {
		dst = appendLiteralsHeader(dst, literalsBlockRaw, len(lits))
		return append(dst, lits...)
	}

	fourStream := len(lits) > huffSingleStreamMax
	body := b.litScratch[:0]
	body, ok := b.lit.appendTable(body)
	if ok {
		if fourStream {
			body, ok = b.lit.appendStreams4X(body, lits)
		} else {
			body = b.lit.appendStream1X(body, lits)
		}
	}
	b.litScratch = body
	if !ok || len(body)+5 >= rawSize || len(body) >= maxCompressedLiteralSize {
		dst = appendLiteralsHeader(dst, literalsBlockRaw, len(lits))
		return append(dst, lits...)
	}
	dst = appendCompressedLiteralsHeader(dst, len(lits), len(body), fourStream)
	return append(dst, body...)
}

func allSame(b []byte) bool {
	for _, c := range b[1:] {
		if c != b[0] {
			return false
		}
	}
	return true
}
