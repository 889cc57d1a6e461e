package zstd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitStreams(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	type field struct {
		v uint32
		n uint8
	}
	fields := make([]field, 5000)
	for i := range fields {
		n := uint8(r.Intn(33))
		fields[i] = field{v: r.Uint32() & bitMask32[n], n: n}
	}

	var bw bitWriter
	bw.reset([]byte{0xaa})
	for _, f := range fields {
		bw.addBits(f.v, f.n)
	}
	out := bw.close()
	require.Equal(t, byte(0xaa), out[0])

	var br bitReader
	require.NoError(t, br.init(out[1:]))
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		if f.n > 24 {
			assert.Equal(t, f.v, uint32(br.readBits64(f.n)), "field %d", i)
		} else {
			assert.Equal(t, f.v, br.readBits(f.n), "field %d", i)
		}
	}
	assert.True(t, br.finished())
	assert.False(t, br.overread())

	br.readBits(1)
	assert.True(t, br.overread())

	assert.Error(t, br.init(nil))
	assert.Error(t, br.init([]byte{1, 0}))
}

func TestFwdBits(t *testing.T) {
	var fw fwdWriter
	vals := []uint32{5, 0, 1023, 1, 77, 3}
	widths := []uint{3, 1, 10, 1, 7, 2}
	for i, v := range vals {
		fw.add(v, widths[i])
	}
	out := fw.close()
	fr := fwdReader{in: out}
	for i, v := range vals {
		assert.Equal(t, v, fr.read(widths[i]))
	}
	assert.Equal(t, len(out), fr.consumed())
	assert.False(t, fr.overread())
}

// skewed returns n symbols below alphabet with a roughly geometric
// distribution.
func skewed(n, alphabet int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		s := 0
		for s < alphabet-1 && r.Intn(3) != 0 {
			s++
		}
		out[i] = byte(s)
	}
	return out
}

func TestFSENormalizeAndNCount(t *testing.T) {
	cases := []struct {
		alphabet int
		maxLog   uint8
	}{
		{alphabet: 36, maxLog: maxLiteralLengthLog},
		{alphabet: 53, maxLog: maxMatchLengthLog},
		{alphabet: 29, maxLog: maxOffsetLog},
		{alphabet: 4, maxLog: 6},
	}
	for _, c := range cases {
		for _, n := range []int{2, 50, 1000, 100000} {
			in := skewed(n, c.alphabet, int64(n))
			var enc fseEncoder
			enc.histogram(in)
			if enc.maxCount == len(in) {
				continue
			}
			enc.optimalTableLog(len(in), c.maxLog)
			enc.normalizeCount(len(in))

			sum := 0
			for i, v := range enc.norm[:enc.symbolLen] {
				if enc.count[i] > 0 {
					assert.Greater(t, v, int16(0))
				} else {
					assert.Zero(t, v)
				}
				sum += int(v)
			}
			require.Equal(t, 1<<enc.actualTableLog, sum)

			hdr, err := enc.writeCount(nil)
			require.NoError(t, err)
			var dec fseDecoder
			used, err := dec.readNCount(hdr, uint16(c.alphabet-1), c.maxLog)
			require.NoError(t, err)
			assert.Equal(t, len(hdr), used)
			assert.Equal(t, enc.actualTableLog, dec.actualTableLog)
			assert.Equal(t, enc.norm[:enc.symbolLen], dec.norm[:dec.symbolLen])
		}
	}
}

func TestFSESymbols(t *testing.T) {
	in := skewed(20000, 40, 7)
	var enc fseEncoder
	enc.histogram(in)
	enc.optimalTableLog(len(in), 9)
	enc.normalizeCount(len(in))
	require.NoError(t, enc.buildCTable())

	var bw bitWriter
	bw.reset(nil)
	tt := enc.ct.symbolTT
	var c cState
	c.init(&bw, &enc.ct, tt[in[len(in)-1]])
	for i := len(in) - 2; i >= 0; i-- {
		c.encode(tt[in[i]])
	}
	c.flush(enc.actualTableLog)
	out := bw.close()
	assert.Less(t, len(out), len(in))

	var dec fseDecoder
	copy(dec.norm[:], enc.norm[:enc.symbolLen])
	dec.symbolLen = enc.symbolLen
	dec.actualTableLog = enc.actualTableLog
	require.NoError(t, dec.buildDtable())

	var br bitReader
	require.NoError(t, br.init(out))
	var st fseState
	st.init(&br, dec.actualTableLog, dec.dt[:1<<dec.actualTableLog])
	got := make([]byte, len(in))
	for i := range got {
		got[i] = st.state.addBits()
		if i < len(got)-1 {
			st.next(&br)
		}
	}
	assert.Equal(t, in, got)
	assert.True(t, br.finished())
}

func TestPredefinedTables(t *testing.T) {
	initPredefined()
	for _, ti := range []tableIndex{tableLiteralLengths, tableOffsets, tableMatchLengths} {
		dec := &fsePredef[ti]
		enc := &fsePredefEnc[ti]
		assert.True(t, dec.preDefined, "%v", ti)
		assert.True(t, enc.preDefined, "%v", ti)
		assert.Equal(t, dec.actualTableLog, enc.actualTableLog, "%v", ti)
	}
}

func kraftSum(h *huffEncoder) float64 {
	sum := 0.0
	for _, s := range h.syms {
		sum += 1 / float64(uint64(1)<<h.nbBits[s])
	}
	return sum
}

func TestHuffmanLengthLimit(t *testing.T) {
	// Fibonacci counts build the deepest possible tree.
	var h huffEncoder
	a, b := uint32(1), uint32(1)
	for i := 0; i < 40; i++ {
		h.count[i] = a
		a, b = b, a+b
	}
	require.True(t, h.buildCode(huffMaxTableLog))
	assert.LessOrEqual(t, h.tableLog, uint8(huffMaxTableLog))
	assert.InDelta(t, 1.0, kraftSum(&h), 1e-12)

	require.True(t, h.buildCode(8))
	assert.LessOrEqual(t, h.tableLog, uint8(8))
	assert.InDelta(t, 1.0, kraftSum(&h), 1e-12)
}

func TestHuffmanSingleSymbol(t *testing.T) {
	var h huffEncoder
	assert.False(t, h.build([]byte("aaaaaaaa")))
	assert.False(t, h.build(nil))
}

func TestHuffmanRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"text":    testText(5000, 50),
		"skewed":  skewed(3000, 12, 51),
		"binary":  testRandom(4000, 52),
		"twosyms": []byte("abababababbbbbbbaaaaaabababababababbbabababababababa"),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			var h huffEncoder
			require.True(t, h.build(in))
			table, ok := h.appendTable(nil)
			require.True(t, ok)

			var dec huffDecoder
			n, err := dec.readTable(table)
			require.NoError(t, err)
			assert.Equal(t, len(table), n)
			assert.Equal(t, h.tableLog, dec.tableLog)

			one := h.appendStream1X(nil, in)
			got, err := dec.decode1X(nil, one, len(in))
			require.NoError(t, err)
			assert.Equal(t, in, got)

			four, ok := h.appendStreams4X(nil, in)
			require.True(t, ok)
			got, err = dec.decode4X(nil, four, len(in))
			require.NoError(t, err)
			assert.Equal(t, in, got)
		})
	}
}

func TestHuffmanWeightsFSE(t *testing.T) {
	// All 256 symbols present needs FSE-compressed weights.
	var h huffEncoder
	in := make([]byte, 256, 20256)
	for i := range in {
		in[i] = byte(i)
	}
	in = append(in, testText(20000, 54)...)
	require.True(t, h.build(in))
	require.Equal(t, 256, h.symbolLen)
	table, ok := h.appendTable(nil)
	require.True(t, ok)
	assert.Less(t, table[0], byte(128))

	var dec huffDecoder
	_, err := dec.readTable(table)
	require.NoError(t, err)
	stream := h.appendStream1X(nil, in[:1000])
	got, err := dec.decode1X(nil, stream, 1000)
	require.NoError(t, err)
	assert.Equal(t, in[:1000], got)
}

func TestHuffmanCorruptTables(t *testing.T) {
	var dec huffDecoder
	_, err := dec.readTable(nil)
	assert.Error(t, err)
	_, err = dec.readTable([]byte{200, 1, 2})
	assert.Error(t, err)
	// Weights that don't complete a power of two.
	_, err = dec.readTable([]byte{128 + 3, 0x33, 0x30})
	assert.Error(t, err)
}

func TestLiteralsHeader(t *testing.T) {
	for _, size := range []int{0, 31, 32, 4095, 4096, 100000} {
		for _, typ := range []literalsBlockType{literalsBlockRaw, literalsBlockRLE} {
			b := appendLiteralsHeader(nil, typ, size)
			h, err := parseLiteralsHeader(append(b, 0, 0, 0))
			require.NoError(t, err)
			assert.Equal(t, typ, h.typ)
			assert.Equal(t, size, h.regenSize)
			assert.Equal(t, len(b), h.size)
		}
	}
	for _, c := range []struct{ regen, comp int }{{100, 80}, {1000, 700}, {16000, 9000}, {131072, 90000}} {
		b := appendCompressedLiteralsHeader(nil, c.regen, c.comp, c.regen > 255)
		h, err := parseLiteralsHeader(append(b, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, c.regen, h.regenSize)
		assert.Equal(t, c.comp, h.compSize)
		assert.Equal(t, c.regen > 255, h.fourStream)
	}
}

func TestSeqCount(t *testing.T) {
	var b blockEnc
	for _, n := range []int{0, 1, 127, 128, 0x7eff, 0x7f00, 50000} {
		b.sequences = make([]seq, n)
		b.literals = nil
		out, _ := b.encodeContent(nil)
		// Skip the literals header of an empty raw section.
		got, _, err := parseSeqCount(out[1:])
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
