package format

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/andybalholm/zpack/zstd"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleText(n int, seed int64) []byte {
	words := []string{"asset", "texture", "mesh", "shader", "cooked", "package", "level", "map", "sound", "bank", "the", "of", "and", "to"}
	r := rand.New(rand.NewSource(seed))
	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[r.Intn(len(words))])
		if r.Intn(9) == 0 {
			fmt.Fprintf(&b, " %d\n", r.Intn(1000))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.Bytes()[:n]
}

func sampleRandom(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func sampleInputs() map[string][]byte {
	return map[string][]byte{
		"empty":  {},
		"byte":   {'x'},
		"short":  []byte("hello, hello, hello"),
		"text":   sampleText(300000, 1),
		"random": sampleRandom(100000, 2),
		"zeros":  make([]byte, 200000),
	}
}

func roundTrip(t *testing.T, f Format, in []byte) []byte {
	t.Helper()
	buf := make([]byte, f.CompressedBufferSize(len(in)))
	n, err := f.Compress(buf, in)
	require.NoError(t, err)
	require.LessOrEqual(t, n, len(buf))

	out := make([]byte, len(in))
	m, err := f.Uncompress(out, buf[:n])
	require.NoError(t, err)
	require.Equal(t, len(in), m)
	assert.True(t, bytes.Equal(in, out[:m]))
	return buf[:n]
}

func TestFormatsRoundTrip(t *testing.T) {
	for _, name := range Names() {
		for _, level := range []int{0, 1, 5, 9} {
			f, err := New(name, level)
			require.NoError(t, err)
			for input, in := range sampleInputs() {
				t.Run(fmt.Sprintf("%s/%d/%s", name, level, input), func(t *testing.T) {
					c := roundTrip(t, f, in)
					if input == "text" || input == "zeros" {
						assert.Less(t, len(c), len(in)/2)
					}
				})
			}
		}
	}
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"brotli", "gzip", "lz4", "snappy", "zstd"}, Names())

	f, err := New("ZSTD", 0)
	require.NoError(t, err)
	assert.Equal(t, "zstd", f.Name())

	_, err = New("lzma", 0)
	assert.True(t, errors.Is(err, ErrUnknownFormat), "%v", err)
}

func TestKeySuffix(t *testing.T) {
	cases := []struct {
		name  string
		level int
		want  string
	}{
		{"zstd", 0, "zstd_CL_10_v1"},
		{"zstd", 3, "zstd_CL_3_v1"},
		{"zstd", 99, "zstd_CL_22_v1"},
		{"zstd", -200000, fmt.Sprintf("zstd_CL_%d_v1", zstd.MinLevel)},
		{"lz4", 0, "lz4_CL_1_v1"},
		{"lz4", 40, "lz4_CL_12_v1"},
		{"snappy", 7, "snappy_CL_0_v1"},
		{"brotli", 0, "brotli_CL_6_v1"},
		{"gzip", 0, "gzip_CL_6_v1"},
		{"gzip", -5, "gzip_CL_1_v1"},
	}
	for _, c := range cases {
		f, err := New(c.name, c.level)
		require.NoError(t, err)
		assert.Equal(t, c.want, f.KeySuffix())
		assert.Equal(t, 1, f.Version())
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		cmdline string
		level   int
		ok      bool
	}{
		{"", DefaultLevel, false},
		{"-run=cook -ZstdLevel=5", 5, true},
		{"-zstdlevel=19 -other", 19, true},
		{"-ZSTDLEVEL=-3", -3, true},
		{"-ZstdLevel=+7", 7, true},
		{"-ZstdLevel=0", 0, true},
		{"-ZstdLevel=100", zstd.MaxLevel, true},
		{"-ZstdLevel=-999999", zstd.MinLevel, true},
		{"-ZstdLevel=", DefaultLevel, false},
		{"-ZstdLevel=fast", DefaultLevel, false},
	}
	for _, c := range cases {
		level, ok := ParseLevel(c.cmdline)
		assert.Equal(t, c.level, level, c.cmdline)
		assert.Equal(t, c.ok, ok, c.cmdline)
	}
}

func TestZstdFromCommandLine(t *testing.T) {
	f := ZstdFromCommandLine("-run=cook")
	assert.Equal(t, DefaultLevel, f.Level())
	assert.Equal(t, "zstd_CL_10_v1", f.KeySuffix())

	f = ZstdFromCommandLine("-run=cook -zstdlevel=19")
	assert.Equal(t, "zstd_CL_19_v1", f.KeySuffix())

	// Level 0 keeps its own cache keys and compresses like level 3.
	f = ZstdFromCommandLine("-ZstdLevel=0")
	assert.Equal(t, 0, f.Level())
	assert.Equal(t, "zstd_CL_0_v1", f.KeySuffix())
	in := sampleText(50000, 11)
	assert.Equal(t, roundTrip(t, NewZstd(3), in), roundTrip(t, f, in))
}

func TestCompressBufferTooSmall(t *testing.T) {
	in := sampleRandom(5000, 3)
	for _, name := range Names() {
		f, err := New(name, 0)
		require.NoError(t, err)
		_, err = f.Compress(make([]byte, 100), in)
		assert.True(t, errors.Is(err, ErrBufferTooSmall), "%s: %v", name, err)
	}
}

func TestUncompressBufferTooSmall(t *testing.T) {
	in := sampleText(20000, 4)
	for _, name := range Names() {
		f, err := New(name, 0)
		require.NoError(t, err)
		c := roundTrip(t, f, in)
		_, err = f.Uncompress(make([]byte, len(in)-1), c)
		if name == "lz4" {
			// LZ4 blocks don't record their size.
			assert.Error(t, err)
			continue
		}
		assert.True(t, errors.Is(err, ErrBufferTooSmall), "%s: %v", name, err)
	}
}

func TestUncompressCorrupt(t *testing.T) {
	in := sampleText(20000, 5)
	garbage := []byte("definitely not compressed data")
	// LZ4 and brotli have too little redundancy to reject every
	// corruption; truncation is enough for them.
	for _, name := range []string{"gzip", "snappy", "zstd"} {
		f, err := New(name, 0)
		require.NoError(t, err)
		_, err = f.Uncompress(make([]byte, len(in)), garbage)
		assert.True(t, errors.Is(err, ErrCorrupt), "%s: %v", name, err)
	}
	for _, name := range []string{"brotli", "gzip", "snappy", "zstd"} {
		f, err := New(name, 0)
		require.NoError(t, err)
		c := roundTrip(t, f, in)
		for _, cut := range []int{len(c) / 2, len(c) - 3, len(c) - 1} {
			// A larger destination doesn't hide the missing content.
			for _, size := range []int{len(in), len(in) + 100} {
				_, err = f.Uncompress(make([]byte, size), c[:cut])
				assert.True(t, errors.Is(err, ErrCorrupt), "%s cut at %d of %d: %v", name, cut, len(c), err)
			}
		}
	}
}

func TestZstdFrames(t *testing.T) {
	in := sampleText(100000, 6)
	f := NewZstd(3)
	c := roundTrip(t, f, in)
	hdr, err := zstd.ReadFrameHeader(c)
	require.NoError(t, err)
	assert.True(t, hdr.HasContentSize)
	assert.EqualValues(t, len(in), hdr.ContentSize)

	got, err := zstd.Decompress(c, nil)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, 3, f.Level())
}

func TestBlockFormatsInterop(t *testing.T) {
	in := sampleText(150000, 7)

	for _, level := range []int{1, 3, 8} {
		c := roundTrip(t, NewLZ4(level), in)
		out := make([]byte, len(in))
		n, err := lz4.UncompressBlock(c, out)
		require.NoError(t, err)
		assert.Equal(t, in, out[:n])
	}

	// Blocks from the reference encoders decode too.
	ref := make([]byte, lz4.CompressBlockBound(len(in)))
	var lc lz4.Compressor
	n, err := lc.CompressBlock(in, ref)
	require.NoError(t, err)
	out := make([]byte, len(in))
	m, err := NewLZ4(0).Uncompress(out, ref[:n])
	require.NoError(t, err)
	assert.Equal(t, in, out[:m])

	c := roundTrip(t, NewSnappy(), in)
	got, err := snappy.Decode(nil, c)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	m, err = NewSnappy().Uncompress(out, snappy.Encode(nil, in))
	require.NoError(t, err)
	assert.Equal(t, in, out[:m])
}

func TestLZ4MatchAtEnd(t *testing.T) {
	// Inputs that end inside a long match still compress.
	inputs := map[string][]byte{
		"zeros":      make([]byte, 200000),
		"abcd":       bytes.Repeat([]byte("abcd"), 50000),
		"text+zeros": append(sampleText(1000, 10), make([]byte, 100000)...),
		"short":      []byte("abcdabcdabcdabcdabcd"),
		"tiny":       []byte("abcdabcdabcd"),
	}
	for _, level := range []int{1, 3, 9} {
		for name, in := range inputs {
			t.Run(fmt.Sprintf("%d/%s", level, name), func(t *testing.T) {
				c := roundTrip(t, NewLZ4(level), in)
				out := make([]byte, len(in))
				n, err := lz4.UncompressBlock(c, out)
				require.NoError(t, err)
				assert.Equal(t, in, out[:n])
				if len(in) > 1000 {
					assert.Less(t, len(c), len(in)/50)
				}
			})
		}
	}
}

func TestSnappyLongLiterals(t *testing.T) {
	// Incompressible runs longer than 64K need the wider literal tags.
	in := sampleRandom(300000, 8)
	c := roundTrip(t, NewSnappy(), in)
	got, err := snappy.Decode(nil, c)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestUncompressShortContent(t *testing.T) {
	// A larger destination than needed is fine.
	in := sampleText(5000, 9)
	for _, name := range Names() {
		f, err := New(name, 0)
		require.NoError(t, err)
		buf := make([]byte, f.CompressedBufferSize(len(in)))
		n, err := f.Compress(buf, in)
		require.NoError(t, err)
		out := make([]byte, len(in)+100)
		m, err := f.Uncompress(out, buf[:n])
		require.NoError(t, err, name)
		assert.Equal(t, in, out[:m], name)
	}
}
