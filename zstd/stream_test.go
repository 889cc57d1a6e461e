package zstd

import (
	"bytes"
	"io"
	"testing"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChunks(t *testing.T, w io.Writer, data []byte, chunk int) {
	t.Helper()
	for p := data; len(p) > 0; {
		n := min(len(p), chunk)
		written, err := w.Write(p[:n])
		require.NoError(t, err)
		require.Equal(t, n, written)
		p = p[n:]
	}
}

func TestWriter(t *testing.T) {
	cases := map[string]*EncoderOptions{
		"default":  nil,
		"fast":     {Level: 1, Checksum: true},
		"parallel": {Level: 3, Checksum: true, Concurrency: 3, JobSize: 1 << 20},
	}
	data := testText(3<<20+12345, 60)
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, opts)
			require.NoError(t, err)
			writeChunks(t, w, data, 77777)
			require.NoError(t, w.Close())

			_, err = w.Write([]byte("more"))
			assert.True(t, errors.Is(err, ErrWriterClosed), "%v", err)

			hdr, err := ReadFrameHeader(buf.Bytes())
			require.NoError(t, err)
			assert.False(t, hdr.HasContentSize)
			assert.Equal(t, data, decodeOurs(t, buf.Bytes(), nil))
			assert.Equal(t, data, decodeKlauspost(t, buf.Bytes()))

			// Reset starts a fresh frame.
			var again bytes.Buffer
			w.Reset(&again)
			writeChunks(t, w, data[:100000], 4096)
			require.NoError(t, w.Close())
			assert.Equal(t, data[:100000], decodeOurs(t, again.Bytes(), nil))
		})
	}
}

func TestWriterEmpty(t *testing.T) {
	for _, opts := range []*EncoderOptions{nil, {Concurrency: 2}} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, opts)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.NotEmpty(t, buf.Bytes())
		assert.Empty(t, decodeOurs(t, buf.Bytes(), nil))
		assert.Empty(t, decodeKlauspost(t, buf.Bytes()))
	}
}

func TestWriterDict(t *testing.T) {
	content := testRandom(20000, 61)
	dict := NewRawDict(42, content)
	data := append(append([]byte{}, content[2000:15000]...), testText(50000, 62)...)
	for _, concurrency := range []int{1, 2} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, &EncoderOptions{Level: 4, Dict: dict, Concurrency: concurrency, JobSize: 1 << 20})
		require.NoError(t, err)
		writeChunks(t, w, data, 10000)
		require.NoError(t, w.Close())
		assert.Less(t, buf.Len(), 40000)
		assert.Equal(t, data, decodeOurs(t, buf.Bytes(), &DecoderOptions{Dicts: []*Dict{dict}}))
	}
}

func TestReader(t *testing.T) {
	a := testText(400000, 63)
	b := testRandom(100000, 64)
	ca, err := Compress(a, &EncoderOptions{Level: 6, Checksum: true})
	require.NoError(t, err)
	k, err := kzstd.NewWriter(nil, kzstd.WithEncoderLevel(kzstd.SpeedDefault))
	require.NoError(t, err)
	cb := k.EncodeAll(b, nil)

	stream := append([]byte{}, ca...)
	stream = AppendSkippableFrame(stream, 1, []byte("index"))
	stream = append(stream, cb...)
	want := append(append([]byte{}, a...), b...)

	r, err := NewReader(bytes.NewReader(stream), nil)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	r.Reset(bytes.NewReader(stream))
	var out bytes.Buffer
	n, err := r.WriteTo(&out)
	require.NoError(t, err)
	assert.EqualValues(t, len(want), n)
	assert.Equal(t, want, out.Bytes())

	// Small reads.
	r.Reset(bytes.NewReader(ca))
	p := make([]byte, 333)
	var small []byte
	for {
		n, err := r.Read(p)
		small = append(small, p[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, a, small)
}

func TestReaderStreamedFrames(t *testing.T) {
	data := testText(2<<20, 65)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &EncoderOptions{Level: 2, WindowSize: 1 << 16, Checksum: true})
	require.NoError(t, err)
	writeChunks(t, w, data, 1<<16)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, &DecoderOptions{MaxWindowSize: 1 << 16})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReaderErrors(t *testing.T) {
	r, err := NewReader(bytes.NewReader(nil), nil)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Empty(t, got)

	c, err := Compress(testText(50000, 66), nil)
	require.NoError(t, err)
	r.Reset(bytes.NewReader(c[:len(c)-10]))
	_, err = io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrUnexpectedEOF), "%v", err)

	r.Reset(bytes.NewReader([]byte("not zstd data")))
	_, err = io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrMagicMismatch), "%v", err)

	// Single segment frames must fit the window limit when streaming.
	big, err := Compress(testText(1<<17, 67), nil)
	require.NoError(t, err)
	r, err = NewReader(bytes.NewReader(big), &DecoderOptions{MaxWindowSize: 1 << 16})
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrWindowSizeExceeded), "%v", err)
}
