package format

import (
	"bytes"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
)

const brotliVersion = 1

// Brotli quality range. Quality 0 is out of reach, since level 0
// selects the default.
const (
	BrotliMinLevel     = 1
	BrotliMaxLevel     = brotli.BestCompression
	BrotliDefaultLevel = brotli.DefaultCompression
)

// Brotli is the brotli stream format.
type Brotli struct {
	level   int
	writers sync.Pool
}

func NewBrotli(level int) *Brotli {
	if level == 0 {
		level = BrotliDefaultLevel
	}
	level = min(max(level, BrotliMinLevel), BrotliMaxLevel)
	b := &Brotli{level: level}
	b.writers.New = func() interface{} { return brotli.NewWriterLevel(nil, level) }
	return b
}

func (b *Brotli) Name() string { return "brotli" }

func (b *Brotli) Version() int { return brotliVersion }

func (b *Brotli) KeySuffix() string { return keySuffix(b.Name(), b.level, brotliVersion) }

func (b *Brotli) CompressedBufferSize(n int) int { return streamBound(n) }

func (b *Brotli) Compress(dst, src []byte) (int, error) {
	sw := &sliceWriter{buf: dst[:min(len(dst), b.CompressedBufferSize(len(src)))]}
	w := b.writers.Get().(*brotli.Writer)
	defer b.writers.Put(w)
	w.Reset(sw)
	if _, err := w.Write(src); err != nil {
		return 0, errors.Wrap(err, "brotli")
	}
	if err := w.Close(); err != nil {
		return 0, errors.Wrap(err, "brotli")
	}
	return sw.n, nil
}

func (b *Brotli) Uncompress(dst, src []byte) (int, error) {
	in := new(brotliSource)
	in.Reset(src)
	r := brotli.NewReader(in)
	n, err := readInto("brotli", r, dst)
	if err != nil {
		return n, err
	}
	// brotli.Reader reports a clean io.EOF when the input runs out, even
	// mid-stream. A reader that reached the end of the stream rejects one
	// more byte of input; one that didn't tries to decode it.
	in.overrun = true
	var extra [1]byte
	if _, err := r.Read(extra[:]); err == nil || err.Error() != brotliExcessInput {
		return n, errors.Wrap(ErrCorrupt, "brotli: truncated stream")
	}
	return n, nil
}

// brotliExcessInput is the message of the error brotli.Reader returns for
// input after the end of the stream.
const brotliExcessInput = "brotli: excessive input"

// brotliSource is the compressed input of Uncompress. Once overrun is set,
// it yields a single zero byte past the end of src.
type brotliSource struct {
	bytes.Reader
	overrun bool
}

func (s *brotliSource) Read(p []byte) (int, error) {
	n, err := s.Reader.Read(p)
	if err == io.EOF && s.overrun && len(p) > 0 {
		s.overrun = false
		p[0] = 0
		return 1, nil
	}
	return n, err
}
