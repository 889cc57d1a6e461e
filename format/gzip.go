package format

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const gzipVersion = 1

// Gzip level range.
const (
	GzipMinLevel     = gzip.BestSpeed
	GzipMaxLevel     = gzip.BestCompression
	GzipDefaultLevel = 6
)

// Gzip is the gzip format, a single member per buffer.
type Gzip struct {
	level   int
	writers sync.Pool
}

func NewGzip(level int) *Gzip {
	if level == 0 {
		level = GzipDefaultLevel
	}
	level = min(max(level, GzipMinLevel), GzipMaxLevel)
	g := &Gzip{level: level}
	g.writers.New = func() interface{} {
		// Levels in range never fail.
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	return g
}

func (g *Gzip) Name() string { return "gzip" }

func (g *Gzip) Version() int { return gzipVersion }

func (g *Gzip) KeySuffix() string { return keySuffix(g.Name(), g.level, gzipVersion) }

func (g *Gzip) CompressedBufferSize(n int) int { return streamBound(n) }

func (g *Gzip) Compress(dst, src []byte) (int, error) {
	sw := &sliceWriter{buf: dst[:min(len(dst), g.CompressedBufferSize(len(src)))]}
	w := g.writers.Get().(*gzip.Writer)
	defer g.writers.Put(w)
	w.Reset(sw)
	if _, err := w.Write(src); err != nil {
		return 0, errors.Wrap(err, "gzip")
	}
	if err := w.Close(); err != nil {
		return 0, errors.Wrap(err, "gzip")
	}
	return sw.n, nil
}

func (g *Gzip) Uncompress(dst, src []byte) (int, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "gzip: %v", err)
	}
	defer r.Close()
	return readInto("gzip", r, dst)
}
