package format

import (
	"io"

	"github.com/pkg/errors"
)

// sliceWriter is an io.Writer that fills a fixed buffer and fails once it
// is full.
type sliceWriter struct {
	buf []byte
	n   int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.n:], p)
	w.n += n
	if n < len(p) {
		return n, ErrBufferTooSmall
	}
	return n, nil
}

// streamBound is the buffer size for the stream formats: the input plus
// the overhead of storing it uncompressed.
func streamBound(n int) int {
	return n + n>>10 + 64
}

// readInto reads all of r into dst. It fails with ErrBufferTooSmall if r
// has more data than dst holds.
func readInto(name string, r io.Reader, dst []byte) (int, error) {
	n := 0
	for n < len(dst) {
		m, err := r.Read(dst[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrapf(ErrCorrupt, "%s: %v", name, err)
		}
	}
	var extra [1]byte
	for {
		m, err := r.Read(extra[:])
		if m > 0 {
			return n, errors.Wrapf(ErrBufferTooSmall, "%s: more than %d bytes of content", name, len(dst))
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrapf(ErrCorrupt, "%s: %v", name, err)
		}
	}
}
