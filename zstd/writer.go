package zstd

import (
	"context"
	"io"

	pack "github.com/andybalholm/zpack"
	"github.com/pkg/errors"
)

// Writer compresses a stream into a single frame. Serial writers run the
// pack pipeline block by block; with Concurrency above 1, input is
// gathered into batches of jobs that are compressed in parallel.
type Writer struct {
	enc *Encoder
	dst io.Writer

	// serial mode
	pw     pack.Writer
	finder pack.MatchFinder

	// parallel mode
	frame   frameEnc
	pending []byte
	tail    []byte // end of the last batch, primes the next job
	out     []byte
	err     error
}

// NewWriter returns a Writer that compresses to w.
func NewWriter(w io.Writer, opts *EncoderOptions) (*Writer, error) {
	enc, err := NewEncoder(opts)
	if err != nil {
		return nil, err
	}
	zw := &Writer{enc: enc}
	if enc.o.Concurrency <= 1 {
		zw.finder = enc.params.newFinder(enc.o.WindowSize)
		zw.pw = pack.Writer{
			MatchFinder: zw.finder,
			Encoder:     enc,
			BlockSize:   enc.o.blockSize(),
		}
	}
	zw.Reset(w)
	return zw, nil
}

func (w *Writer) parallel() bool {
	return w.enc.o.Concurrency > 1
}

// Reset discards the Writer's state and starts a new frame written to dst.
func (w *Writer) Reset(dst io.Writer) {
	w.dst = dst
	w.err = nil
	if !w.parallel() {
		w.pw.Reset(dst)
		if dict := w.enc.o.Dict.history(); len(dict) > 0 {
			if p, ok := w.finder.(pack.Primer); ok {
				p.Prime(dict)
			}
		}
		return
	}
	w.frame.reset(&w.enc.o, -1)
	w.pending = w.pending[:0]
	w.tail = w.tail[:0]
}

// Write compresses p.
func (w *Writer) Write(p []byte) (int, error) {
	if !w.parallel() {
		n, err := w.pw.Write(p)
		if errors.Is(err, pack.ErrClosed) {
			err = ErrWriterClosed
		}
		return n, err
	}
	if w.err != nil {
		return 0, w.err
	}
	w.pending = append(w.pending, p...)
	batch := w.enc.o.JobSize * w.enc.o.Concurrency
	// Keep the last job back until more input arrives, so Close can mark
	// the final block.
	for len(w.pending) > batch {
		n := batch
		if w.err = w.flushJobs(w.pending[:n], false); w.err != nil {
			return 0, w.err
		}
		w.tail = append(w.tail[:0], w.pending[n-min(n, w.enc.overlap()):n]...)
		w.pending = append(w.pending[:0], w.pending[n:]...)
	}
	return len(p), nil
}

// flushJobs compresses src as a batch of jobs and writes them out.
func (w *Writer) flushJobs(src []byte, last bool) error {
	jobs := w.enc.splitJobs(src, w.tail, !w.frame.wroteHeader, last)
	if err := w.enc.runJobs(context.Background(), jobs); err != nil {
		return err
	}
	out := w.out[:0]
	if !w.frame.wroteHeader {
		out = w.frame.header().appendTo(out)
		w.frame.wroteHeader = true
	}
	for _, j := range jobs {
		out = append(out, j.out...)
	}
	if w.enc.o.Checksum {
		_, _ = w.frame.hasher.Write(src)
	}
	if last {
		out = w.frame.appendChecksum(out)
	}
	w.out = out
	_, err := w.dst.Write(out)
	return err
}

// Close writes the rest of the frame. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if !w.parallel() {
		err := w.pw.Close()
		if errors.Is(err, pack.ErrClosed) {
			err = ErrWriterClosed
		}
		return err
	}
	if w.err != nil {
		return w.err
	}
	if w.err = w.flushJobs(w.pending, true); w.err != nil {
		return w.err
	}
	w.pending = w.pending[:0]
	w.err = ErrWriterClosed
	return nil
}
