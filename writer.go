package pack

import (
	"io"

	"github.com/pkg/errors"
)

// A Writer uses a MatchFinder and an Encoder to write compressed data to Dest.
type Writer struct {
	Dest        io.Writer
	MatchFinder MatchFinder
	Encoder     Encoder
	BlockSize   int

	inBuf   []byte
	outBuf  []byte
	matches []Match
	err     error
}

// Write appends p to the pending input, compressing and writing out full
// blocks as they become available. It always consumes all of p unless an
// earlier write to Dest failed.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.BlockSize <= 0 {
		w.BlockSize = 1 << 16
	}

	for len(p) > 0 {
		if len(w.inBuf) == w.BlockSize {
			// Only flush a full block once more input is known to follow,
			// so that the final block can be marked as such by Close.
			w.encodeBlock(false)
			if w.err != nil {
				return n, w.err
			}
		}
		k := min(w.BlockSize-len(w.inBuf), len(p))
		w.inBuf = append(w.inBuf, p[:k]...)
		n += k
		p = p[k:]
	}
	return n, nil
}

func (w *Writer) encodeBlock(lastBlock bool) {
	w.matches = w.MatchFinder.FindMatches(w.matches[:0], w.inBuf)
	w.outBuf = w.Encoder.Encode(w.outBuf[:0], w.inBuf, w.matches, lastBlock)
	w.inBuf = w.inBuf[:0]
	if len(w.outBuf) > 0 {
		_, w.err = w.Dest.Write(w.outBuf)
	}
}

// Close compresses and writes out the remaining input as the final block.
// It does not close Dest.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	w.encodeBlock(true)
	if w.err == nil {
		w.err = ErrClosed
		return nil
	}
	return w.err
}

// Reset discards the Writer's state and makes it equivalent to the result
// of its original state, but writing to newDest instead.
func (w *Writer) Reset(newDest io.Writer) {
	w.Dest = newDest
	w.MatchFinder.Reset()
	w.Encoder.Reset()
	w.inBuf = w.inBuf[:0]
	w.outBuf = w.outBuf[:0]
	w.matches = w.matches[:0]
	w.err = nil
}

// ErrClosed is returned by Write and Close after the Writer has been closed.
var ErrClosed = errors.New("pack: write to closed Writer")
