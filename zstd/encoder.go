package zstd

import (
	"context"
	"encoding/binary"
	"hash"
	"sync"

	pack "github.com/andybalholm/zpack"
	"github.com/pierrec/xxHash/xxHash64"
	"github.com/sirupsen/logrus"
)

// Encoder writes Zstandard frames. As a pack.Encoder it turns the matches
// of any MatchFinder into one frame, written block by block; EncodeAll
// compresses whole buffers with the match finder of the configured level.
//
// The zero value is an Encoder for DefaultLevel without checksums.
// EncodeAll is safe for concurrent use; Encode and Reset are not.
type Encoder struct {
	o      EncoderOptions
	params levelParams
	log    logrus.FieldLogger
	once   sync.Once

	frame   frameEnc
	finders sync.Pool
}

// NewEncoder returns an Encoder configured by opts; nil means defaults.
func NewEncoder(opts *EncoderOptions) (*Encoder, error) {
	if opts == nil {
		opts = DefaultEncoderOptions()
	}
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	e := &Encoder{o: o}
	e.once.Do(e.setup)
	return e, nil
}

// Compress compresses src into a single frame with an Encoder configured
// by opts.
func Compress(src []byte, opts *EncoderOptions) ([]byte, error) {
	e, err := NewEncoder(opts)
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(src, make([]byte, 0, CompressBound(len(src)))), nil
}

func (e *Encoder) init() {
	e.once.Do(func() {
		// Zero value: defaults never fail validation.
		e.o, _ = EncoderOptions{}.withDefaults()
		e.setup()
	})
}

func (e *Encoder) setup() {
	e.params = paramsForLevel(e.o.Level)
	e.log = e.o.Logger.WithFields(logrus.Fields{
		"component": "zstd-encoder",
		"level":     e.o.Level,
	})
	e.log.WithField("window", e.o.WindowSize).Debug("encoder configured")
}

// Level returns the effective compression level.
func (e *Encoder) Level() int {
	e.init()
	return e.o.Level
}

// WindowSize returns the window size written into frame headers.
func (e *Encoder) WindowSize() int {
	e.init()
	return e.o.WindowSize
}

// BlockSize returns the input size of one block.
func (e *Encoder) BlockSize() int {
	e.init()
	return e.o.blockSize()
}

// getFinder returns a match finder primed with history.
func (e *Encoder) getFinder(history []byte) pack.MatchFinder {
	f, ok := e.finders.Get().(pack.MatchFinder)
	if !ok {
		f = e.params.newFinder(e.o.WindowSize)
	}
	if p, ok := f.(pack.Primer); ok && len(history) > 0 {
		p.Prime(history)
	} else {
		f.Reset()
	}
	return f
}

func (e *Encoder) putFinder(f pack.MatchFinder) {
	e.finders.Put(f)
}

// Reset starts a new frame for Encode.
func (e *Encoder) Reset() {
	e.init()
	e.frame.reset(&e.o, -1)
}

// Encode appends src as the next block of the current frame to dst,
// preceded by the frame header for the first block. matches must describe
// src; they may refer back into earlier blocks and, with a dictionary, its
// content. Matches a decoder couldn't follow are coded as literals.
func (e *Encoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	e.init()
	if !e.frame.started {
		e.frame.reset(&e.o, -1)
	}
	dst = e.frame.encode(dst, src, matches, lastBlock)
	if lastBlock {
		e.frame.started = false
	}
	return dst
}

// EncodeAll compresses src into a single frame and appends it to dst.
func (e *Encoder) EncodeAll(src, dst []byte) []byte {
	e.init()
	if e.o.Concurrency > 1 && len(src) > e.o.JobSize {
		// Jobs only fail when the context is canceled.
		out, _ := e.encodeParallel(context.Background(), dst, src)
		return out
	}

	var f frameEnc
	f.reset(&e.o, int64(len(src)))
	finder := e.getFinder(e.o.Dict.history())
	defer e.putFinder(finder)

	if len(src) == 0 {
		return f.encode(dst, nil, nil, true)
	}
	bs := e.o.blockSize()
	var matches []pack.Match
	for len(src) > 0 {
		n := min(bs, len(src))
		matches = finder.FindMatches(matches[:0], src[:n])
		dst = f.encode(dst, src[:n], matches, n == len(src))
		src = src[n:]
	}
	return dst
}

// frameEnc writes one frame: the header, then blocks, then the checksum.
type frameEnc struct {
	o           *EncoderOptions
	block       blockEnc
	hasher      hash.Hash64
	contentSize int64
	history     int
	started     bool
	wroteHeader bool
}

// reset starts a frame. contentSize is -1 if unknown.
func (f *frameEnc) reset(o *EncoderOptions, contentSize int64) {
	f.o = o
	f.contentSize = contentSize
	f.history = len(o.Dict.history())
	f.block.init(o.Dict.reps(), o.WindowSize)
	f.started = true
	f.wroteHeader = false
	if o.Checksum {
		if f.hasher == nil {
			f.hasher = xxHash64.New(0)
		}
		f.hasher.Reset()
	}
}

// header returns the frame header.
func (f *frameEnc) header() FrameHeader {
	h := FrameHeader{
		WindowSize: uint64(f.o.WindowSize),
		Checksum:   f.o.Checksum,
	}
	if f.o.Dict != nil {
		h.DictID = f.o.Dict.id
	}
	if f.contentSize >= 0 {
		h.HasContentSize = true
		h.ContentSize = uint64(f.contentSize)
		h.SingleSegment = f.contentSize <= int64(f.o.WindowSize)
	}
	return h
}

// encode appends a block, with the header before the first one and the
// checksum after the last one.
func (f *frameEnc) encode(dst, src []byte, matches []pack.Match, last bool) []byte {
	if !f.wroteHeader {
		dst = f.header().appendTo(dst)
		f.wroteHeader = true
	}
	if f.o.Checksum {
		_, _ = f.hasher.Write(src)
	}
	dst = f.block.appendBlock(dst, src, matches, last, f.history)
	f.history += len(src)
	if last {
		dst = f.appendChecksum(dst)
	}
	return dst
}

func (f *frameEnc) appendChecksum(dst []byte) []byte {
	if !f.o.Checksum {
		return dst
	}
	return binary.LittleEndian.AppendUint32(dst, uint32(f.hasher.Sum64()))
}

// CompressBound returns the largest frame the encoder produces for n bytes
// of input.
func CompressBound(n int) int {
	bound := n + n>>8
	if n < 128<<10 {
		bound += (128<<10 - n) >> 11
	}
	return bound
}
