package zstd

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader decompresses a stream of frames.
type Reader struct {
	d  *Decoder
	r  io.Reader
	fd frameDec

	inFrame  bool
	keep     int
	maxBlock int
	buf      []byte
	err      error
}

// NewReader returns a Reader that decompresses r.
func NewReader(r io.Reader, opts *DecoderOptions) (*Reader, error) {
	d, err := NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	return &Reader{d: d, r: r}, nil
}

// Reset discards the Reader's state and makes it read from r.
func (r *Reader) Reset(src io.Reader) {
	r.r = src
	r.inFrame = false
	r.err = nil
	r.fd.hist = r.fd.hist[:0]
	r.fd.emitted = 0
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for {
		if pending := r.fd.hist[r.fd.emitted:]; len(pending) > 0 {
			n := copy(p, pending)
			r.fd.emitted += n
			return n, nil
		}
		if r.err != nil {
			return 0, r.err
		}
		r.err = r.next()
	}
}

// WriteTo writes the decompressed stream to w.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		if pending := r.fd.hist[r.fd.emitted:]; len(pending) > 0 {
			n, err := w.Write(pending)
			r.fd.emitted += n
			total += int64(n)
			if err != nil {
				return total, err
			}
			continue
		}
		if r.err != nil {
			if r.err == io.EOF {
				return total, nil
			}
			return total, r.err
		}
		r.err = r.next()
	}
}

// next decodes the next block, starting a new frame if needed.
func (r *Reader) next() error {
	if !r.inFrame {
		if err := r.startFrame(); err != nil {
			return err
		}
	}
	r.fd.trim(r.keep)

	var hdr [3]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return r.unexpected(err, "block header")
	}
	bh := parseBlockHeader(hdr[:])
	n, err := bh.contentSize(r.maxBlock)
	if err != nil {
		return err
	}
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	r.buf = r.buf[:n]
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return r.unexpected(err, "block content")
	}
	if err := r.fd.decodeBlock(bh, r.buf); err != nil {
		return err
	}
	if !bh.last {
		return nil
	}

	r.inFrame = false
	var sum []byte
	if r.fd.hdr.Checksum {
		var b [4]byte
		if _, err := io.ReadFull(r.r, b[:]); err != nil {
			return r.unexpected(err, "checksum")
		}
		sum = b[:]
	}
	return r.fd.finish(sum, !r.d.o.IgnoreChecksum)
}

// startFrame reads the next frame header, skipping skippable frames. It
// returns io.EOF at a clean end of stream.
func (r *Reader) startFrame() error {
	var b [18]byte
	var magic uint32
	for {
		if _, err := io.ReadFull(r.r, b[:4]); err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return r.unexpected(err, "frame magic")
		}
		magic = binary.LittleEndian.Uint32(b[:])
		if magic&skippableFrameMask != skippableFrameMagic {
			break
		}
		if _, err := io.ReadFull(r.r, b[4:8]); err != nil {
			return r.unexpected(err, "skippable frame size")
		}
		size := int64(binary.LittleEndian.Uint32(b[4:]))
		if _, err := io.CopyN(io.Discard, r.r, size); err != nil {
			return r.unexpected(err, "skippable frame")
		}
	}
	if magic != frameMagic {
		_, err := ReadFrameHeader(b[:4])
		return err
	}
	if _, err := io.ReadFull(r.r, b[4:5]); err != nil {
		return r.unexpected(err, "frame header")
	}
	size := frameHeaderSize(b[4])
	if _, err := io.ReadFull(r.r, b[5:size]); err != nil {
		return r.unexpected(err, "frame header")
	}
	hdr, err := ReadFrameHeader(b[:size])
	if err != nil {
		return err
	}
	if err := r.d.checkHeader(hdr, true); err != nil {
		return err
	}
	dict, err := r.d.dictFor(hdr.DictID)
	if err != nil {
		return err
	}
	r.fd.begin(hdr, dict)
	r.keep = int(hdr.WindowSize) + len(dict.history())
	r.maxBlock = hdr.maxBlockSize()
	r.inFrame = true
	return nil
}

func (r *Reader) unexpected(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(ErrUnexpectedEOF, what)
	}
	return errors.Wrap(err, what)
}
