package zstd

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Decoder decompresses whole buffers. It is safe for concurrent use.
type Decoder struct {
	o      DecoderOptions
	dicts  map[uint32]*Dict
	frames sync.Pool
	log    logrus.FieldLogger
}

// NewDecoder returns a Decoder configured by opts; nil means defaults.
func NewDecoder(opts *DecoderOptions) (*Decoder, error) {
	if opts == nil {
		opts = DefaultDecoderOptions()
	}
	d := &Decoder{
		o:     opts.withDefaults(),
		dicts: make(map[uint32]*Dict),
	}
	for _, dict := range d.o.Dicts {
		if dict == nil {
			continue
		}
		if _, dup := d.dicts[dict.id]; dup {
			return nil, errors.Errorf("zstd: duplicate dictionary ID %d", dict.id)
		}
		d.dicts[dict.id] = dict
	}
	d.log = d.o.Logger.WithField("component", "zstd-decoder")
	d.frames.New = func() interface{} { return new(frameDec) }
	return d, nil
}

// Decompress decodes all frames in src with a Decoder configured by opts.
func Decompress(src []byte, opts *DecoderOptions) ([]byte, error) {
	d, err := NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(src, nil)
}

// dictFor returns the dictionary for a frame's dictionary ID.
func (d *Decoder) dictFor(id uint32) (*Dict, error) {
	dict, ok := d.dicts[id]
	if !ok && id != 0 {
		return nil, errors.Wrapf(ErrUnknownDictionary, "id %d", id)
	}
	return dict, nil
}

// checkHeader validates a frame header against the decoder's limits.
func (d *Decoder) checkHeader(hdr FrameHeader, streaming bool) error {
	if (streaming || !hdr.SingleSegment) && hdr.WindowSize > d.o.MaxWindowSize {
		return errors.Wrapf(ErrWindowSizeExceeded, "frame needs %d bytes, limit %d", hdr.WindowSize, d.o.MaxWindowSize)
	}
	if d.o.MaxDecodedSize > 0 && hdr.HasContentSize && hdr.ContentSize > d.o.MaxDecodedSize {
		return errors.Wrapf(ErrDecoderSizeExceeded, "frame holds %d bytes", hdr.ContentSize)
	}
	return nil
}

// DecodeAll decodes all frames in input and appends the content to dst.
// Skippable frames are skipped. On error, dst holds the content of the
// frames decoded so far. Empty input holds no frames and decodes to
// nothing.
func (d *Decoder) DecodeAll(input, dst []byte) ([]byte, error) {
	if len(input) == 0 {
		return dst, nil
	}
	fd := d.frames.Get().(*frameDec)
	defer d.frames.Put(fd)

	start := len(dst)
	for frame := 0; len(input) > 0; frame++ {
		if n, ok := IsSkippable(input); ok {
			if n > len(input) {
				return dst, errors.Wrap(ErrUnexpectedEOF, "skippable frame")
			}
			d.log.WithField("size", n).Debug("skipping skippable frame")
			input = input[n:]
			continue
		}
		var err error
		input, err = d.decodeFrame(fd, input, uint64(len(dst)-start))
		if err != nil {
			return dst, errors.Wrapf(err, "frame %d", frame)
		}
		dst = append(dst, fd.hist[fd.histMin:]...)
	}
	return dst, nil
}

// decodeFrame decodes the frame at the start of input into fd.hist and
// returns the rest of the input.
func (d *Decoder) decodeFrame(fd *frameDec, input []byte, written uint64) ([]byte, error) {
	hdr, err := ReadFrameHeader(input)
	if err != nil {
		return input, err
	}
	if err := d.checkHeader(hdr, false); err != nil {
		return input, err
	}
	dict, err := d.dictFor(hdr.DictID)
	if err != nil {
		return input, err
	}
	input = input[hdr.HeaderSize:]
	fd.begin(hdr, dict)
	maxBlock := hdr.maxBlockSize()
	for {
		if len(input) < 3 {
			return input, errors.Wrap(ErrUnexpectedEOF, "block header")
		}
		bh := parseBlockHeader(input)
		input = input[3:]
		n, err := bh.contentSize(maxBlock)
		if err != nil {
			return input, err
		}
		if len(input) < n {
			return input, errors.Wrapf(ErrUnexpectedEOF, "block of %d bytes, %d left", n, len(input))
		}
		if err := fd.decodeBlock(bh, input[:n]); err != nil {
			return input, err
		}
		input = input[n:]
		if d.o.MaxDecodedSize > 0 && written+fd.decoded > d.o.MaxDecodedSize {
			return input, ErrDecoderSizeExceeded
		}
		if bh.last {
			break
		}
	}
	var sum []byte
	if hdr.Checksum {
		if len(input) < 4 {
			return input, errors.Wrap(ErrUnexpectedEOF, "checksum")
		}
		sum = input[:4]
		input = input[4:]
	}
	return input, fd.finish(sum, !d.o.IgnoreChecksum)
}
