package format

import (
	"github.com/andybalholm/zpack/zstd"
	"github.com/pkg/errors"
)

// zstdVersion is bumped when the encoder's output changes.
const zstdVersion = 1

// Zstd is the Zstandard format. Frames carry their content size and no
// checksum.
type Zstd struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstd returns the zstd format at level, clamped to the zstd range.
// Level 0 selects DefaultLevel.
func NewZstd(level int) *Zstd {
	level = clampZstdLevel(level)
	return newZstd(level, level)
}

// ZstdFromCommandLine returns the zstd format a host configures with
// LevelOption on its command line, or DefaultLevel without one. An explicit
// level 0 stays 0 in the key suffix and compresses at level 3, as zstd
// does for level 0.
func ZstdFromCommandLine(commandLine string) *Zstd {
	level, ok := ParseLevel(commandLine)
	if !ok {
		return NewZstd(DefaultLevel)
	}
	if level == 0 {
		return newZstd(0, zstdLevelZero)
	}
	return newZstd(level, level)
}

// newZstd returns the zstd format that reports level and encodes at
// encLevel.
func newZstd(level, encLevel int) *Zstd {
	// Level defaults always validate, and a decoder without
	// dictionaries can't fail.
	enc, _ := zstd.NewEncoder(&zstd.EncoderOptions{Level: encLevel})
	dec, _ := zstd.NewDecoder(nil)
	return &Zstd{level: level, enc: enc, dec: dec}
}

func (z *Zstd) Name() string { return "zstd" }

func (z *Zstd) Version() int { return zstdVersion }

// Level is the compression level in use.
func (z *Zstd) Level() int { return z.level }

func (z *Zstd) KeySuffix() string { return keySuffix(z.Name(), z.level, zstdVersion) }

func (z *Zstd) CompressedBufferSize(n int) int { return zstd.CompressBound(n) }

func (z *Zstd) Compress(dst, src []byte) (int, error) {
	limit := min(len(dst), z.CompressedBufferSize(len(src)))
	// Appending within the capacity writes straight into dst.
	out := z.enc.EncodeAll(src, dst[:0:limit])
	if len(out) > limit {
		return 0, errors.Wrapf(ErrBufferTooSmall, "zstd: %d bytes compressed, room for %d", len(out), limit)
	}
	return len(out), nil
}

func (z *Zstd) Uncompress(dst, src []byte) (int, error) {
	hdr, err := zstd.ReadFrameHeader(src)
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "zstd: %v", err)
	}
	if hdr.HasContentSize && hdr.ContentSize > uint64(len(dst)) {
		return 0, errors.Wrapf(ErrBufferTooSmall, "zstd: content size %d, room for %d", hdr.ContentSize, len(dst))
	}
	out, err := z.dec.DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "zstd: %v", err)
	}
	if len(out) > len(dst) {
		return 0, errors.Wrapf(ErrBufferTooSmall, "zstd: %d bytes decompressed, room for %d", len(out), len(dst))
	}
	return len(out), nil
}
