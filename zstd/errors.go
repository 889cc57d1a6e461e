package zstd

import "github.com/pkg/errors"

// Sentinel errors. Decoding errors are wrapped with context; use errors.Is
// to test for them.
var (
	// ErrMagicMismatch is returned when the input does not start with a frame magic number.
	ErrMagicMismatch = errors.New("zstd: invalid magic number")
	// ErrLegacyFrame is returned for frames in a pre-1.0 format.
	ErrLegacyFrame = errors.New("zstd: legacy frame format not supported")
	// ErrUnexpectedEOF is returned when a frame or block is truncated.
	ErrUnexpectedEOF = errors.New("zstd: unexpected end of input")
	// ErrReservedBlockType is returned when a block uses the reserved block type.
	ErrReservedBlockType = errors.New("zstd: reserved block type")
	// ErrCorrupt is returned for malformed compressed data.
	ErrCorrupt = errors.New("zstd: corrupt input")
	// ErrBlockTooLarge is returned when a block exceeds the maximum block size.
	ErrBlockTooLarge = errors.New("zstd: block too large")
	// ErrWindowSizeExceeded is returned when a frame needs a larger window
	// than the decoder allows.
	ErrWindowSizeExceeded = errors.New("zstd: window size exceeded")
	// ErrDecoderSizeExceeded is returned when the decoded output would be
	// larger than the decoder allows.
	ErrDecoderSizeExceeded = errors.New("zstd: decompressed size exceeds limit")
	// ErrFrameSizeMismatch is returned when a frame's content size does not
	// match the decoded output.
	ErrFrameSizeMismatch = errors.New("zstd: frame content size mismatch")
	// ErrChecksumMismatch is returned when the content checksum doesn't match.
	ErrChecksumMismatch = errors.New("zstd: content checksum mismatch")
	// ErrUnknownDictionary is returned when a frame refers to a dictionary
	// the decoder doesn't have.
	ErrUnknownDictionary = errors.New("zstd: unknown dictionary")
	// ErrInvalidDictionary is returned when dictionary data can't be parsed.
	ErrInvalidDictionary = errors.New("zstd: invalid dictionary")
	// ErrInvalidWindowSize is returned for unsupported encoder window sizes.
	ErrInvalidWindowSize = errors.New("zstd: invalid window size")
	// ErrTrainingFailed is returned when BuildDict has no usable samples.
	ErrTrainingFailed = errors.New("zstd: dictionary training failed")
	// ErrWriterClosed is returned when writing to a closed Writer.
	ErrWriterClosed = errors.New("zstd: writer closed")
)

// corrupt wraps ErrCorrupt with a description of what was wrong.
func corrupt(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupt, format, args...)
}
