package format

import "github.com/pkg/errors"

var (
	// ErrUnknownFormat is returned by New for names it doesn't know.
	ErrUnknownFormat = errors.New("format: unknown format")
	// ErrBufferTooSmall is returned when the output doesn't fit the
	// destination buffer, or a compressed result would exceed
	// CompressedBufferSize.
	ErrBufferTooSmall = errors.New("format: buffer too small")
	// ErrCorrupt is returned when compressed data can't be decoded.
	ErrCorrupt = errors.New("format: corrupt input")
)
