package zstd

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EncoderOptions configures compression.
type EncoderOptions struct {
	// Level is the compression level, MinLevel to MaxLevel. Out of range
	// values are clamped; 0 selects DefaultLevel.
	Level int
	// WindowSize is the match window. It must be a power of two between
	// MinWindowSize and MaxWindowSize; 0 picks a size from the level.
	WindowSize int
	// Checksum adds an XXH64-based content checksum to each frame.
	Checksum bool
	// Concurrency is the number of jobs compressed at once. Values above 1
	// enable parallel compression.
	Concurrency int
	// JobSize is the input size of one parallel job (0 = 4 × window, at
	// least 1 MiB).
	JobSize int
	// Dict, if set, is used as a dictionary.
	Dict *Dict
	// Logger receives debug output; nil means silent.
	Logger logrus.FieldLogger
}

// DefaultEncoderOptions returns options for serial compression at the
// default level with checksums on.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{Level: DefaultLevel, Checksum: true, Concurrency: 1}
}

// withDefaults fills in the fields left at zero and validates the rest.
func (o EncoderOptions) withDefaults() (EncoderOptions, error) {
	o.Level = clampLevel(o.Level)
	p := paramsForLevel(o.Level)
	if o.WindowSize == 0 {
		o.WindowSize = 1 << p.windowLog
		if o.Dict != nil {
			// Keep the dictionary content reachable.
			for o.WindowSize < len(o.Dict.content) && o.WindowSize < MaxWindowSize {
				o.WindowSize <<= 1
			}
		}
	}
	if !isPowerOfTwo(o.WindowSize) || o.WindowSize < MinWindowSize || o.WindowSize > MaxWindowSize {
		return o, errors.Wrapf(ErrInvalidWindowSize, "%d", o.WindowSize)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.JobSize <= 0 {
		o.JobSize = max(4*o.WindowSize, 1<<20)
	}
	if o.JobSize < o.blockSize() {
		o.JobSize = o.blockSize()
	}
	if o.Logger == nil {
		o.Logger = silentLogger()
	}
	return o, nil
}

// blockSize is the input size of one block.
func (o EncoderOptions) blockSize() int {
	return min(o.WindowSize, maxCompressedBlockSize)
}

// DecoderOptions configures decompression.
type DecoderOptions struct {
	// MaxWindowSize is the largest frame window accepted
	// (0 = DefaultDecoderMaxWindow).
	MaxWindowSize uint64
	// MaxDecodedSize limits the output of DecodeAll (0 = no limit).
	MaxDecodedSize uint64
	// IgnoreChecksum skips content checksum verification.
	IgnoreChecksum bool
	// Dicts are the dictionaries frames may refer to, by ID. A dictionary
	// with ID 0 is used for frames that don't name one.
	Dicts []*Dict
	// Logger receives debug output; nil means silent.
	Logger logrus.FieldLogger
}

// DefaultDecoderOptions returns options with the default window limit and
// no dictionaries.
func DefaultDecoderOptions() *DecoderOptions {
	return &DecoderOptions{MaxWindowSize: DefaultDecoderMaxWindow}
}

func (o DecoderOptions) withDefaults() DecoderOptions {
	if o.MaxWindowSize == 0 {
		o.MaxWindowSize = DefaultDecoderMaxWindow
	}
	if o.Logger == nil {
		o.Logger = silentLogger()
	}
	return o
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}()

func silentLogger() logrus.FieldLogger {
	return discardLogger
}
