// Package format exposes compression formats behind the buffer-to-buffer
// interface a host uses to store compressed assets: the caller provides
// the output buffer, sized with CompressedBufferSize when compressing and
// to the known uncompressed size when decompressing.
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/zpack/zstd"
	"github.com/pkg/errors"
)

// A Format compresses and decompresses whole buffers.
type Format interface {
	// Name is the format's registered name.
	Name() string
	// Version changes whenever the compressed output for a given input
	// may change.
	Version() int
	// KeySuffix identifies the format, level and version in cache keys.
	KeySuffix() string
	// CompressedBufferSize returns the buffer size Compress needs for n
	// bytes of input.
	CompressedBufferSize(n int) int
	// Compress compresses src into dst and returns the compressed size.
	// It fails with ErrBufferTooSmall if the result doesn't fit in dst.
	Compress(dst, src []byte) (int, error)
	// Uncompress decompresses src into dst and returns the decompressed
	// size. It fails with ErrBufferTooSmall if the content doesn't fit.
	Uncompress(dst, src []byte) (int, error)
}

var constructors = map[string]func(level int) Format{
	"zstd":   func(level int) Format { return NewZstd(level) },
	"lz4":    func(level int) Format { return NewLZ4(level) },
	"snappy": func(level int) Format { return NewSnappy() },
	"brotli": func(level int) Format { return NewBrotli(level) },
	"gzip":   func(level int) Format { return NewGzip(level) },
}

// New returns the format called name. Level 0 selects the format's
// default level.
func New(name string, level int) (Format, error) {
	c, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
	return c(level), nil
}

// Names lists the registered formats in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func keySuffix(name string, level, version int) string {
	return fmt.Sprintf("%s_CL_%d_v%d", name, level, version)
}

// LevelOption is the command-line option that sets the zstd level.
const LevelOption = "-ZstdLevel="

// ParseLevel looks for LevelOption, in any case, in a command line and
// returns the level it sets, clamped to the zstd range. Level 0 is
// returned as is. It returns DefaultLevel and false if the option is
// missing or has no number.
func ParseLevel(commandLine string) (int, bool) {
	lower := strings.ToLower(commandLine)
	i := strings.Index(lower, strings.ToLower(LevelOption))
	if i < 0 {
		return DefaultLevel, false
	}
	rest := commandLine[i+len(LevelOption):]
	end := 0
	for end < len(rest) && (rest[end] >= '0' && rest[end] <= '9' || end == 0 && (rest[0] == '-' || rest[0] == '+')) {
		end++
	}
	level, err := strconv.Atoi(rest[:end])
	if err != nil {
		return DefaultLevel, false
	}
	return min(max(level, zstd.MinLevel), zstd.MaxLevel), true
}

// DefaultLevel is the zstd level used when none is configured.
const DefaultLevel = zstd.DefaultLevel

// zstdLevelZero is the level zstd compresses at when a host asks for
// level 0.
const zstdLevelZero = 3

func clampZstdLevel(level int) int {
	if level == 0 {
		return DefaultLevel
	}
	return min(max(level, zstd.MinLevel), zstd.MaxLevel)
}
