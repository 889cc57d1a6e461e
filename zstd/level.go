package zstd

import (
	pack "github.com/andybalholm/zpack"
)

// Compression level range.
const (
	MinLevel     = -131072
	MaxLevel     = 22
	DefaultLevel = 10
)

// clampLevel maps 0 to DefaultLevel and clamps to [MinLevel, MaxLevel].
func clampLevel(level int) int {
	switch {
	case level == 0:
		return DefaultLevel
	case level < MinLevel:
		return MinLevel
	case level > MaxLevel:
		return MaxLevel
	}
	return level
}

// levelParams is what a compression level selects.
type levelParams struct {
	windowLog uint
	// newFinder returns a match finder that looks back at most window bytes.
	newFinder func(window int) pack.MatchFinder
}

func paramsForLevel(level int) levelParams {
	switch {
	case level < 1:
		// Negative levels skip faster through data that doesn't match.
		accel := min(1-level, 1<<16)
		return levelParams{19, func(w int) pack.MatchFinder {
			return &pack.FastHash{MaxDistance: w, TableBits: 13, Acceleration: accel}
		}}
	case level == 1:
		return levelParams{19, func(w int) pack.MatchFinder {
			return &pack.FastHash{MaxDistance: w, TableBits: 14}
		}}
	case level == 2:
		return levelParams{20, func(w int) pack.MatchFinder {
			return &pack.FastHash{MaxDistance: w, TableBits: 16}
		}}
	case level == 3:
		return levelParams{20, func(w int) pack.MatchFinder {
			return &pack.SingleHash{MaxDistance: w, Parser: &pack.GreedyParser{}}
		}}
	case level == 4:
		return levelParams{20, func(w int) pack.MatchFinder {
			return &pack.DualHash{MaxDistance: w, Parser: &pack.GreedyParser{}}
		}}
	case level == 5:
		return levelParams{21, func(w int) pack.MatchFinder {
			return &pack.DualHash{MaxDistance: w, Parser: &pack.LazyParser{}}
		}}
	case level <= 12:
		// 6..12: chain depth 2, 4, ... 128
		search := 1 << (level - 5)
		return levelParams{21, func(w int) pack.MatchFinder {
			return &pack.HashChain{MaxDistance: w, SearchLen: search, Parser: &pack.LazyParser{}}
		}}
	case level <= 16:
		search := 128 * (level - 11)
		return levelParams{22, func(w int) pack.MatchFinder {
			return &pack.HashChain{MaxDistance: w, SearchLen: search, Parser: &pack.LazyParser{MinLength: 5}}
		}}
	default:
		// 17..22 add overlap parsing, which tries more match combinations.
		search := 1024 << ((level - 17) / 2)
		return levelParams{22, func(w int) pack.MatchFinder {
			return &pack.HashChain{MaxDistance: w, SearchLen: search, Parser: &pack.OverlapParser{}}
		}}
	}
}

// NewMatchFinder returns the match finder that level uses, looking back
// as far as the level's default window.
func NewMatchFinder(level int) pack.MatchFinder {
	p := paramsForLevel(clampLevel(level))
	return p.newFinder(1 << p.windowLog)
}
