package pack

// An OverlapParser looks for overlapping matches and chooses the best ones,
// using an algorithm based on
// https://fastcompression.blogspot.com/2011/12/advanced-parsing-strategies.html
type OverlapParser struct {
	// MinLength is the shortest match that will be used. The default is 4.
	MinLength int

	// Score is used to choose the best match. If it is nil,
	// the length of the match is used as its score.
	Score func(AbsoluteMatch) int

	matchCache []AbsoluteMatch
	setCache   []matchSet
}

func matchLength(m AbsoluteMatch) int {
	return m.End - m.Start
}

// A matchSet is the match chosen at one position, along with the other
// candidates found there (in case the choice needs to be trimmed later).
type matchSet struct {
	AbsoluteMatch
	options []AbsoluteMatch
}

// choose picks the best of ms.options, limited to the range min..max.
func (ms *matchSet) choose(min, max int, score func(AbsoluteMatch) int) {
	ms.AbsoluteMatch = AbsoluteMatch{}
	best := 0

	for _, m := range ms.options {
		if m.Start < min {
			m.Match += min - m.Start
			m.Start = min
		}
		if m.End > max {
			m.End = max
		}
		if m.End <= m.Start {
			continue
		}
		if s := score(m); s > best {
			ms.AbsoluteMatch = m
			best = s
		}
	}
}

func (p *OverlapParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	minLength := p.MinLength
	if minLength == 0 {
		minLength = defaultMinLength
	}
	score := p.Score
	if score == nil {
		score = matchLength
	}

	s := start
	nextEmit := start
	list := p.setCache[:0]

	for s < end {
		list = list[:0]

		p.matchCache = src.Search(p.matchCache[:0], s, nextEmit, end)
		m := matchSet{options: p.matchCache}
		m.choose(nextEmit, end, score)
		if matchLength(m.AbsoluteMatch) < minLength {
			s++
			continue
		}
		list = append(list, m)

		// Keep looking for better matches that overlap the end of the
		// previous one.
		for m.End-2 > m.Start {
			n := len(p.matchCache)
			p.matchCache = src.Search(p.matchCache, m.End-2, m.Start, end)
			next := matchSet{options: p.matchCache[n:]}
			next.choose(m.Start, end, score)
			if score(next.AbsoluteMatch) <= score(m.AbsoluteMatch) {
				break
			}
			m = next
			list = append(list, m)
		}

		list = resolveOverlaps(list, nextEmit, end, minLength, score)

		for _, m := range list {
			dst = appendAbsolute(dst, m.AbsoluteMatch, nextEmit)
			nextEmit = m.End
		}
		s = nextEmit
	}

	if nextEmit < end {
		dst = append(dst, Match{
			Unmatched: end - nextEmit,
		})
	}
	p.setCache = list[:0]
	return dst
}

// resolveOverlaps takes a series of overlapping matches, each scoring higher
// than the one before it, and trims them so that they don't overlap,
// dropping the ones that become too short. It works from the end backward.
func resolveOverlaps(list []matchSet, nextEmit, end, minLength int, score func(AbsoluteMatch) int) []matchSet {
	for i := len(list) - 2; i >= 0; i-- {
		cur, next := &list[i], &list[i+1]
		if matchLength(cur.AbsoluteMatch) > matchLength(next.AbsoluteMatch) {
			// next has already been trimmed to something shorter than cur,
			// so cur keeps its bytes and next gives them up.
			if cur.End > next.Start {
				limit := end
				if i+2 < len(list) {
					limit = list[i+2].Start
				}
				next.choose(cur.End, limit, score)
			}
			if matchLength(next.AbsoluteMatch) < minLength {
				list = append(list[:i+1], list[i+2:]...)
				if i < len(list)-1 {
					// Check cur against its new neighbor.
					i++
				}
			}
		} else {
			if cur.End > next.Start {
				cur.choose(nextEmit, next.Start, score)
			}
			if matchLength(cur.AbsoluteMatch) < minLength {
				list = append(list[:i], list[i+1:]...)
			}
		}
	}

	// The backward pass leaves each match ending at or before the start of
	// the next; enforce it for the first one against nextEmit as well.
	out := list[:0]
	pos := nextEmit
	for _, m := range list {
		if m.Start < pos {
			m.choose(pos, m.End, score)
			if matchLength(m.AbsoluteMatch) < minLength {
				continue
			}
		}
		out = append(out, m)
		pos = m.End
	}
	return out
}
