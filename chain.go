package pack

// HashChain is an implementation of the MatchFinder interface that
// uses hash chaining to find longer matches.
type HashChain struct {
	// SearchLen is how many entries to examine on the hash chain.
	// The default is 1.
	SearchLen int

	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	Parser Parser

	table [1 << chainTableBits]uint32

	// chain[i] is the previous position with the same hash as position i.
	chain []uint32
	h     history
}

const chainTableBits = 17

func (q *HashChain) init() {
	if q.MaxDistance == 0 {
		q.MaxDistance = defaultMaxDistance
	}
	if q.SearchLen == 0 {
		q.SearchLen = 1
	}
	if q.Parser == nil {
		q.Parser = &LazyParser{}
	}
	q.h.maxDistance = q.MaxDistance
}

func (q *HashChain) Reset() {
	q.table = [1 << chainTableBits]uint32{}
	q.chain = q.chain[:0]
	q.h.reset()
}

// Prime loads dict into the history window.
func (q *HashChain) Prime(dict []byte) {
	q.init()
	q.Reset()
	q.h.prime(dict)
	q.index()
}

// index extends the chain to cover every position that has 4 bytes
// available.
func (q *HashChain) index() {
	src := q.h.buf
	chain := q.chain
	if len(chain) == 0 {
		// Position 0 never starts a chain.
		chain = append(chain, 0)
	}
	for i := len(chain); i+4 <= len(src); i++ {
		h := hash4(load32(src, i), chainTableBits)
		chain = append(chain, q.table[h])
		q.table[h] = uint32(i)
	}
	q.chain = chain
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *HashChain) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	start, dropped := q.h.add(src)
	if dropped > 0 {
		rebase(q.table[:], dropped)
		if dropped < len(q.chain) {
			n := copy(q.chain, q.chain[dropped:])
			q.chain = q.chain[:n]
			rebase(q.chain, dropped)
		} else {
			q.chain = q.chain[:0]
		}
	}
	q.index()
	return q.Parser.Parse(dst, q, start, len(q.h.buf))
}

func (q *HashChain) Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch {
	src := q.h.buf
	if pos >= len(q.chain) || pos+4 > len(src) {
		return dst
	}
	searchSeq := load32(src, pos)

	var length int
	candidate := pos
	for i := 0; i < q.SearchLen; i++ {
		candidate = int(q.chain[candidate])
		if candidate == 0 || pos-candidate > q.MaxDistance {
			break
		}
		if load32(src, candidate) != searchSeq {
			continue
		}

		end := extendMatch(src[:max], candidate+4, pos+4)
		start, match := extendBackward(src, pos, candidate, min)
		if end-start > length {
			dst = append(dst, AbsoluteMatch{
				Start: start,
				End:   end,
				Match: match,
			})
			length = end - start
		}
	}

	return dst
}
