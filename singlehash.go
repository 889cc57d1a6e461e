package pack

// SingleHash is an implementation of the MatchFinder interface
// that uses a simple 4-byte hash to find matches.
type SingleHash struct {
	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	Parser Parser

	table [singleTableSize]uint32
	h     history
}

const (
	singleTableBits = 15
	singleTableSize = 1 << singleTableBits
)

func (q *SingleHash) init() {
	if q.MaxDistance == 0 {
		q.MaxDistance = defaultMaxDistance
	}
	if q.Parser == nil {
		q.Parser = &GreedyParser{}
	}
	q.h.maxDistance = q.MaxDistance
}

func (q *SingleHash) Reset() {
	q.table = [singleTableSize]uint32{}
	q.h.reset()
}

// Prime loads dict into the history window.
func (q *SingleHash) Prime(dict []byte) {
	q.init()
	q.Reset()
	q.h.prime(dict)
	src := q.h.buf
	for i := 1; i+4 <= len(src); i++ {
		q.table[hash4(load32(src, i), singleTableBits)] = uint32(i)
	}
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *SingleHash) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	start, dropped := q.h.add(src)
	rebase(q.table[:], dropped)
	return q.Parser.Parse(dst, q, start, len(q.h.buf))
}

func (q *SingleHash) Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch {
	src := q.h.buf
	if pos+4 > len(src) {
		return dst
	}

	cur := load32(src, pos)
	h := hash4(cur, singleTableBits)
	candidate := int(q.table[h])
	q.table[h] = uint32(pos)

	if candidate == 0 || candidate >= pos || pos-candidate > q.MaxDistance || load32(src, candidate) != cur {
		return dst
	}

	end := extendMatch(src[:max], candidate+4, pos+4)
	start, match := extendBackward(src, pos, candidate, min)
	return append(dst, AbsoluteMatch{
		Start: start,
		End:   end,
		Match: match,
	})
}
