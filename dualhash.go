package pack

const (
	dualTable4Bits = 16
	dualTable8Bits = 17
)

// DualHash is an implementation of the MatchFinder interface
// that uses two hash tables (4-byte and 8-byte).
type DualHash struct {
	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	Parser Parser

	table4 [1 << dualTable4Bits]uint32
	table8 [1 << dualTable8Bits]uint32

	h history
}

func (q *DualHash) init() {
	if q.MaxDistance == 0 {
		q.MaxDistance = defaultMaxDistance
	}
	if q.Parser == nil {
		q.Parser = &LazyParser{}
	}
	q.h.maxDistance = q.MaxDistance
}

func (q *DualHash) Reset() {
	q.table4 = [1 << dualTable4Bits]uint32{}
	q.table8 = [1 << dualTable8Bits]uint32{}
	q.h.reset()
}

// Prime loads dict into the history window.
func (q *DualHash) Prime(dict []byte) {
	q.init()
	q.Reset()
	q.h.prime(dict)
	src := q.h.buf
	for i := 1; i+8 <= len(src); i++ {
		q.table4[hash4(load32(src, i), dualTable4Bits)] = uint32(i)
		q.table8[hash8(load64(src, i), dualTable8Bits)] = uint32(i)
	}
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *DualHash) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	start, dropped := q.h.add(src)
	rebase(q.table4[:], dropped)
	rebase(q.table8[:], dropped)
	return q.Parser.Parse(dst, q, start, len(q.h.buf))
}

func (q *DualHash) Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch {
	src := q.h.buf
	if pos+4 > len(src) {
		return dst
	}

	cur4 := load32(src, pos)
	h4 := hash4(cur4, dualTable4Bits)
	candidate4 := int(q.table4[h4])
	q.table4[h4] = uint32(pos)

	if candidate4 != 0 && candidate4 < pos && pos-candidate4 <= q.MaxDistance && load32(src, candidate4) == cur4 {
		end := extendMatch(src[:max], candidate4+4, pos+4)
		start, match := extendBackward(src, pos, candidate4, min)
		dst = append(dst, AbsoluteMatch{
			Start: start,
			End:   end,
			Match: match,
		})
	}

	if pos+8 > len(src) {
		return dst
	}

	cur8 := load64(src, pos)
	h8 := hash8(cur8, dualTable8Bits)
	candidate8 := int(q.table8[h8])
	q.table8[h8] = uint32(pos)

	if candidate8 != 0 && candidate8 != candidate4 && candidate8 < pos && pos-candidate8 <= q.MaxDistance && load64(src, candidate8) == cur8 {
		end := extendMatch(src[:max], candidate8+8, pos+8)
		start, match := extendBackward(src, pos, candidate8, min)
		dst = append(dst, AbsoluteMatch{
			Start: start,
			End:   end,
			Match: match,
		})
	}

	return dst
}
