package pack

// FastHash is a MatchFinder for the fastest compression levels. It uses a
// single 4-byte hash table and takes the first match it finds, skipping
// ahead faster and faster through data that doesn't match (a heuristic
// borrowed from snappy).
type FastHash struct {
	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	// TableBits is the log2 of the hash table size. The default is 14.
	TableBits uint

	// Acceleration multiplies the skip distance. Values above 1 trade
	// compression ratio for speed. The default is 1.
	Acceleration int

	table []uint32
	h     history
}

func (q *FastHash) init() {
	if q.MaxDistance == 0 {
		q.MaxDistance = defaultMaxDistance
	}
	if q.TableBits == 0 {
		q.TableBits = 14
	}
	if q.Acceleration < 1 {
		q.Acceleration = 1
	}
	if len(q.table) != 1<<q.TableBits {
		q.table = make([]uint32, 1<<q.TableBits)
	}
	q.h.maxDistance = q.MaxDistance
}

func (q *FastHash) Reset() {
	q.init()
	for i := range q.table {
		q.table[i] = 0
	}
	q.h.reset()
}

// Prime loads dict into the history window, so that the first block can
// refer back to it.
func (q *FastHash) Prime(dict []byte) {
	q.Reset()
	q.h.prime(dict)
	src := q.h.buf
	for i := 1; i+4 <= len(src); i++ {
		q.table[hash4(load32(src, i), q.TableBits)] = uint32(i)
	}
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *FastHash) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	start, dropped := q.h.add(src)
	rebase(q.table, dropped)
	src = q.h.buf

	nextEmit := start
	s := start
	skip := 32
	for s+4 <= len(src) {
		cur := load32(src, s)
		h := hash4(cur, q.TableBits)
		candidate := int(q.table[h])
		q.table[h] = uint32(s)

		if candidate == 0 || s-candidate > q.MaxDistance || load32(src, candidate) != cur {
			s += (skip >> 5) * q.Acceleration
			skip++
			continue
		}

		end := extendMatch(src, candidate+4, s+4)
		mStart, match := extendBackward(src, s, candidate, nextEmit)
		dst = append(dst, Match{
			Unmatched: mStart - nextEmit,
			Length:    end - mStart,
			Distance:  mStart - match,
		})

		// Index a position near the end of the match, so that the next
		// search has a recent candidate.
		if end-2 > s && end+2 <= len(src) {
			q.table[hash4(load32(src, end-2), q.TableBits)] = uint32(end - 2)
		}
		nextEmit = end
		s = end
		skip = 32
	}

	if nextEmit < len(src) {
		dst = append(dst, Match{
			Unmatched: len(src) - nextEmit,
		})
	}
	return dst
}
