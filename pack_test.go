package pack

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData(n int, seed int64) []byte {
	words := []string{"match", "finder", "parser", "hash", "chain", "window", "block", "literal", "offset", "the", "a", "of"}
	r := rand.New(rand.NewSource(seed))
	var b bytes.Buffer
	for b.Len() < n {
		switch r.Intn(20) {
		case 0:
			// Incompressible noise.
			noise := make([]byte, r.Intn(64))
			r.Read(noise)
			b.Write(noise)
		case 1:
			b.Write(bytes.Repeat([]byte{byte(r.Intn(256))}, r.Intn(300)))
		default:
			fmt.Fprintf(&b, "%s ", words[r.Intn(len(words))])
		}
	}
	return b.Bytes()[:n]
}

// decoder rebuilds the input from matches, as an LZ77 decoder would.
type decoder struct {
	out []byte
}

func (d *decoder) decode(t *testing.T, src []byte, matches []Match, maxDistance int) {
	t.Helper()
	pos := 0
	for i, m := range matches {
		require.GreaterOrEqual(t, m.Unmatched, 0, "match %d", i)
		require.LessOrEqual(t, pos+m.Unmatched+m.Length, len(src), "match %d", i)
		d.out = append(d.out, src[pos:pos+m.Unmatched]...)
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		require.GreaterOrEqual(t, m.Length, 4, "match %d", i)
		require.Greater(t, m.Distance, 0, "match %d", i)
		require.LessOrEqual(t, m.Distance, maxDistance, "match %d", i)
		require.LessOrEqual(t, m.Distance, len(d.out), "match %d", i)
		from := len(d.out) - m.Distance
		for j := 0; j < m.Length; j++ {
			d.out = append(d.out, d.out[from+j])
		}
		pos += m.Length
	}
	require.Equal(t, len(src), pos)
}

func finders(maxDistance int) map[string]func() MatchFinder {
	return map[string]func() MatchFinder{
		"fasthash":      func() MatchFinder { return &FastHash{MaxDistance: maxDistance} },
		"fasthash-fast": func() MatchFinder { return &FastHash{MaxDistance: maxDistance, TableBits: 12, Acceleration: 8} },
		"singlehash":    func() MatchFinder { return &SingleHash{MaxDistance: maxDistance, Parser: &GreedyParser{}} },
		"dualhash":      func() MatchFinder { return &DualHash{MaxDistance: maxDistance, Parser: &GreedyParser{}} },
		"dualhash-lazy": func() MatchFinder { return &DualHash{MaxDistance: maxDistance, Parser: &LazyParser{}} },
		"hashchain":     func() MatchFinder { return &HashChain{MaxDistance: maxDistance, SearchLen: 16} },
		"hashchain-min": func() MatchFinder { return &HashChain{MaxDistance: maxDistance, SearchLen: 8, Parser: &LazyParser{MinLength: 6}} },
		"overlap":       func() MatchFinder { return &HashChain{MaxDistance: maxDistance, SearchLen: 32, Parser: &OverlapParser{}} },
	}
}

func TestMatchFinders(t *testing.T) {
	data := testData(400000, 1)
	for _, maxDistance := range []int{1 << 12, 65535, 1 << 20} {
		for name, newFinder := range finders(maxDistance) {
			t.Run(fmt.Sprintf("%s/%d", name, maxDistance), func(t *testing.T) {
				mf := newFinder()
				var d decoder
				var matches []Match
				total := 0
				for _, block := range []int{1, 3, 1000, 65536, 131072, 200000} {
					end := min(total+block, len(data))
					matches = mf.FindMatches(matches[:0], data[total:end])
					d.decode(t, data[total:end], matches, maxDistance)
					total = end
				}
				require.Equal(t, data[:total], d.out)

				// Reset forgets the history.
				mf.Reset()
				d = decoder{}
				matches = mf.FindMatches(matches[:0], data[:50000])
				d.decode(t, data[:50000], matches, maxDistance)
				assert.Equal(t, data[:50000], d.out)
			})
		}
	}
}

func TestMatchFindersCompress(t *testing.T) {
	data := testData(200000, 2)
	for name, newFinder := range finders(65535) {
		matched := 0
		for _, m := range newFinder().FindMatches(nil, data) {
			matched += m.Length
		}
		assert.Greater(t, matched, len(data)/3, name)
	}
}

func TestPrime(t *testing.T) {
	dict := testData(30000, 3)
	src := append(append([]byte{}, dict[10000:14000]...), dict[25000:29000]...)
	for name, newFinder := range finders(65535) {
		t.Run(name, func(t *testing.T) {
			mf := newFinder()
			p, ok := mf.(Primer)
			require.True(t, ok)
			p.Prime(dict)
			matches := mf.FindMatches(nil, src)

			d := decoder{out: append([]byte{}, dict...)}
			d.decode(t, src, matches, 65535)
			assert.Equal(t, src, d.out[len(dict):])

			unmatched := 0
			for _, m := range matches {
				unmatched += m.Unmatched
			}
			assert.Less(t, unmatched, len(src)/10)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for name, newFinder := range finders(65535) {
		assert.Empty(t, newFinder().FindMatches(nil, nil), name)
		assert.Equal(t, []Match{{Unmatched: 3}}, newFinder().FindMatches(nil, []byte("abc")), name)
	}
}

// literalEncoder "encodes" by decoding the matches, so that a Writer's
// output should equal its input.
type literalEncoder struct {
	d      decoder
	t      *testing.T
	blocks int
	last   bool
}

func (e *literalEncoder) Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte {
	start := len(e.d.out)
	e.d.decode(e.t, src, matches, 1<<20)
	e.blocks++
	e.last = lastBlock
	return append(dst, e.d.out[start:]...)
}

func (e *literalEncoder) Reset() {
	e.d = decoder{}
	e.blocks = 0
	e.last = false
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter(t *testing.T) {
	data := testData(300000, 4)
	enc := &literalEncoder{t: t}
	var buf bytes.Buffer
	w := &Writer{Dest: &buf, MatchFinder: &HashChain{SearchLen: 4}, Encoder: enc, BlockSize: 1 << 16}
	for p := data; len(p) > 0; {
		n := min(len(p), 12345)
		k, err := w.Write(p[:n])
		require.NoError(t, err)
		require.Equal(t, n, k)
		p = p[n:]
	}
	require.NoError(t, w.Close())
	assert.Equal(t, data, buf.Bytes())
	assert.Equal(t, 5, enc.blocks)
	assert.True(t, enc.last)

	_, err := w.Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrClosed))

	var again bytes.Buffer
	w.Reset(&again)
	_, err = w.Write(data[:1000])
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, data[:1000], again.Bytes())
	assert.Equal(t, 1, enc.blocks)
}

func TestWriterDestError(t *testing.T) {
	w := &Writer{Dest: failingWriter{}, MatchFinder: &FastHash{}, Encoder: &literalEncoder{t: t}, BlockSize: 1024}
	_, err := w.Write(make([]byte, 5000))
	assert.Error(t, err)
	assert.Error(t, w.Close())
}

func TestTextEncoder(t *testing.T) {
	src := []byte("a<b a<b a<b!")
	matches := []Match{{Unmatched: 4, Length: 7, Distance: 4}, {Unmatched: 1}}
	assert.Equal(t, "a<<b <7,4>!", string(TextEncoder{}.Encode(nil, src, matches, true)))

	var buf bytes.Buffer
	w := &Writer{Dest: &buf, MatchFinder: &HashChain{SearchLen: 8}, Encoder: TextEncoder{}}
	_, err := w.Write([]byte("hello hello hello hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "hello <17,6>", buf.String())
}
