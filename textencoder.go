package pack

import "strconv"

// A TextEncoder is an Encoder that shows the LZ77 parse in readable form:
// literals are copied through and each match becomes <length,distance>.
// A literal '<' is written as "<<" so that it can't be taken for a match.
type TextEncoder struct{}

func (TextEncoder) Reset() {}

func (TextEncoder) Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte {
	pos := 0
	for _, m := range matches {
		dst = appendTextLiterals(dst, src[pos:pos+m.Unmatched])
		pos += m.Unmatched
		if m.Length > 0 {
			dst = append(dst, '<')
			dst = strconv.AppendInt(dst, int64(m.Length), 10)
			dst = append(dst, ',')
			dst = strconv.AppendInt(dst, int64(m.Distance), 10)
			dst = append(dst, '>')
			pos += m.Length
		}
	}
	return appendTextLiterals(dst, src[pos:])
}

func appendTextLiterals(dst, lit []byte) []byte {
	for _, c := range lit {
		if c == '<' {
			dst = append(dst, '<')
		}
		dst = append(dst, c)
	}
	return dst
}
