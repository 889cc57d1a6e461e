package zstd

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// A Dict is a Zstandard dictionary: content that seeds the match window,
// and for formatted dictionaries, entropy tables and repeat offsets.
type Dict struct {
	id         uint32
	content    []byte
	offsets    [3]int
	hasEntropy bool
	huff       huffDecoder
	seq        [3]fseDecoder // by tableIndex
}

// ID returns the dictionary ID; 0 for raw content dictionaries.
func (d *Dict) ID() uint32 {
	return d.id
}

// Content returns the dictionary content.
func (d *Dict) Content() []byte {
	return d.content
}

// NewRawDict returns a dictionary of plain content. Frames compressed with
// it carry id, unless id is 0.
func NewRawDict(id uint32, content []byte) *Dict {
	return &Dict{id: id, content: content, offsets: defaultReps}
}

// LoadDict parses a dictionary. Data without the dictionary magic number
// is loaded as raw content.
func LoadDict(b []byte) (*Dict, error) {
	if len(b) < 8 || binary.LittleEndian.Uint32(b) != dictMagic {
		return NewRawDict(0, b), nil
	}
	d := &Dict{id: binary.LittleEndian.Uint32(b[4:]), hasEntropy: true}
	in := b[8:]

	n, err := d.huff.readTable(in)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDictionary, "literals table: %v", err)
	}
	in = in[n:]

	for _, t := range [3]tableIndex{tableOffsets, tableMatchLengths, tableLiteralLengths} {
		maxSym := [3]uint16{maxLiteralLengthSymbol, maxOffsetLengthSymbol, maxMatchLengthSymbol}[t]
		maxLog := [3]uint8{maxLiteralLengthLog, maxOffsetLog, maxMatchLengthLog}[t]
		dec := &d.seq[t]
		n, err := dec.readNCount(in, maxSym, maxLog)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidDictionary, "%v table: %v", t, err)
		}
		if err := dec.transform(t); err != nil {
			return nil, errors.Wrapf(ErrInvalidDictionary, "%v table: %v", t, err)
		}
		in = in[n:]
	}

	if len(in) < 12 {
		return nil, errors.Wrap(ErrInvalidDictionary, "repeat offsets truncated")
	}
	d.content = in[12:]
	for i := range d.offsets {
		r := int(binary.LittleEndian.Uint32(in[4*i:]))
		if r == 0 || r > len(d.content) {
			return nil, errors.Wrapf(ErrInvalidDictionary, "repeat offset %d is %d with %d bytes of content", i, r, len(d.content))
		}
		d.offsets[i] = r
	}
	return d, nil
}

// reps returns the repeat offsets a frame using d starts with.
func (d *Dict) reps() [3]int {
	if d == nil {
		return defaultReps
	}
	return d.offsets
}

// history returns the content a frame using d may refer to.
func (d *Dict) history() []byte {
	if d == nil {
		return nil
	}
	return d.content
}
