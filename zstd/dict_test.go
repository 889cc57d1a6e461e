package zstd

import (
	"encoding/binary"
	"fmt"
	"testing"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecords returns n small JSON documents that share most of their
// structure.
func testRecords(n, seed int) [][]byte {
	statuses := []string{"active", "suspended", "pending", "deleted"}
	roles := []string{`["reader"]`, `["reader","writer"]`, `["admin","reader","writer"]`}
	out := make([][]byte, n)
	for i := range out {
		k := i + seed
		out[i] = []byte(fmt.Sprintf(
			`{"id":%d,"name":"user-%d","email":"user%d@example.com","status":%q,"roles":%s,"created":"2024-%02d-%02dT10:%02d:00Z","preferences":{"theme":"dark","language":"en-US","notifications":true}}`,
			k*7919, k, k, statuses[k%len(statuses)], roles[k%len(roles)], 1+k%12, 1+k%28, k%60))
	}
	return out
}

func TestRawDict(t *testing.T) {
	content := testRandom(32000, 30)
	data := append(append([]byte{}, content[5000:9000]...), testText(2000, 31)...)
	data = append(data, content[20000:26000]...)

	plain, err := Compress(data, &EncoderOptions{Level: 3})
	require.NoError(t, err)
	withDict, err := Compress(data, &EncoderOptions{Level: 3, Dict: NewRawDict(7, content)})
	require.NoError(t, err)
	assert.Less(t, len(withDict), len(plain))

	hdr, err := ReadFrameHeader(withDict)
	require.NoError(t, err)
	assert.EqualValues(t, 7, hdr.DictID)

	got, err := Decompress(withDict, &DecoderOptions{Dicts: []*Dict{NewRawDict(7, content)}})
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = Decompress(withDict, nil)
	assert.True(t, errors.Is(err, ErrUnknownDictionary), "%v", err)

	got = decodeKlauspost(t, withDict, kzstd.WithDecoderDictRaw(7, content))
	assert.Equal(t, data, got)
}

func TestRawDictWithoutID(t *testing.T) {
	content := testRandom(16000, 32)
	data := content[3000:12000]
	c, err := Compress(data, &EncoderOptions{Level: 5, Dict: NewRawDict(0, content)})
	require.NoError(t, err)
	hdr, err := ReadFrameHeader(c)
	require.NoError(t, err)
	assert.Zero(t, hdr.DictID)
	assert.Less(t, len(c), 100)

	got, err := Decompress(c, &DecoderOptions{Dicts: []*Dict{NewRawDict(0, content)}})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestKlauspostRawDict(t *testing.T) {
	content := testRandom(20000, 33)
	data := append(append([]byte{}, content[1000:8000]...), content[12000:19000]...)
	e, err := kzstd.NewWriter(nil, kzstd.WithEncoderDictRaw(99, content))
	require.NoError(t, err)
	c := e.EncodeAll(data, nil)

	got, err := Decompress(c, &DecoderOptions{Dicts: []*Dict{NewRawDict(99, content)}})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDuplicateDictID(t *testing.T) {
	_, err := NewDecoder(&DecoderOptions{Dicts: []*Dict{NewRawDict(1, []byte("abcdefgh")), NewRawDict(1, []byte("ijklmnop"))}})
	assert.Error(t, err)
}

func TestBuildDict(t *testing.T) {
	samples := testRecords(500, 0)
	b, err := BuildDict(samples, &DictOptions{MaxSize: 8192})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(b), 8192)

	dict, err := LoadDict(b)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, dict.ID(), uint32(dictIDMin))
	assert.NotEmpty(t, dict.Content())
	assert.True(t, dict.hasEntropy)
	assert.Equal(t, defaultReps, dict.reps())

	again, err := BuildDict(samples, &DictOptions{MaxSize: 8192})
	require.NoError(t, err)
	assert.Equal(t, b, again)

	for i, rec := range testRecords(20, 10000) {
		plain, err := Compress(rec, &EncoderOptions{Level: 3})
		require.NoError(t, err)
		withDict, err := Compress(rec, &EncoderOptions{Level: 3, Dict: dict})
		require.NoError(t, err)
		assert.Less(t, len(withDict), len(plain), "record %d", i)

		got, err := Decompress(withDict, &DecoderOptions{Dicts: []*Dict{dict}})
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		assert.Equal(t, rec, decodeKlauspost(t, withDict, kzstd.WithDecoderDicts(b)))
	}
}

func TestBuildDictKlauspostEncodes(t *testing.T) {
	samples := testRecords(300, 0)
	b, err := BuildDict(samples, &DictOptions{MaxSize: 4096, ID: 1234})
	require.NoError(t, err)
	dict, err := LoadDict(b)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, dict.ID())

	e, err := kzstd.NewWriter(nil, kzstd.WithEncoderDict(b))
	require.NoError(t, err)
	for _, rec := range testRecords(20, 5000) {
		c := e.EncodeAll(rec, nil)
		got, err := Decompress(c, &DecoderOptions{Dicts: []*Dict{dict}})
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}
}

func TestBuildDictFailures(t *testing.T) {
	_, err := BuildDict(nil, nil)
	assert.True(t, errors.Is(err, ErrTrainingFailed))

	unrelated := [][]byte{testRandom(1000, 40), testRandom(1000, 41), testRandom(1000, 42)}
	_, err = BuildDict(unrelated, nil)
	assert.True(t, errors.Is(err, ErrTrainingFailed))

	_, err = BuildDict(testRecords(10, 0), &DictOptions{MaxSize: 100})
	assert.True(t, errors.Is(err, ErrTrainingFailed))
}

func TestLoadDictErrors(t *testing.T) {
	hdr := binary.LittleEndian.AppendUint32(nil, dictMagic)
	hdr = binary.LittleEndian.AppendUint32(hdr, 5)
	_, err := LoadDict(hdr)
	assert.True(t, errors.Is(err, ErrInvalidDictionary), "%v", err)

	b, err := BuildDict(testRecords(100, 0), &DictOptions{MaxSize: 2048})
	require.NoError(t, err)
	for _, n := range []int{9, 20, 60} {
		_, err := LoadDict(b[:n])
		assert.True(t, errors.Is(err, ErrInvalidDictionary), "%d bytes: %v", n, err)
	}

	// Raw content loads as an ID 0 dictionary.
	d, err := LoadDict([]byte("just some content"))
	require.NoError(t, err)
	assert.Zero(t, d.ID())
}
