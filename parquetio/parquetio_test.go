package parquetio

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEncoding(n int) *encoding.Encoding {
	tokens := make([]encoding.Token, n)
	for i := range tokens {
		tokens[i] = encoding.Token{
			ID:      10 + i,
			Value:   fmt.Sprintf("w%d", i),
			Offsets: encoding.Offsets{Start: 3 * i, End: 3*i + 2},
			WordID:  i,
		}
	}
	return encoding.New(tokens, 0)
}

// testBatch returns a truncated and padded batch: the first encoding has 2 overflowing encodings.
func testBatch(t *testing.T) []*encoding.Encoding {
	t.Helper()
	first := newEncoding(5)
	require.NoError(t, first.Truncate(2, 0, encoding.Right))
	second, err := encoding.NewPair(newEncoding(1), newEncoding(1))
	require.NoError(t, err)
	batch := []*encoding.Encoding{first, second}
	require.NoError(t, encoding.PadBatch(batch, encoding.DefaultPaddingParams()))
	return batch
}

func TestRowsFromEncodings(t *testing.T) {
	batch := testBatch(t)
	rows, err := RowsFromEncodings(batch)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, rows[0].ExampleID, rows[1].ExampleID)
	assert.Equal(t, rows[0].ExampleID, rows[2].ExampleID)
	assert.NotEqual(t, rows[0].ExampleID, rows[3].ExampleID)
	assert.Equal(t, []int64{0, 1, 2, 0}, []int64{rows[0].Chunk, rows[1].Chunk, rows[2].Chunk, rows[3].Chunk})
	assert.Equal(t, []int64{12, 13}, rows[1].IDs)
	assert.Equal(t, []int64{14, 0}, rows[2].IDs)
	assert.Equal(t, []int64{0, 1}, rows[3].SequenceIDs)
	assert.Equal(t, int64(2), rows[3].NSequences)

	_, err = RowsFromEncodings([]*encoding.Encoding{newEncoding(1), {}})
	assert.ErrorIs(t, err, encoding.ErrUninitialized)
}

func assertSameEncodings(t *testing.T, want, got []*encoding.Encoding) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].IDs(), got[i].IDs(), "encoding #%d", i)
		assert.Equal(t, want[i].TypeIDs(), got[i].TypeIDs(), "encoding #%d", i)
		assert.Equal(t, want[i].Tokens(), got[i].Tokens(), "encoding #%d", i)
		assert.Equal(t, want[i].Offsets(), got[i].Offsets(), "encoding #%d", i)
		assert.Equal(t, want[i].WordIDs(), got[i].WordIDs(), "encoding #%d", i)
		assert.Equal(t, want[i].SpecialTokensMask(), got[i].SpecialTokensMask(), "encoding #%d", i)
		assert.Equal(t, want[i].AttentionMask(), got[i].AttentionMask(), "encoding #%d", i)
		assert.Equal(t, want[i].SequenceIDs(), got[i].SequenceIDs(), "encoding #%d", i)
		assert.Equal(t, want[i].NSequences(), got[i].NSequences(), "encoding #%d", i)
		require.Len(t, got[i].Overflowing(), len(want[i].Overflowing()), "encoding #%d", i)
		for j, o := range want[i].Overflowing() {
			assert.Equal(t, o.IDs(), got[i].Overflowing()[j].IDs(), "encoding #%d overflowing #%d", i, j)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	batch := testBatch(t)
	rows, err := RowsFromEncodings(batch)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	read, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, read, len(rows))

	got, err := EncodingsFromRows(read)
	require.NoError(t, err)
	assertSameEncodings(t, batch, got)

	// Coordinate queries work on the encodings read back.
	token, ok := got[0].CharToToken(4, 0)
	require.True(t, ok)
	assert.Equal(t, 1, token)
	seq, ok := got[1].TokenToSequence(1)
	require.True(t, ok)
	assert.Equal(t, 1, seq)
}

func TestFileRoundTrip(t *testing.T) {
	batch := testBatch(t)
	rows, err := RowsFromEncodings(batch)
	require.NoError(t, err)

	filePath := filepath.Join(t.TempDir(), "data", "batch.parquet")
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = WriteFile(filePath, rows)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.NoFileExists(t, filePath+".writing")

	read, err := ReadFile(filePath)
	require.NoError(t, err)
	got, err := EncodingsFromRows(read)
	require.NoError(t, err)
	assertSameEncodings(t, batch, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}

func TestEncodingsFromRowsErrors(t *testing.T) {
	rows, err := RowsFromEncodings([]*encoding.Encoding{newEncoding(2)})
	require.NoError(t, err)

	t.Run("chunk out of order", func(t *testing.T) {
		bad := []Row{rows[0], rows[0]}
		_, err := EncodingsFromRows(bad)
		assert.ErrorIs(t, err, encoding.ErrInvalidParameter)
	})

	t.Run("mismatched arrays", func(t *testing.T) {
		bad := rows[0]
		bad.WordIDs = bad.WordIDs[:1]
		_, err := bad.Encoding()
		assert.ErrorIs(t, err, encoding.ErrInvalidParameter)
	})

	t.Run("mismatched offsets", func(t *testing.T) {
		bad := rows[0]
		bad.OffsetEnds = nil
		_, err := bad.Encoding()
		assert.ErrorIs(t, err, encoding.ErrInvalidParameter)
	})
}
