package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lengths(encodings []*Encoding) []int {
	out := make([]int, len(encodings))
	for i, e := range encodings {
		out[i] = e.Len()
	}
	return out
}

func TestPadBatch(t *testing.T) {
	tests := []struct {
		name   string
		params PaddingParams
		want   []int
	}{
		{"batch longest", DefaultPaddingParams(), []int{5, 5, 5}},
		{"fixed", PaddingParams{Strategy: PadFixed, Length: 8}, []int{8, 8, 8}},
		{"fixed shorter than longest", PaddingParams{Strategy: PadFixed, Length: 3}, []int{3, 5, 3}},
		{"multiple of", PaddingParams{PadToMultipleOf: 4}, []int{8, 8, 8}},
		{"fixed multiple of", PaddingParams{Strategy: PadFixed, Length: 8, PadToMultipleOf: 3}, []int{9, 9, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := []*Encoding{newTestEncoding(2), newTestEncoding(5), newTestEncoding(1)}
			require.NoError(t, PadBatch(batch, tt.params))
			assert.Equal(t, tt.want, lengths(batch))
		})
	}
}

func TestPadBatchValidatesFirst(t *testing.T) {
	batch := []*Encoding{newTestEncoding(2), {}, newTestEncoding(5)}
	require.ErrorIs(t, PadBatch(batch, DefaultPaddingParams()), ErrUninitialized)
	assert.Equal(t, 2, batch[0].Len())

	batch = []*Encoding{newTestEncoding(2)}
	require.ErrorIs(t, PadBatch(batch, PaddingParams{PadToMultipleOf: -2}), ErrInvalidParameter)
	require.ErrorIs(t, PadBatch(batch, PaddingParams{Direction: Direction(5)}), ErrInvalidDirection)
	assert.Equal(t, 2, batch[0].Len())

	require.NoError(t, PadBatch(nil, DefaultPaddingParams()))
}

func TestTruncateBatch(t *testing.T) {
	batch := []*Encoding{newTestEncoding(2), newTestEncoding(6), newTestPair(t, 3, 3)}
	require.NoError(t, TruncateBatch(batch, TruncationParams{MaxLength: 4, Stride: 1}))
	assert.Equal(t, []int{2, 4, 4}, lengths(batch))
	assert.Empty(t, batch[0].Overflowing())
	assert.Equal(t, [][]int{{13, 14, 15}}, overflowIDs(batch[1]))
	assert.Equal(t, []int{0, 0, 1, 1}, batch[2].SequenceIDs())

	// The batch can then be padded into a rectangle.
	require.NoError(t, PadBatch(batch, DefaultPaddingParams()))
	assert.Equal(t, []int{4, 4, 4}, lengths(batch))
}

func TestTruncateBatchAllOrNothing(t *testing.T) {
	batch := []*Encoding{newTestEncoding(6), newTestPair(t, 1, 6), newTestEncoding(8)}
	err := TruncateBatch(batch, TruncationParams{MaxLength: 4, Strategy: OnlyFirst})
	require.ErrorIs(t, err, ErrInvalidStrategyForInput)
	assert.Equal(t, []int{6, 7, 8}, lengths(batch))
	for _, e := range batch {
		assert.Empty(t, e.Overflowing())
	}

	batch = []*Encoding{newTestEncoding(6), nil}
	require.ErrorIs(t, TruncateBatch(batch, DefaultTruncationParams(2)), ErrUninitialized)
	assert.Equal(t, 6, batch[0].Len())
}
