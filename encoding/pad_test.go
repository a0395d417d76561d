package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadLeft(t *testing.T) {
	e := newTestEncoding(3)
	require.NoError(t, e.Pad(5, 0, 0, "[PAD]", Left))
	assert.Equal(t, 5, e.Len())
	assert.Equal(t, []int{0, 0, 10, 11, 12}, e.IDs())
	assert.Equal(t, []string{"[PAD]", "[PAD]", "w0", "w1", "w2"}, e.Tokens())
	assert.Equal(t, []int{0, 0, 1, 1, 1}, e.AttentionMask())
	assert.Equal(t, []int{1, 1, 0, 0, 0}, e.SpecialTokensMask())
	assert.Equal(t, []Offsets{{}, {}, {0, 2}, {3, 5}, {6, 8}}, e.Offsets())
	assert.Equal(t, []int{None, None, 0, 1, 2}, e.WordIDs())
	assert.Equal(t, []int{None, None, 0, 0, 0}, e.SequenceIDs())

	// Queries still find the original tokens, at their new indices.
	token, ok := e.CharToToken(3, 0)
	require.True(t, ok)
	assert.Equal(t, 3, token)
	start, end, ok := e.WordToTokens(2, 0)
	require.True(t, ok)
	assert.Equal(t, [2]int{4, 5}, [2]int{start, end})
	_, ok = e.TokenToSequence(0)
	assert.False(t, ok)
	_, _, ok = e.TokenToWord(1)
	assert.False(t, ok)
}

func TestPadRight(t *testing.T) {
	e := newTestEncoding(2)
	require.NoError(t, e.Pad(4, 7, 1, "<pad>", Right))
	assert.Equal(t, []int{10, 11, 7, 7}, e.IDs())
	assert.Equal(t, []int{0, 0, 1, 1}, e.TypeIDs())
	assert.Equal(t, []string{"w0", "w1", "<pad>", "<pad>"}, e.Tokens())
	assert.Equal(t, []int{1, 1, 0, 0}, e.AttentionMask())
	assert.Equal(t, []int{0, 0, None, None}, e.SequenceIDs())
	token, ok := e.CharToToken(4, 0)
	require.True(t, ok)
	assert.Equal(t, 1, token)
}

func TestPadNoOpAndIdempotent(t *testing.T) {
	for _, direction := range []Direction{Right, Left} {
		e := newTestEncoding(4)
		require.NoError(t, e.Pad(3, 0, 0, "[PAD]", direction))
		assert.Equal(t, []int{10, 11, 12, 13}, e.IDs())

		require.NoError(t, e.Pad(6, 0, 0, "[PAD]", direction))
		ids := e.IDs()
		require.NoError(t, e.Pad(6, 0, 0, "[PAD]", direction))
		assert.Equal(t, ids, e.IDs())
		assert.Equal(t, 6, e.Len())
	}
}

func TestPadOverflowing(t *testing.T) {
	e := newTestEncoding(5)
	require.NoError(t, e.Truncate(3, 0, Right))
	require.NoError(t, e.Pad(4, 0, 0, "[PAD]", Right))
	assert.Equal(t, []int{10, 11, 12, 0}, e.IDs())
	assert.Equal(t, [][]int{{13, 14, 0, 0}}, overflowIDs(e))
	assert.Equal(t, []int{1, 1, 0, 0}, e.Overflowing()[0].AttentionMask())
}

func TestPadPair(t *testing.T) {
	e := newTestPair(t, 2, 1)
	require.NoError(t, e.Pad(5, 0, 0, "[PAD]", Right))
	assert.Equal(t, []int{0, 0, 1, None, None}, e.SequenceIDs())
	assert.Equal(t, 2, e.NSequences())
	token, ok := e.CharToToken(0, 1)
	require.True(t, ok)
	assert.Equal(t, 2, token)
}

func TestPadInvalidArguments(t *testing.T) {
	e := newTestEncoding(2)
	require.ErrorIs(t, e.Pad(-1, 0, 0, "[PAD]", Right), ErrInvalidParameter)
	require.ErrorIs(t, e.Pad(4, 0, 0, "[PAD]", Direction(2)), ErrInvalidDirection)
	assert.Equal(t, 2, e.Len())
}

func TestPadWithParams(t *testing.T) {
	e := newTestEncoding(3)
	require.NoError(t, e.PadWithParams(DefaultPaddingParams()))
	assert.Equal(t, 3, e.Len())

	p := DefaultPaddingParams()
	p.PadToMultipleOf = 4
	p.PadID = 9
	require.NoError(t, e.PadWithParams(p))
	assert.Equal(t, []int{10, 11, 12, 9}, e.IDs())

	p = PaddingParams{Strategy: PadFixed, Length: 6, Direction: Left, PadToken: "[PAD]"}
	require.NoError(t, e.PadWithParams(p))
	assert.Equal(t, []int{0, 0, 10, 11, 12, 9}, e.IDs())
}
