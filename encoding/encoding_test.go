package encoding

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEncoding returns a single sequence encoding of n tokens, where token i has id 10+i,
// is the word i and spans the characters [3i, 3i+2).
func newTestEncoding(n int) *Encoding {
	tokens := make([]Token, n)
	for i := range tokens {
		tokens[i] = Token{
			ID:      10 + i,
			Value:   fmt.Sprintf("w%d", i),
			Offsets: Offsets{Start: 3 * i, End: 3*i + 2},
			WordID:  i,
		}
	}
	return New(tokens, 0)
}

func repeated(value, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestNew(t *testing.T) {
	e := newTestEncoding(3)
	require.True(t, e.IsPopulated())
	assert.Equal(t, 3, e.Len())
	assert.False(t, e.IsEmpty())
	assert.Equal(t, 1, e.NSequences())
	assert.Equal(t, []int{10, 11, 12}, e.IDs())
	assert.Equal(t, []int{0, 0, 0}, e.TypeIDs())
	assert.Equal(t, []string{"w0", "w1", "w2"}, e.Tokens())
	assert.Equal(t, []Offsets{{0, 2}, {3, 5}, {6, 8}}, e.Offsets())
	assert.Equal(t, []int{0, 1, 2}, e.WordIDs())
	assert.Equal(t, []int{0, 0, 0}, e.SpecialTokensMask())
	assert.Equal(t, []int{1, 1, 1}, e.AttentionMask())
	assert.Equal(t, []int{0, 0, 0}, e.SequenceIDs())
	assert.Empty(t, e.Overflowing())
	assert.Equal(t, "Encoding(num_tokens=3, n_sequences=1, overflowing=0)", e.String())

	empty := NewEmpty()
	assert.True(t, empty.IsPopulated())
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 1, empty.NSequences())
}

func TestUninitialized(t *testing.T) {
	var zero Encoding
	var nilEncoding *Encoding
	for _, e := range []*Encoding{&zero, nilEncoding} {
		assert.False(t, e.IsPopulated())
		assert.Equal(t, "Encoding(uninitialized)", e.String())
		assert.PanicsWithError(t, ErrUninitialized.Error(), func() { e.Len() })
		assert.PanicsWithError(t, ErrUninitialized.Error(), func() { e.IDs() })
		assert.PanicsWithError(t, ErrUninitialized.Error(), func() { e.CharToToken(0, 0) })
		assert.PanicsWithError(t, ErrUninitialized.Error(), func() { e.TokenToSequence(0) })
		assert.PanicsWithError(t, ErrUninitialized.Error(), func() { e.Overflowing() })

		require.ErrorIs(t, e.Truncate(1, 0, Right), ErrUninitialized)
		require.ErrorIs(t, e.TruncateWithParams(DefaultTruncationParams(1)), ErrUninitialized)
		require.ErrorIs(t, e.Pad(4, 0, 0, "[PAD]", Right), ErrUninitialized)
		require.ErrorIs(t, e.SetSequenceID(1), ErrUninitialized)
		require.ErrorIs(t, e.MergeWith(newTestEncoding(1), false), ErrUninitialized)
	}

	_, err := NewPair(newTestEncoding(1), &zero)
	require.ErrorIs(t, err, ErrUninitialized)
	require.ErrorIs(t, newTestEncoding(1).MergeWith(nil, false), ErrUninitialized)
	_, err = FromParts(Parts{IDs: []int{1}, Overflowing: []*Encoding{&zero}})
	require.ErrorIs(t, err, ErrUninitialized)
}

func TestFromParts(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		e, err := FromParts(Parts{IDs: []int{7, 8}})
		require.NoError(t, err)
		assert.Equal(t, []int{7, 8}, e.IDs())
		assert.Equal(t, []int{0, 0}, e.TypeIDs())
		assert.Equal(t, []string{"", ""}, e.Tokens())
		assert.Equal(t, []Offsets{{}, {}}, e.Offsets())
		assert.Equal(t, []int{None, None}, e.WordIDs())
		assert.Equal(t, []int{0, 0}, e.SpecialTokensMask())
		assert.Equal(t, []int{1, 1}, e.AttentionMask())
		assert.Equal(t, []int{0, 0}, e.SequenceIDs())
		assert.Equal(t, 1, e.NSequences())
	})

	t.Run("empty", func(t *testing.T) {
		e, err := FromParts(Parts{})
		require.NoError(t, err)
		assert.Equal(t, 0, e.Len())
		assert.Equal(t, []int{}, e.IDs())
	})

	t.Run("derived n_sequences", func(t *testing.T) {
		e, err := FromParts(Parts{IDs: []int{1, 2, 3}, SequenceIDs: []int{None, 0, 1}})
		require.NoError(t, err)
		assert.Equal(t, 2, e.NSequences())
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := FromParts(Parts{IDs: []int{1, 2}, TypeIDs: []int{0}})
		require.ErrorIs(t, err, ErrInvalidParameter)
	})

	t.Run("sequence id out of range", func(t *testing.T) {
		_, err := FromParts(Parts{IDs: []int{1, 2}, SequenceIDs: []int{0, 1}, NSequences: 1})
		require.ErrorIs(t, err, ErrInvalidParameter)
	})

	t.Run("inputs are copied", func(t *testing.T) {
		ids := []int{1, 2}
		overflow := newTestEncoding(1)
		e, err := FromParts(Parts{IDs: ids, Overflowing: []*Encoding{overflow}})
		require.NoError(t, err)
		ids[0] = 100
		require.NoError(t, overflow.Pad(3, 0, 0, "[PAD]", Right))
		assert.Equal(t, []int{1, 2}, e.IDs())
		assert.Equal(t, 1, e.Overflowing()[0].Len())
	})
}

func TestGettersReturnCopies(t *testing.T) {
	e := newTestEncoding(2)
	e.IDs()[0] = 99
	e.Offsets()[0] = Offsets{5, 6}
	e.SequenceIDs()[1] = 1
	assert.Equal(t, []int{10, 11}, e.IDs())
	assert.Equal(t, Offsets{0, 2}, e.Offsets()[0])
	assert.Equal(t, []int{0, 0}, e.SequenceIDs())
}

func TestNewPair(t *testing.T) {
	first, second := newTestEncoding(3), newTestEncoding(2)
	pair, err := NewPair(first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, pair.NSequences())
	assert.Equal(t, []int{10, 11, 12, 10, 11}, pair.IDs())
	assert.Equal(t, []int{0, 0, 0, 1, 1}, pair.SequenceIDs())
	assert.Equal(t, []int{0, 0, 0, 1, 1}, pair.TypeIDs())
	// Offsets of the second sequence are relative to its own text.
	assert.Equal(t, Offsets{0, 2}, pair.Offsets()[3])

	// Inputs are not modified.
	assert.Equal(t, []int{0, 0}, second.SequenceIDs())
	assert.Equal(t, []int{0, 0}, second.TypeIDs())
	assert.Equal(t, 3, first.Len())
}

func TestSetSequenceID(t *testing.T) {
	e := newTestEncoding(4)
	require.NoError(t, e.Truncate(2, 0, Right))
	require.NoError(t, e.SetSequenceID(1))
	assert.Equal(t, []int{1, 1}, e.SequenceIDs())
	assert.Equal(t, 2, e.NSequences())
	assert.Equal(t, []int{1, 1}, e.Overflowing()[0].SequenceIDs())
	require.ErrorIs(t, e.SetSequenceID(-1), ErrInvalidParameter)
	require.ErrorIs(t, e.SetSequenceID(5), ErrInvalidParameter)
	assert.Equal(t, 2, e.NSequences())
}

func TestMergeWith(t *testing.T) {
	t.Run("growing offsets", func(t *testing.T) {
		a, b := newTestEncoding(2), newTestEncoding(2)
		require.NoError(t, a.MergeWith(b, true))
		assert.Equal(t, []Offsets{{0, 2}, {3, 5}, {5, 7}, {8, 10}}, a.Offsets())
		assert.Equal(t, 1, a.NSequences())
	})

	t.Run("fixed offsets", func(t *testing.T) {
		a, b := newTestEncoding(2), newTestEncoding(2)
		require.NoError(t, a.MergeWith(b, false))
		assert.Equal(t, []Offsets{{0, 2}, {3, 5}, {0, 2}, {3, 5}}, a.Offsets())
	})

	t.Run("overflowing combination", func(t *testing.T) {
		a, b := newTestEncoding(4), newTestEncoding(3)
		require.NoError(t, a.Truncate(2, 0, Right)) // a: [10 11], overflowing [12 13]
		require.NoError(t, b.Truncate(2, 0, Right)) // b: [10 11], overflowing [12]
		require.NoError(t, a.MergeWith(b, false))
		assert.Equal(t, []int{10, 11, 10, 11}, a.IDs())

		overflowing := a.Overflowing()
		require.Len(t, overflowing, 3)
		assert.Equal(t, []int{12, 13, 10, 11}, overflowing[0].IDs())
		assert.Equal(t, []int{12, 13, 12}, overflowing[1].IDs())
		assert.Equal(t, []int{10, 11, 12}, overflowing[2].IDs())
		for _, o := range overflowing {
			assert.Empty(t, o.Overflowing())
		}
	})

	t.Run("merge list", func(t *testing.T) {
		merged, err := Merge([]*Encoding{newTestEncoding(1), newTestEncoding(2), newTestEncoding(1)}, true)
		require.NoError(t, err)
		assert.Equal(t, []int{10, 10, 11, 10}, merged.IDs())
		assert.Equal(t, []Offsets{{0, 2}, {2, 4}, {5, 7}, {7, 9}}, merged.Offsets())

		_, err = Merge([]*Encoding{newTestEncoding(1), {}}, true)
		require.ErrorIs(t, err, ErrUninitialized)
	})
}

func TestOverflowingIndependence(t *testing.T) {
	e := newTestEncoding(6)
	require.NoError(t, e.Truncate(3, 0, Right))
	overflow := e.Overflowing()[0]
	require.Equal(t, []int{13, 14, 15}, overflow.IDs())

	// Changing the parent doesn't change copies already taken, and vice versa.
	require.NoError(t, e.Pad(5, 0, 0, "[PAD]", Right))
	assert.Equal(t, 3, overflow.Len())
	require.NoError(t, overflow.Truncate(1, 0, Right))
	assert.Equal(t, 5, e.Overflowing()[0].Len())

	taken := e.TakeOverflowing()
	require.Len(t, taken, 1)
	assert.Empty(t, e.Overflowing())
	assert.Equal(t, []int{13, 14, 15, 0, 0}, taken[0].IDs())

	clone := e.Clone()
	require.NoError(t, clone.Truncate(1, 0, Right))
	assert.Equal(t, 5, e.Len())
}

func TestSetTypeID(t *testing.T) {
	e := newTestEncoding(3)
	require.NoError(t, e.Truncate(2, 0, Right))
	require.NoError(t, e.SetTypeID(1))
	assert.Equal(t, []int{1, 1}, e.TypeIDs())
	assert.Equal(t, []int{1}, e.Overflowing()[0].TypeIDs())
}

func TestSplitPair(t *testing.T) {
	pair := newTestPair(t, 3, 2)
	require.NoError(t, pair.Truncate(4, 0, Right))
	first, second, err := pair.SplitPair()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11, 12}, first.IDs())
	assert.Equal(t, []int{20}, second.IDs())
	assert.Equal(t, []int{1}, second.SequenceIDs())
	assert.Equal(t, 2, second.NSequences())
	assert.Empty(t, first.Overflowing())

	single := newTestEncoding(2)
	first, second, err = single.SplitPair()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, first.IDs())
	assert.Nil(t, second)
}

func TestSetOverflowing(t *testing.T) {
	e := newTestEncoding(2)
	overflow := newTestEncoding(1)
	require.NoError(t, e.SetOverflowing([]*Encoding{overflow}))
	require.NoError(t, overflow.Pad(3, 0, 0, "[PAD]", Right))
	assert.Equal(t, [][]int{{10}}, overflowIDs(e))

	require.ErrorIs(t, e.SetOverflowing([]*Encoding{nil}), ErrUninitialized)
	require.NoError(t, e.SetOverflowing(nil))
	assert.Empty(t, e.Overflowing())
}
