package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecialTokenNames(t *testing.T) {
	assert.Equal(t, "beginning_of_sentence", TokBeginningOfSentence.String())
	assert.Equal(t, "classification", TokClassification.String())
	assert.Equal(t, "SpecialToken(42)", SpecialToken(42).String())

	for _, tok := range SpecialTokenValues() {
		parsed, err := SpecialTokenString(tok.String())
		require.NoError(t, err)
		assert.Equal(t, tok, parsed)
	}
	_, err := SpecialTokenString("separator")
	assert.Error(t, err)

	var tok SpecialToken
	require.NoError(t, tok.UnmarshalText([]byte("Mask")))
	assert.Equal(t, TokMask, tok)
}
