// Package api defines the Tokenizer interfaces implemented by the tokenizers in this module.
// It is kept separate so producers (hftokenizer, sentencepiece) and their users don't import each other.
package api

import (
	"github.com/gomlx/go-encodings/encoding"
)

// TokenSpan represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
type TokenSpan struct {
	Start int // start byte position (inclusive)
	End   int // end byte position (exclusive)
}

// EncodingResult contains tokens with their spans in the original text.
type EncodingResult struct {
	IDs   []int       // token IDs
	Spans []TokenSpan // byte spans for each token (use originalText[span.Start:span.End] to extract)
}

// SpansFromEncoding converts the offsets of e to TokenSpans.
// Tokens with no text origin (special tokens, padding) get empty spans.
func SpansFromEncoding(e *encoding.Encoding) []TokenSpan {
	offsets := e.Offsets()
	spans := make([]TokenSpan, len(offsets))
	for i, o := range offsets {
		spans[i] = TokenSpan{Start: o.Start, End: o.End}
	}
	return spans
}

// Tokenizer interface allows one to convert text to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding) but that
// may map to different ids (int) for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode([]int) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// TokenizerWithSpans extends Tokenizer with span tracking capability.
// This is useful for token classification tasks (NER, chunking) where you need
// to map token predictions back to byte positions in the original text.
type TokenizerWithSpans interface {
	Tokenizer
	// EncodeWithSpans returns tokens along with their byte spans in the original text.
	EncodeWithSpans(text string) EncodingResult
}

// EncodingTokenizer extends Tokenizer with the full encoding.Encoding output: alignment information,
// masks, truncation overflow and pairs of sequences.
type EncodingTokenizer interface {
	Tokenizer

	// EncodeEncoding returns the Encoding of a single sequence.
	EncodeEncoding(text string) (*encoding.Encoding, error)

	// EncodePair returns the Encoding of a pair of sequences: the tokens of second have sequence id 1.
	EncodePair(first, second string) (*encoding.Encoding, error)
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSpecialTokensCount
)

//go:generate enumer -type=SpecialToken -trimprefix=Tok -transform=snake -values -text -json -yaml api.go
