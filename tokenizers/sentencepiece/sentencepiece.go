// Package sentencepiece implements an api.EncodingTokenizer based on SentencePiece tokenizer.
package sentencepiece

import (
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/go-encodings/encoding"
	"github.com/gomlx/go-encodings/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NewFromPath creates a SentencePiece tokenizer from a "tokenizer.model" file, which must be a
// SentencePiece Model proto.
func NewFromPath(modelPath string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", modelPath)
	}
	return &Tokenizer{
		Processor: proc,
		Info:      proc.ModelInfo(),
	}, nil
}

// Tokenizer implements api.EncodingTokenizer based on SentencePiece tokenizer by Google.
type Tokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

// Compile time assert that sentencepiece.Tokenizer implements the api interfaces.
var (
	_ api.Tokenizer          = &Tokenizer{}
	_ api.TokenizerWithSpans = &Tokenizer{}
	_ api.EncodingTokenizer  = &Tokenizer{}
)

// Encode returns the text encoded into a sequence of ids.
func (p *Tokenizer) Encode(text string) []int {
	tokens := p.Processor.Encode(text)
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

// EncodeWithSpans returns the text encoded into a sequence of ids along with their byte spans.
func (p *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	tokens := p.Processor.Encode(text)
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return api.EncodingResult{IDs: ids, Spans: matchSpans(text, tokens)}
}

// EncodeEncoding returns the Encoding of text, with byte offsets. A piece starting with the
// metaspace (U+2581) starts a new word.
func (p *Tokenizer) EncodeEncoding(text string) (*encoding.Encoding, error) {
	return toEncoding(text, p.Processor.Encode(text)), nil
}

// EncodePair returns the Encoding of the pair (first, second). Tokens of second have sequence id
// and type id 1.
func (p *Tokenizer) EncodePair(first, second string) (*encoding.Encoding, error) {
	return pairEncoding(first, p.Processor.Encode(first), second, p.Processor.Encode(second))
}

func pairEncoding(first string, firstPieces []esentencepiece.Token, second string, secondPieces []esentencepiece.Token) (*encoding.Encoding, error) {
	return encoding.NewPair(toEncoding(first, firstPieces), toEncoding(second, secondPieces))
}

func toEncoding(text string, pieces []esentencepiece.Token) *encoding.Encoding {
	spans := matchSpans(text, pieces)
	tokens := make([]encoding.Token, len(pieces))
	wordID := -1
	for i, piece := range pieces {
		if i == 0 || strings.HasPrefix(piece.Text, metaspace) {
			wordID++
		}
		tokens[i] = encoding.Token{
			ID:      piece.ID,
			Value:   piece.Text,
			Offsets: encoding.Offsets{Start: spans[i].Start, End: spans[i].End},
			WordID:  wordID,
		}
	}
	klog.V(3).Infof("sentencepiece: %d tokens, %d words", len(tokens), wordID+1)
	return encoding.New(tokens, 0)
}

// metaspace is the SentencePiece replacement for spaces, U+2581 (lower one eighth block).
const metaspace = "▁"

// matchSpans finds the byte span of each piece in text, by matching the pieces (without the
// metaspace) in order. Whitespace before a piece that starts with the metaspace is skipped.
func matchSpans(text string, pieces []esentencepiece.Token) []api.TokenSpan {
	spans := make([]api.TokenSpan, len(pieces))
	pos := 0
	for i, piece := range pieces {
		matchPiece, hasLeadingSpace := strings.CutPrefix(piece.Text, metaspace)
		if hasLeadingSpace {
			for pos < len(text) && isSpace(text[pos]) {
				pos++
			}
		}

		if matchPiece == "" {
			// The token represents just the space, if there was one.
			if hasLeadingSpace && pos > 0 && isSpace(text[pos-1]) {
				spans[i] = api.TokenSpan{Start: pos - 1, End: pos}
			} else {
				spans[i] = api.TokenSpan{Start: pos, End: pos}
			}
			continue
		}

		start := pos
		if foundAt := findSubstring(text, matchPiece, pos); foundAt >= 0 {
			start = foundAt
			pos = foundAt + len(matchPiece)
		} else {
			// Pieces that don't match the text (byte fallback, normalized characters) advance by their length.
			pos = min(pos+len(matchPiece), len(text))
		}
		spans[i] = api.TokenSpan{Start: start, End: pos}
	}
	return spans
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// findSubstring finds the first occurrence of substr in s starting from position start.
// Returns the byte position of the match, or -1 if not found.
func findSubstring(s, substr string, start int) int {
	if start >= len(s) {
		return -1
	}
	idx := strings.Index(s[start:], substr)
	if idx < 0 {
		return -1
	}
	return start + idx
}

// Decode returns the text from a sequence of ids.
func (p *Tokenizer) Decode(ids []int) string {
	return p.Processor.Decode(ids)
}

// SpecialTokenID returns the token for the given symbol, or an error if not known.
func (p *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokUnknown:
		return p.Info.UnknownID, nil
	case api.TokPad:
		return p.Info.PadID, nil
	case api.TokBeginningOfSentence:
		return p.Info.BeginningOfSentenceID, nil
	case api.TokEndOfSentence:
		return p.Info.EndOfSentenceID, nil
	default:
		return 0, errors.Errorf("unknown special token: %s (%d)", token, int(token))
	}
}
