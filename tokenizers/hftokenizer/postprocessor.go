package hftokenizer

import (
	"github.com/gomlx/go-encodings/encoding"
	"github.com/pkg/errors"
)

// template is the compiled form of a post-processor: the pieces of the final encoding for a single
// sequence and for a pair.
type template struct {
	single, pair []templatePiece
}

// templatePiece is either one of the input sequences (sequence 0 or 1) or special tokens
// (sequence encoding.None).
type templatePiece struct {
	sequence int
	typeID   int
	ids      []int
	tokens   []string
}

func newTemplate(pp *PostProcessor) (*template, error) {
	if pp == nil {
		return nil, nil
	}
	switch pp.Type {
	case "TemplateProcessing":
		single, err := compileTemplate(pp.Single, pp.SpecialTokens, false)
		if err != nil {
			return nil, errors.WithMessage(err, "single template")
		}
		pair, err := compileTemplate(pp.Pair, pp.SpecialTokens, true)
		if err != nil {
			return nil, errors.WithMessage(err, "pair template")
		}
		return &template{single: single, pair: pair}, nil

	case "BertProcessing", "RobertaProcessing":
		if pp.Sep == nil || pp.Cls == nil {
			return nil, errors.Errorf("%s requires \"sep\" and \"cls\"", pp.Type)
		}
		cls := specialPiece(*pp.Cls, 0)
		sep := specialPiece(*pp.Sep, 0)
		t := &template{single: []templatePiece{cls, sequencePiece(0, 0), sep}}
		if pp.Type == "BertProcessing" {
			t.pair = []templatePiece{cls, sequencePiece(0, 0), sep, sequencePiece(1, 1), specialPiece(*pp.Sep, 1)}
		} else {
			t.pair = []templatePiece{cls, sequencePiece(0, 0), sep, sep, sequencePiece(1, 0), sep}
		}
		return t, nil
	}
	return nil, errors.Errorf("post-processor %q not supported", pp.Type)
}

func specialPiece(token TokenWithID, typeID int) templatePiece {
	return templatePiece{sequence: encoding.None, typeID: typeID, ids: []int{token.ID}, tokens: []string{token.Token}}
}

func sequencePiece(sequence, typeID int) templatePiece {
	return templatePiece{sequence: sequence, typeID: typeID}
}

func compileTemplate(items []TemplateItem, specials map[string]TemplateSpecialToken, isPair bool) ([]templatePiece, error) {
	pieces := make([]templatePiece, 0, len(items))
	for i, item := range items {
		switch {
		case item.Sequence != nil:
			var sequence int
			switch item.Sequence.ID {
			case "A":
				sequence = 0
			case "B":
				if !isPair {
					return nil, errors.Errorf("item #%d: sequence B can only be used in the pair template", i)
				}
				sequence = 1
			default:
				return nil, errors.Errorf("item #%d: unknown sequence %q", i, item.Sequence.ID)
			}
			pieces = append(pieces, sequencePiece(sequence, item.Sequence.TypeID))

		case item.SpecialToken != nil:
			special, found := specials[item.SpecialToken.ID]
			if !found {
				return nil, errors.Errorf("item #%d: special token %q not defined", i, item.SpecialToken.ID)
			}
			if len(special.IDs) != len(special.Tokens) {
				return nil, errors.Errorf("special token %q has %d ids and %d tokens",
					special.ID, len(special.IDs), len(special.Tokens))
			}
			pieces = append(pieces, templatePiece{
				sequence: encoding.None,
				typeID:   item.SpecialToken.TypeID,
				ids:      special.IDs,
				tokens:   special.Tokens,
			})

		default:
			return nil, errors.Errorf("item #%d is neither a SpecialToken nor a Sequence", i)
		}
	}
	return pieces, nil
}

// addedTokens returns how many special tokens the template adds. A nil template adds none.
func (t *template) addedTokens(isPair bool) int {
	if t == nil {
		return 0
	}
	pieces := t.single
	if isPair {
		pieces = t.pair
	}
	count := 0
	for _, p := range pieces {
		count += len(p.ids)
	}
	return count
}

// apply returns the encoding with the special tokens of the template inserted around its sequences.
// Overflowing encodings are ignored: see Tokenizer.postProcess.
func (t *template) apply(e *encoding.Encoding) (*encoding.Encoding, error) {
	first, second, err := e.SplitPair()
	if err != nil {
		return nil, err
	}
	pieces := t.single
	if second != nil {
		pieces = t.pair
	}
	parts := make([]*encoding.Encoding, 0, len(pieces))
	for _, p := range pieces {
		var part *encoding.Encoding
		switch p.sequence {
		case 0:
			part = first.Clone()
		case 1:
			part = second.Clone()
		default:
			n := len(p.ids)
			part, err = encoding.FromParts(encoding.Parts{
				IDs:               p.ids,
				Tokens:            p.tokens,
				SpecialTokensMask: repeat(1, n),
				SequenceIDs:       repeat(encoding.None, n),
			})
			if err != nil {
				return nil, err
			}
		}
		if err := part.SetTypeID(p.typeID); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return encoding.Merge(parts, false)
}

func repeat(value, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = value
	}
	return out
}
