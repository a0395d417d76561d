package hftokenizer

import (
	"unicode/utf8"

	"k8s.io/klog/v2"
)

// modelToken is a token produced by the model for one word, with its byte range [start, end) in the word.
type modelToken struct {
	id         int
	value      string
	start, end int
}

// tokenizeWord tokenizes a single word according to the model type.
func (t *Tokenizer) tokenizeWord(word string) []modelToken {
	switch t.tokenizer.Model.Type {
	case "WordPiece":
		return t.wordPieceTokenize(word)
	case "WordLevel":
		return t.wordLevelTokenize(word)
	case "BPE":
		return t.bpeTokenize(word)
	}
	return nil
}

// unknownWord returns the whole word as the unknown token, or nothing if the model has none.
func (t *Tokenizer) unknownWord(word string) []modelToken {
	if t.unkID < 0 {
		klog.V(1).Infof("hftokenizer: word %q dropped, model has no unknown token", word)
		return nil
	}
	return []modelToken{{id: t.unkID, value: t.tokenizer.Model.UnkToken, start: 0, end: len(word)}}
}

// wordPieceTokenize implements WordPiece tokenization (used by BERT): greedy longest-match-first,
// where pieces after the first one are looked up with the continuing subword prefix ("##").
// If any part of the word can't be matched, the whole word is unknown.
func (t *Tokenizer) wordPieceTokenize(word string) []modelToken {
	if word == "" {
		return nil
	}
	model := &t.tokenizer.Model
	maxChars := model.MaxInputCharsPerWord
	if maxChars == 0 {
		maxChars = 100
	}
	if utf8.RuneCountInString(word) > maxChars {
		return t.unknownWord(word)
	}
	prefix := model.ContinuingSubwordPrefix
	if prefix == "" {
		prefix = "##"
	}

	var tokens []modelToken
	for start := 0; start < len(word); {
		end := len(word)
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = prefix + piece
			}
			if id, ok := model.Vocab[piece]; ok {
				tokens = append(tokens, modelToken{id: id, value: piece, start: start, end: end})
				break
			}
			_, size := utf8.DecodeLastRuneInString(word[start:end])
			end -= size
		}
		if end == start {
			return t.unknownWord(word)
		}
		start = end
	}
	return tokens
}

// wordLevelTokenize maps whole words to ids.
func (t *Tokenizer) wordLevelTokenize(word string) []modelToken {
	if word == "" {
		return nil
	}
	if id, ok := t.tokenizer.Model.Vocab[word]; ok {
		return []modelToken{{id: id, value: word, start: 0, end: len(word)}}
	}
	return t.unknownWord(word)
}

// bpeTokenize implements BPE tokenization (used by GPT-2, RoBERTa): starting from single characters,
// repeatedly merges the adjacent pair with the best (lowest) merge rank.
func (t *Tokenizer) bpeTokenize(word string) []modelToken {
	if word == "" {
		return nil
	}
	var symbols []modelToken
	for i, r := range word {
		symbols = append(symbols, modelToken{value: string(r), start: i, end: i + utf8.RuneLen(r)})
	}
	if suffix := t.tokenizer.Model.EndOfWordSuffix; suffix != "" {
		symbols[len(symbols)-1].value += suffix
	}

	for len(symbols) > 1 {
		bestRank, bestIdx := -1, -1
		for i := 0; i < len(symbols)-1; i++ {
			rank, ok := t.mergeRanks[symbols[i].value+" "+symbols[i+1].value]
			if ok && (bestRank == -1 || rank < bestRank) {
				bestRank, bestIdx = rank, i
			}
		}
		if bestIdx == -1 {
			break
		}
		left, right := symbols[bestIdx], symbols[bestIdx+1]
		symbols[bestIdx] = modelToken{value: left.value + right.value, start: left.start, end: right.end}
		symbols = append(symbols[:bestIdx+1], symbols[bestIdx+2:]...)
	}

	tokens := symbols[:0]
	for _, sym := range symbols {
		if id, ok := t.tokenizer.Model.Vocab[sym.value]; ok {
			sym.id = id
			tokens = append(tokens, sym)
		} else if t.unkID >= 0 {
			sym.id, sym.value = t.unkID, t.tokenizer.Model.UnkToken
			tokens = append(tokens, sym)
		}
	}
	return tokens
}
