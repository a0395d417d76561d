// Package hftokenizer implements a tokenizer for HuggingFace's tokenizer.json format.
// This format is used by the HuggingFace Tokenizers library (the "fast" tokenizers).
//
// It supports WordPiece (BERT), WordLevel and BPE (GPT-2, RoBERTa) models, and produces
// encoding.Encoding values: tokens aligned to the original text, special tokens added by the
// post-processor, and the truncation and padding configured in the file (or set with
// SetTruncation and SetPadding).
package hftokenizer

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/gomlx/go-encodings/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OffsetsCharMode selects the unit of the offsets of the encodings produced.
type OffsetsCharMode int

const (
	// OffsetsBytes offsets are byte positions in the Go string (the default).
	OffsetsBytes OffsetsCharMode = iota

	// OffsetsUnicode offsets are positions in code points (runes).
	OffsetsUnicode
)

// Tokenizer implements the api.EncodingTokenizer interface for HuggingFace tokenizer.json files.
type Tokenizer struct {
	tokenizer  *TokenizerJSON
	idToToken  map[int]string
	mergeRanks map[string]int // For BPE: maps "token1 token2" to merge priority

	// addedTokens are sorted by decreasing content length, so the longest match wins.
	addedTokens   []AddedToken
	addedTokenIDs map[string]int

	normalize    compiledNormalizer
	preTokenizer *preTokenizer
	template     *template

	truncation  *encoding.TruncationParams
	padding     *encoding.PaddingParams
	offsetsMode OffsetsCharMode

	unkID   int
	special map[api.SpecialToken]int
}

// Compile time assert that Tokenizer implements the api interfaces.
var (
	_ api.Tokenizer          = &Tokenizer{}
	_ api.TokenizerWithSpans = &Tokenizer{}
	_ api.EncodingTokenizer  = &Tokenizer{}
)

// NewFromFile creates a HuggingFace tokenizer from a local tokenizer.json file path.
func NewFromFile(filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer.json file %q", filePath)
	}
	return NewFromContent(content)
}

// NewFromContent creates a HuggingFace tokenizer from tokenizer.json content.
//
// Invalid "truncation" or "padding" sections, and unsupported models, pre-tokenizers and
// post-processors are reported as errors. Unsupported normalizers are ignored with a warning.
func NewFromContent(content []byte) (*Tokenizer, error) {
	var tj TokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}
	switch tj.Model.Type {
	case "WordPiece", "WordLevel", "BPE":
	default:
		return nil, errors.Errorf("model type %q not supported", tj.Model.Type)
	}

	t := &Tokenizer{
		tokenizer:     &tj,
		idToToken:     make(map[int]string, len(tj.Model.Vocab)+len(tj.AddedTokens)),
		addedTokenIDs: make(map[string]int, len(tj.AddedTokens)),
		truncation:    tj.Truncation,
		padding:       tj.Padding,
		unkID:         -1,
		special:       make(map[api.SpecialToken]int),
	}
	var err error
	if t.normalize, err = compileNormalizer(tj.Normalizer); err != nil {
		return nil, errors.WithMessage(err, "tokenizer.json normalizer")
	}
	if t.preTokenizer, err = compilePreTokenizer(tj.PreTokenizer); err != nil {
		return nil, errors.WithMessage(err, "tokenizer.json pre_tokenizer")
	}
	if t.template, err = newTemplate(tj.PostProcessor); err != nil {
		return nil, errors.WithMessage(err, "tokenizer.json post_processor")
	}

	for token, id := range tj.Model.Vocab {
		t.idToToken[id] = token
	}
	for _, at := range tj.AddedTokens {
		t.idToToken[at.ID] = at.Content
		t.addedTokenIDs[at.Content] = at.ID
		if at.Content != "" {
			t.addedTokens = append(t.addedTokens, at)
		}
	}
	sort.SliceStable(t.addedTokens, func(i, j int) bool {
		return len(t.addedTokens[i].Content) > len(t.addedTokens[j].Content)
	})

	if tj.Model.Type == "BPE" {
		t.mergeRanks = make(map[string]int, len(tj.Model.Merges))
		for i, merge := range tj.Model.Merges {
			t.mergeRanks[merge] = i
		}
	}
	t.resolveSpecialTokens()
	return t, nil
}

// specialTokenContents lists, by order of preference, the usual contents of each special token.
var specialTokenContents = map[api.SpecialToken][]string{
	api.TokUnknown:             {"[UNK]", "<unk>"},
	api.TokPad:                 {"[PAD]", "<pad>", "<|padding|>"},
	api.TokClassification:      {"[CLS]", "<s>"},
	api.TokBeginningOfSentence: {"<s>", "<bos>", "<|begin_of_text|>", "[CLS]"},
	api.TokEndOfSentence:       {"</s>", "<eos>", "<|endoftext|>", "[SEP]"},
	api.TokMask:                {"[MASK]", "<mask>"},
}

// resolveSpecialTokens maps special tokens to their IDs, from the model's unk_token and the
// special added tokens (falling back to the vocabulary).
func (t *Tokenizer) resolveSpecialTokens() {
	special := make(map[string]int)
	for _, at := range t.tokenizer.AddedTokens {
		if at.Special {
			special[at.Content] = at.ID
		}
	}
	for token, contents := range specialTokenContents {
		for _, content := range contents {
			id, found := special[content]
			if !found {
				id, found = t.tokenizer.Model.Vocab[content]
			}
			if found {
				t.special[token] = id
				break
			}
		}
	}
	if unk := t.tokenizer.Model.UnkToken; unk != "" {
		if id, ok := t.TokenToID(unk); ok {
			t.special[api.TokUnknown] = id
		}
	}
	if id, found := t.special[api.TokUnknown]; found && t.tokenizer.Model.UnkToken != "" {
		t.unkID = id
	}
}

// SetOffsetsCharMode selects the unit of the offsets of the encodings produced. The default is OffsetsBytes.
func (t *Tokenizer) SetOffsetsCharMode(mode OffsetsCharMode) {
	t.offsetsMode = mode
}

// SetTruncation overrides the truncation of the tokenizer.json file. Use nil to disable truncation.
func (t *Tokenizer) SetTruncation(params *encoding.TruncationParams) error {
	if params != nil {
		if err := params.Validate(); err != nil {
			return err
		}
		copied := *params
		params = &copied
	}
	t.truncation = params
	return nil
}

// Truncation returns a copy of the truncation configuration, or nil if disabled.
func (t *Tokenizer) Truncation() *encoding.TruncationParams {
	if t.truncation == nil {
		return nil
	}
	params := *t.truncation
	return &params
}

// SetPadding overrides the padding of the tokenizer.json file. Use nil to disable padding.
func (t *Tokenizer) SetPadding(params *encoding.PaddingParams) error {
	if params != nil {
		if err := params.Validate(); err != nil {
			return err
		}
		copied := *params
		params = &copied
	}
	t.padding = params
	return nil
}

// Padding returns a copy of the padding configuration, or nil if disabled.
func (t *Tokenizer) Padding() *encoding.PaddingParams {
	if t.padding == nil {
		return nil
	}
	params := *t.padding
	return &params
}

// Encode converts text to a sequence of token IDs, including the special tokens of the
// post-processor. Errors (only possible with an OnlySecond truncation) are logged and return nil.
func (t *Tokenizer) Encode(text string) []int {
	e, err := t.EncodeEncoding(text)
	if err != nil {
		klog.Errorf("hftokenizer: %+v", err)
		return nil
	}
	return e.IDs()
}

// EncodeWithSpans returns the token IDs of Encode along with their byte spans in text.
// Special tokens have empty spans.
func (t *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	e, err := t.encode(text, nil, OffsetsBytes, true)
	if err != nil {
		klog.Errorf("hftokenizer: %+v", err)
		return api.EncodingResult{}
	}
	return api.EncodingResult{IDs: e.IDs(), Spans: api.SpansFromEncoding(e)}
}

// EncodeEncoding returns the Encoding of text: truncated, with the special tokens of the
// post-processor and padded, as configured.
func (t *Tokenizer) EncodeEncoding(text string) (*encoding.Encoding, error) {
	return t.encode(text, nil, t.offsetsMode, true)
}

// EncodePair returns the Encoding of the pair (first, second). Tokens of second have sequence id 1.
func (t *Tokenizer) EncodePair(first, second string) (*encoding.Encoding, error) {
	return t.encode(first, &second, t.offsetsMode, true)
}

// EncodeBatch encodes each text as EncodeEncoding, except that the batch is padded together:
// to the longest encoding of the batch, or to the fixed length configured.
func (t *Tokenizer) EncodeBatch(texts []string) ([]*encoding.Encoding, error) {
	encodings := make([]*encoding.Encoding, len(texts))
	for i, text := range texts {
		e, err := t.encode(text, nil, t.offsetsMode, false)
		if err != nil {
			return nil, errors.WithMessagef(err, "encoding text #%d", i)
		}
		encodings[i] = e
	}
	if t.padding != nil {
		if err := encoding.PadBatch(encodings, *t.padding); err != nil {
			return nil, err
		}
	}
	return encodings, nil
}

// encode tokenizes first (and second if not nil) and applies truncation, post-processing and,
// if pad is set, padding.
func (t *Tokenizer) encode(first string, second *string, mode OffsetsCharMode, pad bool) (*encoding.Encoding, error) {
	e := t.encodeSequence(first, mode)
	isPair := second != nil
	if isPair {
		var err error
		e, err = encoding.NewPair(e, t.encodeSequence(*second, mode))
		if err != nil {
			return nil, err
		}
	}

	if t.truncation != nil {
		params := *t.truncation
		params.MaxLength = max(params.MaxLength-t.template.addedTokens(isPair), 0)
		if err := e.TruncateWithParams(params); err != nil {
			return nil, errors.WithMessage(err, "truncating encoding")
		}
	}

	e, err := t.postProcess(e)
	if err != nil {
		return nil, errors.WithMessage(err, "post-processing encoding")
	}

	if pad && t.padding != nil {
		if err := e.PadWithParams(*t.padding); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// postProcess adds the special tokens of the template to e and to each of its overflowing encodings.
func (t *Tokenizer) postProcess(e *encoding.Encoding) (*encoding.Encoding, error) {
	if t.template == nil {
		return e, nil
	}
	overflowing := e.TakeOverflowing()
	result, err := t.template.apply(e)
	if err != nil {
		return nil, err
	}
	processed := make([]*encoding.Encoding, 0, len(overflowing))
	for i, o := range overflowing {
		p, err := t.template.apply(o)
		if err != nil {
			return nil, errors.WithMessagef(err, "overflowing encoding #%d", i)
		}
		processed = append(processed, p)
	}
	if err := result.SetOverflowing(processed); err != nil {
		return nil, err
	}
	return result, nil
}

// piece is a part of the input text: either an added token or text to normalize and tokenize.
type piece struct {
	start, end int
	added      *AddedToken
}

// encodeSequence tokenizes text into an Encoding with sequence id 0 and no special tokens
// (other than added tokens found in the text).
func (t *Tokenizer) encodeSequence(text string, mode OffsetsCharMode) *encoding.Encoding {
	var tokens []encoding.Token
	wordID := 0
	for _, p := range t.splitOnAddedTokens(text) {
		if p.added != nil {
			tokens = append(tokens, encoding.Token{
				ID:      p.added.ID,
				Value:   p.added.Content,
				Offsets: encoding.Offsets{Start: p.start, End: p.end},
				WordID:  wordID,
			})
			wordID++
			continue
		}
		ns := newNormalizedString(text[p.start:p.end], p.start)
		t.normalize(ns)
		for _, sp := range t.preTokenizer.preTokenize(ns) {
			word := ns.text[sp.start:sp.end]
			for _, mt := range t.tokenizeWord(word) {
				tokens = append(tokens, encoding.Token{
					ID:      mt.id,
					Value:   mt.value,
					Offsets: ns.original(sp.start+mt.start, sp.start+mt.end),
					WordID:  wordID,
				})
			}
			wordID++
		}
	}
	if mode == OffsetsUnicode {
		toRunes := runeOffsets(text)
		for i := range tokens {
			tokens[i].Offsets = encoding.Offsets{Start: toRunes[tokens[i].Offsets.Start], End: toRunes[tokens[i].Offsets.End]}
		}
	}
	return encoding.New(tokens, 0)
}

// runeOffsets returns, for each byte position of text (and len(text)), the number of runes before it.
func runeOffsets(text string) []int {
	out := make([]int, len(text)+1)
	count := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for j := range size {
			out[i+j] = count
		}
		count++
		i += size
	}
	out[len(text)] = count
	return out
}

// splitOnAddedTokens finds the added tokens in text. With Lstrip or Rstrip, the whitespace next to
// the token is part of its match; with SingleWord it must not be surrounded by word characters.
func (t *Tokenizer) splitOnAddedTokens(text string) []piece {
	if len(t.addedTokens) == 0 {
		return []piece{{start: 0, end: len(text)}}
	}
	var pieces []piece
	last := 0
	for i := 0; i < len(text); {
		at, start, end := t.matchAddedToken(text, i)
		if at == nil {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			continue
		}
		if start > last {
			pieces = append(pieces, piece{start: last, end: start})
		}
		pieces = append(pieces, piece{start: start, end: end, added: at})
		last, i = end, end
	}
	if last < len(text) {
		pieces = append(pieces, piece{start: last, end: len(text)})
	}
	return pieces
}

// matchAddedToken returns the added token matched at byte i (and its extended match range).
func (t *Tokenizer) matchAddedToken(text string, i int) (*AddedToken, int, int) {
	for idx := range t.addedTokens {
		at := &t.addedTokens[idx]
		if !strings.HasPrefix(text[i:], at.Content) {
			continue
		}
		start, end := i, i+len(at.Content)
		if at.SingleWord {
			before, _ := utf8.DecodeLastRuneInString(text[:start])
			after, _ := utf8.DecodeRuneInString(text[end:])
			if (start > 0 && isWordRune(before)) || (end < len(text) && isWordRune(after)) {
				continue
			}
		}
		if at.Lstrip {
			trimmed := strings.TrimRight(text[:start], " \t\n\r")
			start = len(trimmed)
		}
		if at.Rstrip {
			end = len(text) - len(strings.TrimLeft(text[end:], " \t\n\r"))
		}
		return at, start, end
	}
	return nil, 0, 0
}

// SpecialTokenID returns the ID for a given special token.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	if id, found := t.special[token]; found {
		return id, nil
	}
	return 0, errors.Errorf("special token %s not found", token)
}

// VocabSize returns the size of the vocabulary, including the added tokens.
func (t *Tokenizer) VocabSize() int {
	return len(t.idToToken)
}

// GetVocab returns the full vocabulary mapping.
func (t *Tokenizer) GetVocab() map[string]int {
	vocab := make(map[string]int, len(t.idToToken))
	for k, v := range t.tokenizer.Model.Vocab {
		vocab[k] = v
	}
	for content, id := range t.addedTokenIDs {
		vocab[content] = id
	}
	return vocab
}

// GetTokenizerType returns the model type (WordPiece, WordLevel, BPE).
func (t *Tokenizer) GetTokenizerType() string {
	return t.tokenizer.Model.Type
}

// TokenToID converts a token string to its ID.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	if id, ok := t.addedTokenIDs[token]; ok {
		return id, true
	}
	id, ok := t.tokenizer.Model.Vocab[token]
	return id, ok
}

// IDToToken converts a token ID to its string.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	token, ok := t.idToToken[id]
	return token, ok
}

// AddedTokensList returns the list of added tokens sorted by ID.
func (t *Tokenizer) AddedTokensList() []AddedToken {
	result := make([]AddedToken, len(t.tokenizer.AddedTokens))
	copy(result, t.tokenizer.AddedTokens)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
