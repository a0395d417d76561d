package hftokenizer

import (
	"encoding/json"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/pkg/errors"
)

// TokenizerJSON represents the structure of HuggingFace's tokenizer.json file.
//
// The "truncation" and "padding" sections are decoded (and validated) directly into the
// encoding package parameters: null means disabled.
type TokenizerJSON struct {
	Version       string                     `json:"version"`
	Truncation    *encoding.TruncationParams `json:"truncation"`
	Padding       *encoding.PaddingParams    `json:"padding"`
	AddedTokens   []AddedToken               `json:"added_tokens"`
	Normalizer    *Normalizer                `json:"normalizer"`
	PreTokenizer  *PreTokenizer              `json:"pre_tokenizer"`
	PostProcessor *PostProcessor             `json:"post_processor"`
	Decoder       *Decoder                   `json:"decoder"`
	Model         Model                      `json:"model"`
}

// AddedToken represents a token added to the vocabulary, matched in the text before normalization.
type AddedToken struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	Lstrip     bool   `json:"lstrip"`
	Rstrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

// Normalizer represents the normalizer configuration.
// Optional flags of BertNormalizer are pointers, so their defaults can be told apart from false.
type Normalizer struct {
	Type               string       `json:"type"`
	CleanText          *bool        `json:"clean_text"`
	HandleChineseChars *bool        `json:"handle_chinese_chars"`
	StripAccents       *bool        `json:"strip_accents"`
	Lowercase          *bool        `json:"lowercase"`
	Normalizers        []Normalizer `json:"normalizers"`
	Pattern            *Pattern     `json:"pattern"`
	Content            string       `json:"content"`
	Prepend            string       `json:"prepend"`
	StripLeft          bool         `json:"strip_left"`
	StripRight         bool         `json:"strip_right"`
}

// Pattern for regex-based operations: exactly one of Regex or String is set.
type Pattern struct {
	Regex  string `json:"Regex,omitempty"`
	String string `json:"String,omitempty"`
}

// PreTokenizer represents the pre-tokenizer configuration.
type PreTokenizer struct {
	Type           string         `json:"type"`
	AddPrefixSpace bool           `json:"add_prefix_space"`
	PrependScheme  string         `json:"prepend_scheme"`
	Replacement    string         `json:"replacement"`
	PreTokenizers  []PreTokenizer `json:"pretokenizers"`
	Pattern        *Pattern       `json:"pattern"`
	Behavior       string         `json:"behavior"`
	Invert         bool           `json:"invert"`
}

// PostProcessor represents the post-processor configuration: TemplateProcessing, BertProcessing
// or RobertaProcessing.
type PostProcessor struct {
	Type          string                          `json:"type"`
	Single        []TemplateItem                  `json:"single"`
	Pair          []TemplateItem                  `json:"pair"`
	SpecialTokens map[string]TemplateSpecialToken `json:"special_tokens"`
	Sep           *TokenWithID                    `json:"sep"`
	Cls           *TokenWithID                    `json:"cls"`
}

// TemplateItem is one element of a TemplateProcessing template: either a special token or one of
// the input sequences ("A" or "B").
type TemplateItem struct {
	SpecialToken *TemplateRef `json:"SpecialToken,omitempty"`
	Sequence     *TemplateRef `json:"Sequence,omitempty"`
}

// TemplateRef names a special token (or a sequence) and the type id of its tokens.
type TemplateRef struct {
	ID     string `json:"id"`
	TypeID int    `json:"type_id"`
}

// TemplateSpecialToken defines the ids and tokens inserted for a special token of a template.
type TemplateSpecialToken struct {
	ID     string   `json:"id"`
	IDs    []int    `json:"ids"`
	Tokens []string `json:"tokens"`
}

// TokenWithID is the ["[SEP]", 102] form used by BertProcessing and RobertaProcessing.
type TokenWithID struct {
	Token string
	ID    int
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TokenWithID) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return errors.Errorf("expected [token, id], got %s", data)
	}
	if err := json.Unmarshal(tuple[0], &t.Token); err != nil {
		return errors.Wrapf(err, "token of %s", data)
	}
	if err := json.Unmarshal(tuple[1], &t.ID); err != nil {
		return errors.Wrapf(err, "id of %s", data)
	}
	return nil
}

// Decoder represents the decoder configuration.
type Decoder struct {
	Type     string    `json:"type"`
	Prefix   string    `json:"prefix"`
	Suffix   string    `json:"suffix"`
	Cleanup  bool      `json:"cleanup"`
	Decoders []Decoder `json:"decoders"`
	Pattern  *Pattern  `json:"pattern"`
	Content  string    `json:"content"`
	Start    int       `json:"start"`
	Stop     int       `json:"stop"`
}

// Model represents the tokenizer model: WordPiece, WordLevel or BPE.
type Model struct {
	Type                    string         `json:"type"`
	Vocab                   map[string]int `json:"vocab"`
	Merges                  []string       `json:"merges"`
	UnkToken                string         `json:"unk_token"`
	ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int            `json:"max_input_chars_per_word"`
	EndOfWordSuffix         string         `json:"end_of_word_suffix"`
}

func boolOr(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}
