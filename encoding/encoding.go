// Package encoding implements the Encoding produced by a tokenizer for one or two input sequences:
// the parallel per-token arrays fed to a model (ids, type ids, attention mask), the alignment
// information used to map model outputs back to the input text (tokens, offsets, word ids,
// sequence ids), and the truncation and padding operations applied before batching.
//
// An Encoding is created by a tokenizer (see New, FromParts, NewPair), optionally truncated
// (which moves the removed content into "overflowing" encodings), optionally padded, and then
// queried with the coordinate methods (CharToToken, WordToTokens, TokenToChars, ...).
//
// Encodings are not safe for concurrent mutation, but different Encodings (including the
// overflowing ones) share no state and can be processed by different goroutines.
package encoding

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// None marks the absence of a word id or a sequence id, and is returned by lookups that found nothing.
const None = -1

// Offsets is a [Start, End) range of positions in the original input text.
// Tokens with no text origin (special tokens, padding) have zero Offsets.
type Offsets struct {
	Start, End int
}

// Len returns End-Start.
func (o Offsets) Len() int { return o.End - o.Start }

// Contains returns whether pos is in [Start, End).
func (o Offsets) Contains(pos int) bool { return pos >= o.Start && pos < o.End }

// Token is one token as produced by a tokenizer model, before post-processing.
type Token struct {
	ID      int
	Value   string
	Offsets Offsets
	// WordID groups sub-word tokens of the same word. Use None for tokens with no word origin.
	WordID int
}

// Parts holds the per-token arrays used by FromParts. Only IDs is required: nil arrays take their
// default values (type id 0, empty token, zero offsets, no word, not special, attended, sequence 0).
type Parts struct {
	IDs               []int
	TypeIDs           []int
	Tokens            []string
	Offsets           []Offsets
	WordIDs           []int
	SpecialTokensMask []int
	AttentionMask     []int
	SequenceIDs       []int

	// NSequences is the number of input sequences. If 0 it is derived from SequenceIDs.
	NSequences int

	// Overflowing encodings are copied into the new Encoding.
	Overflowing []*Encoding
}

// Encoding is the tokenized form of one or two input sequences.
//
// The zero value is not populated and can't be used: create it with New, NewEmpty, FromParts,
// NewPair or Merge.
type Encoding struct {
	cols        columns
	nSequences  int
	overflowing []*Encoding
	index       *coordinateIndex
	populated   bool
}

func newEncoding(cols columns, nSequences int, overflowing []*Encoding) *Encoding {
	e := &Encoding{overflowing: overflowing}
	e.replace(cols, nSequences)
	return e
}

// replace is the single entry point that swaps the per-token arrays of e. The new arrays are fully
// built before this is called, so no partially updated state is ever observable.
func (e *Encoding) replace(cols columns, nSequences int) {
	e.cols = cols
	e.nSequences = nSequences
	e.index = buildIndex(&e.cols)
	e.populated = true
}

// New creates a single sequence Encoding (sequence id 0) from the tokens produced by a model.
// All tokens get the given typeID, are attended to and are not special.
func New(tokens []Token, typeID int) *Encoding {
	cols := makeColumns(len(tokens))
	for _, t := range tokens {
		cols.push(t.ID, typeID, t.Value, t.Offsets, t.WordID, 0, 1, 0)
	}
	return newEncoding(cols, 1, nil)
}

// NewEmpty creates a populated Encoding with no tokens.
func NewEmpty() *Encoding {
	return newEncoding(makeColumns(0), 1, nil)
}

// FromParts creates an Encoding from its parallel arrays, see Parts for defaults.
// It returns ErrInvalidParameter if the arrays have different lengths or if sequence ids are out of range,
// and ErrUninitialized if one of the overflowing encodings was never populated.
func FromParts(parts Parts) (*Encoding, error) {
	n := len(parts.IDs)
	cols := columns{
		ids:               slices.Clone(parts.IDs),
		typeIDs:           cloneOrFill(parts.TypeIDs, n, 0),
		tokens:            cloneOrFill(parts.Tokens, n, ""),
		offsets:           cloneOrFill(parts.Offsets, n, Offsets{}),
		wordIDs:           cloneOrFill(parts.WordIDs, n, None),
		specialTokensMask: cloneOrFill(parts.SpecialTokensMask, n, 0),
		attentionMask:     cloneOrFill(parts.AttentionMask, n, 1),
		sequenceIDs:       cloneOrFill(parts.SequenceIDs, n, 0),
	}
	if cols.ids == nil {
		cols.ids = []int{}
	}
	nSequences := parts.NSequences
	if nSequences == 0 {
		nSequences = cols.derivedSequences()
	}
	if err := cols.validate(nSequences); err != nil {
		return nil, err
	}
	overflowing := make([]*Encoding, 0, len(parts.Overflowing))
	for _, o := range parts.Overflowing {
		if err := o.checkPopulated(); err != nil {
			return nil, err
		}
		overflowing = append(overflowing, o.clone())
	}
	return newEncoding(cols, nSequences, overflowing), nil
}

func cloneOrFill[T any](values []T, n int, fill T) []T {
	if values != nil {
		return slices.Clone(values)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = fill
	}
	return out
}

// IsPopulated returns whether e was created with token data. The zero Encoding and nil are not.
func (e *Encoding) IsPopulated() bool {
	return e.checkPopulated() == nil
}

// Len returns the number of tokens.
func (e *Encoding) Len() int {
	e.mustBePopulated()
	return e.cols.len()
}

// IsEmpty returns whether e has no tokens.
func (e *Encoding) IsEmpty() bool {
	return e.Len() == 0
}

// NSequences returns the number of input sequences represented: 1, or 2 for a pair.
func (e *Encoding) NSequences() int {
	e.mustBePopulated()
	return e.nSequences
}

// IDs returns a copy of the vocabulary ids.
func (e *Encoding) IDs() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.ids)
}

// TypeIDs returns a copy of the type ids.
func (e *Encoding) TypeIDs() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.typeIDs)
}

// Tokens returns a copy of the textual tokens.
func (e *Encoding) Tokens() []string {
	e.mustBePopulated()
	return slices.Clone(e.cols.tokens)
}

// Offsets returns a copy of the offsets of each token in the original text.
func (e *Encoding) Offsets() []Offsets {
	e.mustBePopulated()
	return slices.Clone(e.cols.offsets)
}

// WordIDs returns a copy of the word ids, None for tokens with no word.
func (e *Encoding) WordIDs() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.wordIDs)
}

// SpecialTokensMask returns a copy of the special tokens mask: 1 for tokens added by post-processing
// or padding.
func (e *Encoding) SpecialTokensMask() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.specialTokensMask)
}

// AttentionMask returns a copy of the attention mask: 0 for padding.
func (e *Encoding) AttentionMask() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.attentionMask)
}

// SequenceIDs returns a copy of the sequence id of each token, None for tokens that belong to no
// sequence (padding, injected special tokens).
func (e *Encoding) SequenceIDs() []int {
	e.mustBePopulated()
	return slices.Clone(e.cols.sequenceIDs)
}

// Overflowing returns copies of the encodings removed by truncation, in the order of the original text.
// Changing them doesn't affect e.
func (e *Encoding) Overflowing() []*Encoding {
	e.mustBePopulated()
	out := make([]*Encoding, len(e.overflowing))
	for i, o := range e.overflowing {
		out[i] = o.clone()
	}
	return out
}

// TakeOverflowing returns the overflowing encodings and removes them from e, without copying.
func (e *Encoding) TakeOverflowing() []*Encoding {
	e.mustBePopulated()
	out := e.overflowing
	e.overflowing = nil
	return out
}

// Clone returns a deep copy of e, overflowing encodings included.
func (e *Encoding) Clone() *Encoding {
	e.mustBePopulated()
	return e.clone()
}

func (e *Encoding) clone() *Encoding {
	c := &Encoding{
		cols:       e.cols.clone(),
		nSequences: e.nSequences,
		index:      e.index, // Read-only once built.
		populated:  true,
	}
	if len(e.overflowing) > 0 {
		c.overflowing = make([]*Encoding, len(e.overflowing))
		for i, o := range e.overflowing {
			c.overflowing[i] = o.clone()
		}
	}
	return c
}

// withoutOverflowing returns a shallow view of e with no overflowing encodings, only to be read.
func (e *Encoding) withoutOverflowing() *Encoding {
	view := *e
	view.overflowing = nil
	return &view
}

// SetSequenceID marks every token (and every token of the overflowing encodings) as belonging to
// the input sequence id, 0 or 1. It is used to mark the second encoding of a pair with 1 before
// merging.
func (e *Encoding) SetSequenceID(id int) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	if id < 0 || id > 1 {
		return errors.Wrapf(ErrInvalidParameter, "sequence id must be 0 or 1, got %d", id)
	}
	e.setSequenceID(id)
	return nil
}

func (e *Encoding) setSequenceID(id int) {
	cols := e.cols.clone()
	for i := range cols.sequenceIDs {
		cols.sequenceIDs[i] = id
	}
	e.replace(cols, max(e.nSequences, cols.derivedSequences()))
	for _, o := range e.overflowing {
		o.setSequenceID(id)
	}
}

// SetTypeID sets the type id of every token (and of every token of the overflowing encodings).
// Post-processors use it to mark the segment of each sequence of a pair.
func (e *Encoding) SetTypeID(typeID int) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	e.setTypeID(typeID)
	return nil
}

func (e *Encoding) setTypeID(typeID int) {
	cols := e.cols.clone()
	for i := range cols.typeIDs {
		cols.typeIDs[i] = typeID
	}
	e.replace(cols, e.nSequences)
	for _, o := range e.overflowing {
		o.setTypeID(typeID)
	}
}

// SplitPair returns the two sequences of a pair as separate encodings: the tokens before the
// first token of sequence 1, and the remaining ones. Both keep the sequence ids, offsets and
// NSequences of e, and have no overflowing. For a single sequence, second is nil.
func (e *Encoding) SplitPair() (first, second *Encoding, err error) {
	if err = e.checkPopulated(); err != nil {
		return nil, nil, err
	}
	split, isPair := e.sequenceSplit()
	first = newEncoding(e.cols.slice(0, split), e.nSequences, nil)
	if isPair {
		second = newEncoding(e.cols.slice(split, e.cols.len()), e.nSequences, nil)
	}
	return first, second, nil
}

// SetOverflowing replaces the overflowing encodings of e with copies of the given ones.
func (e *Encoding) SetOverflowing(overflowing []*Encoding) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	copies := make([]*Encoding, 0, len(overflowing))
	for i, o := range overflowing {
		if err := o.checkPopulated(); err != nil {
			return errors.WithMessagef(err, "overflowing encoding #%d", i)
		}
		copies = append(copies, o.clone())
	}
	e.overflowing = copies
	return nil
}

// MergeWith appends pair to e. With growingOffsets the offsets of pair are shifted to start after
// the last offset of e (used when both were produced from consecutive parts of one text).
//
// Overflowing encodings are combined: each overflowing of e is merged with pair, then with each
// overflowing of pair; then e is merged with each overflowing of pair.
func (e *Encoding) MergeWith(pair *Encoding, growingOffsets bool) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	if err := pair.checkPopulated(); err != nil {
		return errors.WithMessage(err, "merging pair")
	}
	merged := mergePair(e, pair, growingOffsets)
	e.replace(merged.cols, merged.nSequences)
	e.overflowing = merged.overflowing
	return nil
}

func mergePair(a, b *Encoding, growingOffsets bool) *Encoding {
	var overflowing []*Encoding
	bAlone := b.withoutOverflowing()
	for _, ao := range a.overflowing {
		aoAlone := ao.withoutOverflowing()
		overflowing = append(overflowing, mergePair(aoAlone, bAlone, growingOffsets))
		for _, bo := range b.overflowing {
			overflowing = append(overflowing, mergePair(aoAlone, bo.withoutOverflowing(), growingOffsets))
		}
	}
	aAlone := a.withoutOverflowing()
	for _, bo := range b.overflowing {
		overflowing = append(overflowing, mergePair(aAlone, bo.withoutOverflowing(), growingOffsets))
	}
	cols := concatColumns(&a.cols, &b.cols, growingOffsets)
	nSequences := max(a.nSequences, b.nSequences, cols.derivedSequences())
	return newEncoding(cols, nSequences, overflowing)
}

// Merge concatenates the encodings, see MergeWith.
func Merge(encodings []*Encoding, growingOffsets bool) (*Encoding, error) {
	merged := NewEmpty()
	for i, sub := range encodings {
		if err := merged.MergeWith(sub, growingOffsets); err != nil {
			return nil, errors.WithMessagef(err, "merging encoding #%d", i)
		}
	}
	return merged, nil
}

// NewPair returns the pair encoding of first followed by second, where the tokens of second are
// marked as sequence 1 with type id 1. The inputs are not modified.
func NewPair(first, second *Encoding) (*Encoding, error) {
	if err := first.checkPopulated(); err != nil {
		return nil, err
	}
	if err := second.checkPopulated(); err != nil {
		return nil, err
	}
	pair := second.clone()
	pair.setSequenceID(1)
	pair.setTypeID(1)
	result := first.clone()
	if err := result.MergeWith(pair, false); err != nil {
		return nil, err
	}
	return result, nil
}

// String implements fmt.Stringer.
func (e *Encoding) String() string {
	if !e.IsPopulated() {
		return "Encoding(uninitialized)"
	}
	return fmt.Sprintf("Encoding(num_tokens=%d, n_sequences=%d, overflowing=%d)",
		e.cols.len(), e.nSequences, len(e.overflowing))
}
