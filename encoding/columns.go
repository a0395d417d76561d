package encoding

import "github.com/pkg/errors"

// columns holds the per-token arrays of an Encoding. All of them always have the same length:
// they are only ever built with push and pushRange, and swapped into an Encoding as a whole.
type columns struct {
	ids               []int
	typeIDs           []int
	tokens            []string
	offsets           []Offsets
	wordIDs           []int
	specialTokensMask []int
	attentionMask     []int
	sequenceIDs       []int
}

func makeColumns(capacity int) columns {
	return columns{
		ids:               make([]int, 0, capacity),
		typeIDs:           make([]int, 0, capacity),
		tokens:            make([]string, 0, capacity),
		offsets:           make([]Offsets, 0, capacity),
		wordIDs:           make([]int, 0, capacity),
		specialTokensMask: make([]int, 0, capacity),
		attentionMask:     make([]int, 0, capacity),
		sequenceIDs:       make([]int, 0, capacity),
	}
}

func (c *columns) len() int { return len(c.ids) }

func (c *columns) push(id, typeID int, token string, offsets Offsets, wordID, special, attention, sequenceID int) {
	c.ids = append(c.ids, id)
	c.typeIDs = append(c.typeIDs, typeID)
	c.tokens = append(c.tokens, token)
	c.offsets = append(c.offsets, offsets)
	c.wordIDs = append(c.wordIDs, wordID)
	c.specialTokensMask = append(c.specialTokensMask, special)
	c.attentionMask = append(c.attentionMask, attention)
	c.sequenceIDs = append(c.sequenceIDs, sequenceID)
}

// pushRange appends the tokens [start, end) of src, shifting their offsets by offsetShift.
func (c *columns) pushRange(src *columns, start, end, offsetShift int) {
	c.ids = append(c.ids, src.ids[start:end]...)
	c.typeIDs = append(c.typeIDs, src.typeIDs[start:end]...)
	c.tokens = append(c.tokens, src.tokens[start:end]...)
	for _, o := range src.offsets[start:end] {
		c.offsets = append(c.offsets, Offsets{Start: o.Start + offsetShift, End: o.End + offsetShift})
	}
	c.wordIDs = append(c.wordIDs, src.wordIDs[start:end]...)
	c.specialTokensMask = append(c.specialTokensMask, src.specialTokensMask[start:end]...)
	c.attentionMask = append(c.attentionMask, src.attentionMask[start:end]...)
	c.sequenceIDs = append(c.sequenceIDs, src.sequenceIDs[start:end]...)
}

// pushPadding appends count padding tokens.
func (c *columns) pushPadding(count, padID, padTypeID int, padToken string) {
	for range count {
		c.push(padID, padTypeID, padToken, Offsets{}, None, 1, 0, None)
	}
}

// slice returns a detached copy of the tokens [start, end).
func (c *columns) slice(start, end int) columns {
	out := makeColumns(end - start)
	out.pushRange(c, start, end, 0)
	return out
}

func (c *columns) clone() columns {
	return c.slice(0, c.len())
}

// concatColumns returns a followed by b. With growingOffsets the offsets of b are shifted by the
// end offset of the last token of a.
func concatColumns(a, b *columns, growingOffsets bool) columns {
	out := makeColumns(a.len() + b.len())
	out.pushRange(a, 0, a.len(), 0)
	shift := 0
	if growingOffsets && a.len() > 0 {
		shift = a.offsets[a.len()-1].End
	}
	out.pushRange(b, 0, b.len(), shift)
	return out
}

// validate checks that all arrays have the same length and that sequence ids are in range.
func (c *columns) validate(nSequences int) error {
	n := c.len()
	lengths := map[string]int{
		"type_ids":            len(c.typeIDs),
		"tokens":              len(c.tokens),
		"offsets":             len(c.offsets),
		"word_ids":            len(c.wordIDs),
		"special_tokens_mask": len(c.specialTokensMask),
		"attention_mask":      len(c.attentionMask),
		"sequence_ids":        len(c.sequenceIDs),
	}
	for name, l := range lengths {
		if l != n {
			return errors.Wrapf(ErrInvalidParameter, "%s has %d entries, ids has %d", name, l, n)
		}
	}
	for i, seq := range c.sequenceIDs {
		if seq != None && (seq < 0 || seq >= nSequences) {
			return errors.Wrapf(ErrInvalidParameter, "token #%d has sequence id %d, encoding has %d sequence(s)", i, seq, nSequences)
		}
	}
	return nil
}

// maxSequenceID returns the largest sequence id, or None if no token belongs to a sequence.
func (c *columns) maxSequenceID() int {
	result := None
	for _, seq := range c.sequenceIDs {
		result = max(result, seq)
	}
	return result
}

// derivedSequences is the number of sequences implied by the sequence ids: the largest id plus one,
// and at least 1.
func (c *columns) derivedSequences() int {
	return max(c.maxSequenceID()+1, 1)
}
