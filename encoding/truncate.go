package encoding

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Truncate limits e to maxLength tokens, treating it as a single sequence. It is a no-op if e is
// not longer than maxLength.
//
// The removed tokens (from the end for Right, from the start for Left) are split into overflowing
// encodings of at most maxLength tokens, each one repeating the stride tokens of its neighbour
// that is closer to the kept part. They are appended to Overflowing in the order of the text.
//
// Edge cases: maxLength == 0 moves all tokens into a single overflowing encoding and empties e;
// a stride >= maxLength is saturated to maxLength-1.
func (e *Encoding) Truncate(maxLength, stride int, direction Direction) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	if err := checkTruncationArgs(maxLength, stride); err != nil {
		return err
	}
	if err := direction.Validate(); err != nil {
		return err
	}
	if e.cols.len() <= maxLength {
		return nil
	}
	kept, overflowing := truncateColumns(&e.cols, e.nSequences, maxLength, stride, direction)
	plan := truncationPlan{cols: kept, nSequences: e.nSequences, overflowing: overflowing}
	plan.apply(e)
	return nil
}

// TruncateWithParams truncates e according to p, applying the strategy when e is a pair.
//
// For a pair, the first sequence is made of the tokens before the first token of sequence 1 and
// the second one of the remaining tokens. Each is truncated to its share of p.MaxLength with the
// same stride and direction, and the results are merged back (see MergeWith for how the
// overflowing encodings of the two sequences are combined).
//
// It returns ErrInvalidStrategyForInput if the strategy can't remove enough tokens: OnlySecond on a
// single sequence, or OnlyFirst/OnlySecond when the sequence they trim is too short.
// Nothing is changed when an error is returned.
func (e *Encoding) TruncateWithParams(p TruncationParams) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	plan, err := planTruncation(e, p)
	if err != nil {
		return err
	}
	plan.apply(e)
	return nil
}

// truncationPlan holds the result of a truncation, computed without modifying the encoding.
type truncationPlan struct {
	noop        bool
	cols        columns
	nSequences  int
	overflowing []*Encoding
}

func (plan truncationPlan) apply(e *Encoding) {
	if plan.noop {
		return
	}
	e.replace(plan.cols, plan.nSequences)
	e.overflowing = append(e.overflowing, plan.overflowing...)
}

func planTruncation(e *Encoding, p TruncationParams) (truncationPlan, error) {
	if err := p.Validate(); err != nil {
		return truncationPlan{}, err
	}
	n := e.cols.len()
	if n <= p.MaxLength {
		return truncationPlan{noop: true}, nil
	}
	split, isPair := e.sequenceSplit()
	if !isPair {
		if p.Strategy == OnlySecond {
			return truncationPlan{}, errors.Wrapf(ErrInvalidStrategyForInput,
				"strategy %s requires a pair of sequences, encoding has %d tokens and max length is %d",
				p.Strategy, n, p.MaxLength)
		}
		kept, overflowing := truncateColumns(&e.cols, e.nSequences, p.MaxLength, p.Stride, p.Direction)
		return truncationPlan{cols: kept, nSequences: e.nSequences, overflowing: overflowing}, nil
	}

	n1, n2 := split, n-split
	toRemove := n - p.MaxLength
	switch p.Strategy {
	case LongestFirst:
		n1, n2 = longestFirstLengths(n1, n2, p.MaxLength)
	case OnlyFirst:
		if n1 < toRemove {
			return truncationPlan{}, errors.Wrapf(ErrInvalidStrategyForInput,
				"strategy %s can't remove %d tokens from a first sequence of %d tokens", p.Strategy, toRemove, n1)
		}
		n1 -= toRemove
	case OnlySecond:
		if n2 < toRemove {
			return truncationPlan{}, errors.Wrapf(ErrInvalidStrategyForInput,
				"strategy %s can't remove %d tokens from a second sequence of %d tokens", p.Strategy, toRemove, n2)
		}
		n2 -= toRemove
	}
	klog.V(2).Infof("truncating pair of %d+%d tokens to %d+%d (strategy=%s, stride=%d, direction=%s)",
		split, n-split, n1, n2, p.Strategy, p.Stride, p.Direction)

	first, second := e.cols.slice(0, split), e.cols.slice(split, n)
	firstPart := truncatedPart(&first, e.nSequences, n1, p)
	secondPart := truncatedPart(&second, e.nSequences, n2, p)
	merged := mergePair(firstPart, secondPart, false)
	return truncationPlan{cols: merged.cols, nSequences: e.nSequences, overflowing: merged.overflowing}, nil
}

func truncatedPart(cols *columns, nSequences, maxLength int, p TruncationParams) *Encoding {
	kept, overflowing := truncateColumns(cols, nSequences, maxLength, p.Stride, p.Direction)
	return newEncoding(kept, nSequences, overflowing)
}

// sequenceSplit returns the index of the first token of the second sequence, or the length of e if
// the second sequence is empty. isPair is false for single sequence encodings.
func (e *Encoding) sequenceSplit() (split int, isPair bool) {
	if e.nSequences < 2 {
		return e.cols.len(), false
	}
	for i, seq := range e.cols.sequenceIDs {
		if seq == 1 {
			return i, true
		}
	}
	return e.cols.len(), true
}

// longestFirstLengths removes tokens one at a time from the longer of the two sequences
// (the first one on ties) until they fit maxLength together.
func longestFirstLengths(n1, n2, maxLength int) (int, int) {
	for n1+n2 > maxLength {
		if n1 >= n2 {
			n1--
		} else {
			n2--
		}
	}
	return n1, n2
}

// truncateColumns returns the maxLength tokens of c kept by truncation in the given direction,
// and the overflowing encodings (in text order) built from windows over the removed part.
// It doesn't modify c. If c fits in maxLength it returns a copy of it and no overflowing.
func truncateColumns(c *columns, nSequences, maxLength, stride int, direction Direction) (columns, []*Encoding) {
	n := c.len()
	if n <= maxLength {
		return c.clone(), nil
	}
	if maxLength == 0 {
		klog.V(2).Infof("truncating %d tokens to 0: all moved to overflowing", n)
		return makeColumns(0), []*Encoding{newEncoding(c.clone(), nSequences, nil)}
	}
	stride = min(stride, maxLength-1)
	step := maxLength - stride

	// windows holds the [start, end) ranges of the overflowing encodings, in text order.
	var kept [2]int
	var windows [][2]int
	if direction == Right {
		kept = [2]int{0, maxLength}
		for start := step; ; start += step {
			end := min(start+maxLength, n)
			windows = append(windows, [2]int{start, end})
			if end == n {
				break
			}
		}
	} else {
		kept = [2]int{n - maxLength, n}
		for end := n - step; ; end -= step {
			start := max(end-maxLength, 0)
			windows = append(windows, [2]int{start, end})
			if start == 0 {
				break
			}
		}
		// Windows were generated right to left.
		slices.Reverse(windows)
	}

	overflowing := make([]*Encoding, 0, len(windows))
	for _, w := range windows {
		overflowing = append(overflowing, newEncoding(c.slice(w[0], w[1]), nSequences, nil))
	}
	klog.V(2).Infof("truncating %d tokens to %d (stride=%d, direction=%s): %d overflowing encoding(s)",
		n, maxLength, stride, direction, len(overflowing))
	return c.slice(kept[0], kept[1]), overflowing
}
