package encoding

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pad extends e to targetLength tokens by adding padding tokens on the given side, and does the
// same to each of its overflowing encodings. It is a no-op for encodings already at least
// targetLength long.
//
// Padding tokens have the given id, type id and token, zero offsets, no word, no sequence,
// special tokens mask 1 and attention mask 0. The original tokens keep all their values, so
// coordinate queries keep mapping to them (with token indices shifted when padding on the Left).
func (e *Encoding) Pad(targetLength, padID, padTypeID int, padToken string, direction Direction) error {
	if err := e.checkPopulated(); err != nil {
		return err
	}
	if targetLength < 0 {
		return errors.Wrapf(ErrInvalidParameter, "padding target length must be >= 0, got %d", targetLength)
	}
	if err := direction.Validate(); err != nil {
		return err
	}
	e.pad(targetLength, padID, padTypeID, padToken, direction)
	return nil
}

// PadWithParams pads e as a batch of one: to the length of e itself for PadBatchLongest (so only
// PadToMultipleOf may change it), or to p.Length for PadFixed.
func (e *Encoding) PadWithParams(p PaddingParams) error {
	return PadBatch([]*Encoding{e}, p)
}

func (e *Encoding) pad(targetLength, padID, padTypeID int, padToken string, direction Direction) {
	for _, o := range e.overflowing {
		o.pad(targetLength, padID, padTypeID, padToken, direction)
	}
	n := e.cols.len()
	if n >= targetLength {
		return
	}
	cols := makeColumns(targetLength)
	if direction == Left {
		cols.pushPadding(targetLength-n, padID, padTypeID, padToken)
		cols.pushRange(&e.cols, 0, n, 0)
	} else {
		cols.pushRange(&e.cols, 0, n, 0)
		cols.pushPadding(targetLength-n, padID, padTypeID, padToken)
	}
	klog.V(3).Infof("padding %d tokens to %d on the %s", n, targetLength, direction)
	e.replace(cols, e.nSequences)
}
