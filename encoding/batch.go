package encoding

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PadBatch pads all encodings to the same length: the longest of the batch for PadBatchLongest, or
// p.Length for PadFixed, rounded up to a multiple of p.PadToMultipleOf if set.
// Overflowing encodings are padded to the same length.
//
// Parameters and encodings are all checked before any encoding is changed.
func PadBatch(encodings []*Encoding, p PaddingParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	longest := 0
	for i, e := range encodings {
		if err := e.checkPopulated(); err != nil {
			return errors.WithMessagef(err, "padding encoding #%d", i)
		}
		longest = max(longest, e.cols.len())
	}
	target := p.TargetLength(longest)
	klog.V(2).Infof("padding batch of %d encodings to %d (strategy=%s, direction=%s)",
		len(encodings), target, p.Strategy, p.Direction)
	for _, e := range encodings {
		e.pad(target, p.PadID, p.PadTypeID, p.PadToken, p.Direction)
	}
	return nil
}

// TruncateBatch truncates each encoding with TruncateWithParams.
// If any of them can't be truncated, an error is returned and none is changed.
func TruncateBatch(encodings []*Encoding, p TruncationParams) error {
	plans := make([]truncationPlan, len(encodings))
	for i, e := range encodings {
		if err := e.checkPopulated(); err != nil {
			return errors.WithMessagef(err, "truncating encoding #%d", i)
		}
		plan, err := planTruncation(e, p)
		if err != nil {
			return errors.WithMessagef(err, "truncating encoding #%d", i)
		}
		plans[i] = plan
	}
	for i, e := range encodings {
		plans[i].apply(e)
	}
	return nil
}
