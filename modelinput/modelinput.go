// Package modelinput flattens a batch of padded encodings into the row-major int32 buffers of shape
// [batchSize, seqLen] that transformer models take as input, and converts them to GoMLX tensors.
package modelinput

import (
	"math"
	"unsafe"

	"github.com/gomlx/go-encodings/encoding"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Batch holds the model inputs of a batch of encodings of the same length.
// Each buffer has BatchSize*SeqLen elements, in row-major order.
type Batch struct {
	BatchSize, SeqLen int

	InputIDs          []int32
	TypeIDs           []int32
	AttentionMask     []int32
	SpecialTokensMask []int32

	// SampleIndex maps each row to the index of the encoding it came from. With FlattenOverflowing,
	// the overflowing encodings share the index of their parent.
	SampleIndex []int
}

// Flatten converts encodings, which must all have the same length (see encoding.PadBatch), to a Batch.
// Overflowing encodings are ignored.
func Flatten(encodings []*encoding.Encoding) (*Batch, error) {
	sampleIndex := make([]int, len(encodings))
	for i := range sampleIndex {
		sampleIndex[i] = i
	}
	return flatten(encodings, sampleIndex)
}

// FlattenOverflowing is like Flatten, but each encoding is followed by its overflowing encodings as
// extra rows. Use SampleIndex to map the rows back to the encodings.
func FlattenOverflowing(encodings []*encoding.Encoding) (*Batch, error) {
	var rows []*encoding.Encoding
	var sampleIndex []int
	for i, e := range encodings {
		if !e.IsPopulated() {
			return nil, errors.Wrapf(encoding.ErrUninitialized, "encoding #%d", i)
		}
		rows = append(rows, e)
		sampleIndex = append(sampleIndex, i)
		for _, o := range e.Overflowing() {
			rows = append(rows, o)
			sampleIndex = append(sampleIndex, i)
		}
	}
	return flatten(rows, sampleIndex)
}

func flatten(encodings []*encoding.Encoding, sampleIndex []int) (*Batch, error) {
	if len(encodings) == 0 {
		return nil, errors.Wrap(encoding.ErrInvalidParameter, "empty batch")
	}
	seqLen := -1
	for i, e := range encodings {
		if !e.IsPopulated() {
			return nil, errors.Wrapf(encoding.ErrUninitialized, "row #%d", i)
		}
		if seqLen < 0 {
			seqLen = e.Len()
		} else if e.Len() != seqLen {
			return nil, errors.Wrapf(encoding.ErrInvalidParameter,
				"row #%d has %d tokens, but row #0 has %d: pad the batch first", i, e.Len(), seqLen)
		}
	}

	b := &Batch{BatchSize: len(encodings), SeqLen: seqLen, SampleIndex: sampleIndex}
	size := b.BatchSize * seqLen
	b.InputIDs = make([]int32, 0, size)
	b.TypeIDs = make([]int32, 0, size)
	b.AttentionMask = make([]int32, 0, size)
	b.SpecialTokensMask = make([]int32, 0, size)
	for i, e := range encodings {
		columns := []struct {
			name   string
			dst    *[]int32
			values []int
		}{
			{"ids", &b.InputIDs, e.IDs()},
			{"type ids", &b.TypeIDs, e.TypeIDs()},
			{"attention mask", &b.AttentionMask, e.AttentionMask()},
			{"special tokens mask", &b.SpecialTokensMask, e.SpecialTokensMask()},
		}
		for _, col := range columns {
			values, err := appendInt32(*col.dst, col.values)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s of row #%d", col.name, i)
			}
			*col.dst = values
		}
	}
	klog.V(2).Infof("modelinput: flattened batch of %d rows of %d tokens", b.BatchSize, b.SeqLen)
	return b, nil
}

func appendInt32(dst []int32, values []int) ([]int32, error) {
	for _, v := range values {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, errors.Wrapf(encoding.ErrInvalidParameter, "value %d doesn't fit in an int32", v)
		}
		dst = append(dst, int32(v))
	}
	return dst, nil
}

// Row returns the input ids of row i.
func (b *Batch) Row(i int) []int32 {
	return b.InputIDs[i*b.SeqLen : (i+1)*b.SeqLen]
}

// Tensors are the model inputs as GoMLX tensors of shape [BatchSize, SeqLen] and dtype Int32.
type Tensors struct {
	InputIDs      *tensors.Tensor
	TypeIDs       *tensors.Tensor
	AttentionMask *tensors.Tensor
}

// Tensors returns the batch as GoMLX tensors.
func (b *Batch) Tensors() *Tensors {
	return &Tensors{
		InputIDs:      b.tensor(b.InputIDs),
		TypeIDs:       b.tensor(b.TypeIDs),
		AttentionMask: b.tensor(b.AttentionMask),
	}
}

func (b *Batch) tensor(values []int32) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Int32, b.BatchSize, b.SeqLen))
	t.MutableBytes(func(data []byte) {
		copy(bytesToInt32(data), values)
	})
	return t
}

// bytesToInt32 reinterprets a byte slice as an int32 slice.
// The byte slice length must be a multiple of 4.
func bytesToInt32(b []byte) []int32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), len(b)/4)
}
