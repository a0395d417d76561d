// Package parquetio stores tokenized batches as Parquet files: one row per encoding and per
// overflowing encoding, with every per-token array, so datasets can be tokenized once and
// read back as encoding.Encoding values (with working coordinate queries) later.
package parquetio

import (
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/gomlx/go-encodings/encoding"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
	"k8s.io/klog/v2"
)

// Row is the Parquet schema of one encoding.
//
// The overflowing encodings of an example are stored in the rows following it, with the same
// ExampleID and increasing Chunk numbers (0 is the encoding itself).
type Row struct {
	ExampleID  string `parquet:"example_id"`
	Chunk      int64  `parquet:"chunk"`
	NSequences int64  `parquet:"n_sequences"`

	IDs               []int64  `parquet:"ids"`
	TypeIDs           []int64  `parquet:"type_ids"`
	Tokens            []string `parquet:"tokens"`
	OffsetStarts      []int64  `parquet:"offset_starts"`
	OffsetEnds        []int64  `parquet:"offset_ends"`
	WordIDs           []int64  `parquet:"word_ids"`
	SpecialTokensMask []int64  `parquet:"special_tokens_mask"`
	AttentionMask     []int64  `parquet:"attention_mask"`
	SequenceIDs       []int64  `parquet:"sequence_ids"`
}

// NewExampleID generates the ids of the examples written by RowsFromEncodings.
var NewExampleID = func() string { return uuid.NewString() }

// RowsFromEncodings converts the encodings, and their overflowing encodings, to rows.
func RowsFromEncodings(encodings []*encoding.Encoding) ([]Row, error) {
	var rows []Row
	for i, e := range encodings {
		if !e.IsPopulated() {
			return nil, errors.Wrapf(encoding.ErrUninitialized, "encoding #%d", i)
		}
		exampleID := NewExampleID()
		rows = append(rows, newRow(exampleID, 0, e))
		for j, o := range e.Overflowing() {
			rows = append(rows, newRow(exampleID, j+1, o))
		}
	}
	return rows, nil
}

func newRow(exampleID string, chunk int, e *encoding.Encoding) Row {
	offsets := e.Offsets()
	starts := make([]int64, len(offsets))
	ends := make([]int64, len(offsets))
	for i, o := range offsets {
		starts[i], ends[i] = int64(o.Start), int64(o.End)
	}
	return Row{
		ExampleID:         exampleID,
		Chunk:             int64(chunk),
		NSequences:        int64(e.NSequences()),
		IDs:               toInt64(e.IDs()),
		TypeIDs:           toInt64(e.TypeIDs()),
		Tokens:            e.Tokens(),
		OffsetStarts:      starts,
		OffsetEnds:        ends,
		WordIDs:           toInt64(e.WordIDs()),
		SpecialTokensMask: toInt64(e.SpecialTokensMask()),
		AttentionMask:     toInt64(e.AttentionMask()),
		SequenceIDs:       toInt64(e.SequenceIDs()),
	}
}

// Encoding converts the row back to an Encoding, without overflowing encodings.
func (r *Row) Encoding() (*encoding.Encoding, error) {
	if len(r.OffsetStarts) != len(r.OffsetEnds) {
		return nil, errors.Wrapf(encoding.ErrInvalidParameter, "example %s chunk %d: %d offset starts and %d offset ends",
			r.ExampleID, r.Chunk, len(r.OffsetStarts), len(r.OffsetEnds))
	}
	offsets := make([]encoding.Offsets, len(r.OffsetStarts))
	for i := range offsets {
		offsets[i] = encoding.Offsets{Start: int(r.OffsetStarts[i]), End: int(r.OffsetEnds[i])}
	}
	e, err := encoding.FromParts(encoding.Parts{
		IDs:               toInt(r.IDs),
		TypeIDs:           toInt(r.TypeIDs),
		Tokens:            r.Tokens,
		Offsets:           offsets,
		WordIDs:           toInt(r.WordIDs),
		SpecialTokensMask: toInt(r.SpecialTokensMask),
		AttentionMask:     toInt(r.AttentionMask),
		SequenceIDs:       toInt(r.SequenceIDs),
		NSequences:        int(r.NSequences),
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "example %s chunk %d", r.ExampleID, r.Chunk)
	}
	return e, nil
}

// EncodingsFromRows is the inverse of RowsFromEncodings: rows of the same example (which must be
// consecutive, starting at chunk 0) are rebuilt as one Encoding with its overflowing encodings.
func EncodingsFromRows(rows []Row) ([]*encoding.Encoding, error) {
	var encodings []*encoding.Encoding
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && rows[end].ExampleID == rows[start].ExampleID {
			end++
		}
		parts := make([]*encoding.Encoding, 0, end-start)
		for i := start; i < end; i++ {
			if want := int64(i - start); rows[i].Chunk != want {
				return nil, errors.Wrapf(encoding.ErrInvalidParameter, "example %s: row #%d has chunk %d, expected %d",
					rows[i].ExampleID, i, rows[i].Chunk, want)
			}
			e, err := rows[i].Encoding()
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		if err := parts[0].SetOverflowing(parts[1:]); err != nil {
			return nil, err
		}
		encodings = append(encodings, parts[0])
		start = end
	}
	return encodings, nil
}

// Write writes the rows in Parquet format to w.
func Write(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return errors.Wrap(err, "writing parquet rows")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "closing parquet writer")
	}
	return nil
}

// Read reads all rows of a Parquet file of the given size.
func Read(r io.ReaderAt, size int64) ([]Row, error) {
	rows, err := parquet.Read[Row](r, size)
	if err != nil {
		return nil, errors.Wrap(err, "reading parquet rows")
	}
	return rows, nil
}

// WriteFile writes the rows to filePath. The file is written to filePath+".writing" and then
// atomically moved to filePath, while holding a lock on filePath+".lock", so concurrent
// writers (even from different processes) never leave a partially written file.
func WriteFile(filePath string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}
	lockPath := filePath + ".lock"
	var mainErr error
	errLock := execOnFileLock(lockPath, func() {
		tmpPath := filePath + ".writing"
		tmpFile, err := os.Create(tmpPath)
		if err != nil {
			mainErr = errors.Wrapf(err, "creating temporary file %q", tmpPath)
			return
		}
		var tmpFileClosed bool
		defer func() {
			// If we exit with an error, make sure to close and remove the unfinished temporary file.
			if !tmpFileClosed {
				if err := tmpFile.Close(); err != nil {
					klog.Warningf("failed closing temporary file %q: %v", tmpPath, err)
				}
				if err := os.Remove(tmpPath); err != nil {
					klog.Warningf("failed removing temporary file %q: %v", tmpPath, err)
				}
			}
		}()

		if mainErr = Write(tmpFile, rows); mainErr != nil {
			mainErr = errors.WithMessagef(mainErr, "while writing %q", tmpPath)
			return
		}
		tmpFileClosed = true
		if err := tmpFile.Close(); err != nil {
			mainErr = errors.Wrapf(err, "failed to close temporary file %q", tmpPath)
			return
		}
		if err := os.Rename(tmpPath, filePath); err != nil {
			mainErr = errors.Wrapf(err, "failed to move %q to %q", tmpPath, filePath)
			return
		}
		klog.V(1).Infof("parquetio: wrote %d rows to %q", len(rows), filePath)
	})
	if mainErr != nil {
		return mainErr
	}
	if errLock != nil {
		return errors.WithMessagef(errLock, "while locking %q to write %q", lockPath, filePath)
	}
	return nil
}

// ReadFile reads all rows of the Parquet file at filePath, which is memory-mapped while read.
func ReadFile(filePath string) ([]Row, error) {
	reader, err := mmap.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			klog.Warningf("failed closing %q: %v", filePath, err)
		}
	}()
	rows, err := Read(reader, int64(reader.Len()))
	if err != nil {
		return nil, errors.WithMessagef(err, "file %q", filePath)
	}
	return rows, nil
}

// execOnFileLock opens the lockPath file (or creates if it doesn't yet exist), locks it, and executes the function.
// If the lockPath is already locked, it polls every 50 to 100 milliseconds until it acquires the lock.
func execOnFileLock(lockPath string, fn func()) (err error) {
	fileLock := flock.New(lockPath)
	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		time.Sleep(time.Millisecond * time.Duration(50+rand.IntN(50)))
	}

	// Unlock even if fn panics.
	defer func() {
		unlockErr := fileLock.Unlock()
		if unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Errorf("error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()
	fn()
	return
}

func toInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func toInt(values []int64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
