package encoding

import "github.com/pkg/errors"

// Sentinel errors returned (wrapped with context) by this package. Match them with errors.Is.
var (
	// ErrUninitialized is reported when an Encoding that was never populated with tokens is used.
	// Mutating operations return it, read-only queries panic with it.
	ErrUninitialized = errors.New("uninitialized encoding")

	// ErrInvalidStrategyForInput is returned when a truncation strategy can't be applied to the
	// given encoding: OnlySecond on a single sequence, or a sequence too short to absorb the excess.
	ErrInvalidStrategyForInput = errors.New("truncation strategy not applicable to input")

	// ErrInvalidDirection is returned when parsing or validating an unknown Direction.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrInvalidStrategy is returned when parsing or validating an unknown truncation or padding strategy.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// ErrInvalidParameter is returned for negative lengths or mismatched per-token arrays.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// checkPopulated returns ErrUninitialized if e is nil or was never populated.
func (e *Encoding) checkPopulated() error {
	if e == nil || !e.populated {
		return errors.WithStack(ErrUninitialized)
	}
	return nil
}

// mustBePopulated panics with ErrUninitialized if e was never populated.
// Read-only queries use it since they report absence, not errors.
func (e *Encoding) mustBePopulated() {
	if err := e.checkPopulated(); err != nil {
		panic(err)
	}
}
