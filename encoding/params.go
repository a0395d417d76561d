package encoding

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Direction is used in truncation and padding configuration.
// The zero value is Right.
type Direction uint8

const (
	Right Direction = iota
	Left
)

// Validate returns ErrInvalidDirection if d is not one of the enumerated values.
func (d Direction) Validate() error {
	if d != Right && d != Left {
		return errors.Wrapf(ErrInvalidDirection, "%s", d)
	}
	return nil
}

// ParseDirection converts "left" or "right" (case-insensitive) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch normalizeEnumName(s) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Right, errors.Wrapf(ErrInvalidDirection, "%q is not a valid direction", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so Direction can be read from JSON.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TruncationStrategy defines how a pair of sequences is trimmed to fit a maximum length.
// The zero value is LongestFirst.
type TruncationStrategy uint8

const (
	// LongestFirst removes tokens one at a time from the currently longer sequence (ties remove
	// from the first sequence).
	LongestFirst TruncationStrategy = iota

	// OnlyFirst only removes tokens from the first sequence.
	OnlyFirst

	// OnlySecond only removes tokens from the second sequence.
	OnlySecond
)

// Validate returns ErrInvalidStrategy if s is not one of the enumerated values.
func (s TruncationStrategy) Validate() error {
	if s > OnlySecond {
		return errors.Wrapf(ErrInvalidStrategy, "%s", s)
	}
	return nil
}

// ParseTruncationStrategy accepts both the snake case ("longest_first") and the
// camel case ("LongestFirst") names, case-insensitively.
func ParseTruncationStrategy(s string) (TruncationStrategy, error) {
	switch normalizeEnumName(s) {
	case "longestfirst":
		return LongestFirst, nil
	case "onlyfirst":
		return OnlyFirst, nil
	case "onlysecond":
		return OnlySecond, nil
	}
	return LongestFirst, errors.Wrapf(ErrInvalidStrategy, "%q is not a valid truncation strategy", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s TruncationStrategy) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TruncationStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseTruncationStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaddingStrategy selects the padding length of a batch.
type PaddingStrategy uint8

const (
	// PadBatchLongest pads every encoding to the longest one in the batch.
	PadBatchLongest PaddingStrategy = iota

	// PadFixed pads every encoding to PaddingParams.Length.
	PadFixed
)

//go:generate stringer -type=Direction,TruncationStrategy,PaddingStrategy -trimprefix=Pad -output=params_string.go .

func normalizeEnumName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

// TruncationParams configures TruncateWithParams and TruncateBatch.
//
// The JSON form matches the "truncation" section of a HuggingFace tokenizer.json file.
type TruncationParams struct {
	MaxLength int                `json:"max_length"`
	Stride    int                `json:"stride"`
	Strategy  TruncationStrategy `json:"strategy"`
	Direction Direction          `json:"direction"`
}

// DefaultTruncationParams returns the default truncation to maxLength: no stride, LongestFirst, Right.
func DefaultTruncationParams(maxLength int) TruncationParams {
	return TruncationParams{
		MaxLength: maxLength,
		Strategy:  LongestFirst,
		Direction: Right,
	}
}

// Validate checks the enumerations and that lengths are not negative.
func (p TruncationParams) Validate() error {
	if err := p.Direction.Validate(); err != nil {
		return err
	}
	if err := p.Strategy.Validate(); err != nil {
		return err
	}
	return checkTruncationArgs(p.MaxLength, p.Stride)
}

// UnmarshalJSON implements json.Unmarshaler, validating the values read.
func (p *TruncationParams) UnmarshalJSON(data []byte) error {
	type plain TruncationParams
	parsed := plain(DefaultTruncationParams(0))
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	if err := TruncationParams(parsed).Validate(); err != nil {
		return err
	}
	*p = TruncationParams(parsed)
	return nil
}

func checkTruncationArgs(maxLength, stride int) error {
	if maxLength < 0 {
		return errors.Wrapf(ErrInvalidParameter, "truncation max length must be >= 0, got %d", maxLength)
	}
	if stride < 0 {
		return errors.Wrapf(ErrInvalidParameter, "truncation stride must be >= 0, got %d", stride)
	}
	return nil
}

// PaddingParams configures PadWithParams and PadBatch.
//
// The JSON form matches the "padding" section of a HuggingFace tokenizer.json file, where the strategy
// is either "BatchLongest" or {"Fixed": <length>}.
type PaddingParams struct {
	Strategy PaddingStrategy
	// Length is only used with PadFixed.
	Length          int
	Direction       Direction
	PadToMultipleOf int
	PadID           int
	PadTypeID       int
	PadToken        string
}

// DefaultPaddingParams returns padding to the longest in the batch, on the right, with id 0 and "[PAD]".
func DefaultPaddingParams() PaddingParams {
	return PaddingParams{
		Strategy:  PadBatchLongest,
		Direction: Right,
		PadToken:  "[PAD]",
	}
}

// Validate checks the enumerations and that lengths are not negative.
func (p PaddingParams) Validate() error {
	if err := p.Direction.Validate(); err != nil {
		return err
	}
	if p.Strategy > PadFixed {
		return errors.Wrapf(ErrInvalidStrategy, "%s", p.Strategy)
	}
	if p.Length < 0 {
		return errors.Wrapf(ErrInvalidParameter, "padding length must be >= 0, got %d", p.Length)
	}
	if p.PadToMultipleOf < 0 {
		return errors.Wrapf(ErrInvalidParameter, "pad_to_multiple_of must be >= 0, got %d", p.PadToMultipleOf)
	}
	return nil
}

// TargetLength returns the length to pad to, given the longest encoding of a batch.
func (p PaddingParams) TargetLength(longest int) int {
	target := longest
	if p.Strategy == PadFixed {
		target = p.Length
	}
	if m := p.PadToMultipleOf; m > 0 && target%m != 0 {
		target += m - target%m
	}
	return target
}

type paddingParamsJSON struct {
	Strategy        json.RawMessage `json:"strategy"`
	Direction       Direction       `json:"direction"`
	PadToMultipleOf *int            `json:"pad_to_multiple_of"`
	PadID           int             `json:"pad_id"`
	PadTypeID       int             `json:"pad_type_id"`
	PadToken        *string         `json:"pad_token"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PaddingParams) UnmarshalJSON(data []byte) error {
	var raw paddingParamsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := DefaultPaddingParams()
	parsed.Direction = raw.Direction
	parsed.PadID = raw.PadID
	parsed.PadTypeID = raw.PadTypeID
	if raw.PadToken != nil {
		parsed.PadToken = *raw.PadToken
	}
	if raw.PadToMultipleOf != nil {
		parsed.PadToMultipleOf = *raw.PadToMultipleOf
	}
	if len(raw.Strategy) > 0 && string(raw.Strategy) != "null" {
		var name string
		if err := json.Unmarshal(raw.Strategy, &name); err == nil {
			if normalizeEnumName(name) != "batchlongest" {
				return errors.Wrapf(ErrInvalidStrategy, "%q is not a valid padding strategy", name)
			}
		} else {
			var fixed struct {
				Fixed *int `json:"Fixed"`
			}
			if err := json.Unmarshal(raw.Strategy, &fixed); err != nil || fixed.Fixed == nil {
				return errors.Wrapf(ErrInvalidStrategy, "%s is not a valid padding strategy", raw.Strategy)
			}
			parsed.Strategy = PadFixed
			parsed.Length = *fixed.Fixed
		}
	}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON implements json.Marshaler, producing the tokenizer.json form.
func (p PaddingParams) MarshalJSON() ([]byte, error) {
	var strategy any = "BatchLongest"
	if p.Strategy == PadFixed {
		strategy = map[string]int{"Fixed": p.Length}
	}
	var multiple *int
	if p.PadToMultipleOf > 0 {
		multiple = &p.PadToMultipleOf
	}
	return json.Marshal(struct {
		Strategy        any       `json:"strategy"`
		Direction       Direction `json:"direction"`
		PadToMultipleOf *int      `json:"pad_to_multiple_of"`
		PadID           int       `json:"pad_id"`
		PadTypeID       int       `json:"pad_type_id"`
		PadToken        string    `json:"pad_token"`
	}{strategy, p.Direction, multiple, p.PadID, p.PadTypeID, p.PadToken})
}
