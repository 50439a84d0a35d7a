package tutor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrAgeNotNumeric    = errors.New("age is not a number")
	ErrAgeOutOfRange    = errors.New("age is out of range")
	ErrProfileMissing   = errors.New("profile is missing")
	ErrCompletionFailed = errors.New("completion failed")
)

// FailureKind classifies why the completion boundary did not produce text.
type FailureKind string

const (
	FailureUnavailable FailureKind = "unavailable"
	FailureRejected    FailureKind = "rejected"
	FailureEmpty       FailureKind = "empty"
	FailureCircuitOpen FailureKind = "circuit_open"
)

type CompletionError struct {
	Kind FailureKind
	Err  error
}

func (e *CompletionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrCompletionFailed, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCompletionFailed, e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

func (e *CompletionError) Is(target error) bool {
	return target == ErrCompletionFailed
}

func NewCompletionError(kind FailureKind, err error) error {
	return &CompletionError{Kind: kind, Err: err}
}

// FailureKindOf reports the failure kind of err, or FailureUnavailable when
// err carries no classification.
func FailureKindOf(err error) FailureKind {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.Kind
	}
	return FailureUnavailable
}

// ParseAge converts free text into a validated age.
func ParseAge(text string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", ErrAgeOutOfRange, text)
		}
		return 0, fmt.Errorf("%w: %q", ErrAgeNotNumeric, text)
	}
	if age < MinAge || age > MaxAge {
		return 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrAgeOutOfRange, age, MinAge, MaxAge)
	}
	return age, nil
}
