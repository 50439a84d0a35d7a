package tutor

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseAge(t *testing.T) {
	for age := MinAge; age <= MaxAge; age++ {
		got, err := ParseAge(fmt.Sprintf("%d", age))
		if err != nil {
			t.Fatalf("age %d: unexpected error %v", age, err)
		}
		if got != age {
			t.Fatalf("age %d: got %d", age, got)
		}
	}

	tests := []struct {
		input     string
		targetErr error
	}{
		{input: " 15 ", targetErr: nil},
		{input: "5", targetErr: ErrAgeOutOfRange},
		{input: "101", targetErr: ErrAgeOutOfRange},
		{input: "-3", targetErr: ErrAgeOutOfRange},
		{input: "0", targetErr: ErrAgeOutOfRange},
		{input: "99999999999999999999999", targetErr: ErrAgeOutOfRange},
		{input: "fifteen", targetErr: ErrAgeNotNumeric},
		{input: "15.5", targetErr: ErrAgeNotNumeric},
		{input: "", targetErr: ErrAgeNotNumeric},
		{input: "🔄 New question", targetErr: ErrAgeNotNumeric},
	}

	for _, tc := range tests {
		_, err := ParseAge(tc.input)
		if tc.targetErr == nil {
			if err != nil {
				t.Fatalf("input %q: unexpected error %v", tc.input, err)
			}
			continue
		}
		if !errors.Is(err, tc.targetErr) {
			t.Fatalf("input %q: expected %v, got %v", tc.input, tc.targetErr, err)
		}
	}
}

func TestCompletionError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("complete: %w", NewCompletionError(FailureUnavailable, cause))

	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrapped")
	}
	if kind := FailureKindOf(err); kind != FailureUnavailable {
		t.Fatalf("unexpected kind %s", kind)
	}
	if kind := FailureKindOf(errors.New("plain")); kind != FailureUnavailable {
		t.Fatalf("expected default kind for unclassified errors, got %s", kind)
	}
	if kind := FailureKindOf(NewCompletionError(FailureEmpty, nil)); kind != FailureEmpty {
		t.Fatalf("unexpected kind %s", kind)
	}
}
