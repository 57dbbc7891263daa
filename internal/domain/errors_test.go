package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError_SingleField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("text", "required")

	if got := err.Error(); got != "validation: text: required" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
}

func TestValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors([]FieldError{
		{Field: "calories", Message: "required"},
		{Field: "fat", Message: "must be non-negative"},
	})

	if got := err.Error(); got != "validation: 2 errors" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if len(err.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors))
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrValidation,
		ErrUnauthorized, ErrConflict, ErrCancelled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors %d and %d should not match", i, j)
			}
		}
	}
}

func TestStateRejections_WrapConflict(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrBusy, ErrAlreadyActive, ErrNotRecording, ErrNotCancellable} {
		if !errors.Is(err, ErrConflict) {
			t.Errorf("%v should wrap ErrConflict", err)
		}
	}
}

func TestExtractionErrorKind_Transient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind ExtractionErrorKind
		want bool
	}{
		{ExtractionTimeout, true},
		{ExtractionNetwork, true},
		{ExtractionUnavailable, true},
		{ExtractionAuth, false},
		{ExtractionSchemaInvalid, false},
		{ExtractionContentRejected, false},
		{ExtractionUpstream, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Transient(); got != tt.want {
			t.Errorf("%s.Transient() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := fmt.Errorf("extract: %w", NewExtractionError(ExtractionNetwork, cause))

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatal("errors.As should find *ExtractionError")
	}
	if ee.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", ee.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
}

func TestNewUserError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want UserErrorKind
	}{
		{"timeout", NewExtractionError(ExtractionTimeout, errors.New("deadline")), UserErrorTimeout},
		{"network", NewExtractionError(ExtractionNetwork, errors.New("reset")), UserErrorExtraction},
		{"capture", &CaptureError{Kind: CaptureTransducerFailure, Code: "audio"}, UserErrorCapture},
		{"save", &PersistenceError{Op: "replace", Err: errors.New("tx")}, UserErrorSave},
		{"unknown", errors.New("x"), UserErrorExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewUserError(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.want)
			}
			if !got.Retryable {
				t.Error("Retryable = false")
			}
			if got.Message == "" {
				t.Error("empty message")
			}
		})
	}

	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}
}

func TestUserError_TimeoutSuggestsSplitting(t *testing.T) {
	t.Parallel()

	ue := NewUserError(NewExtractionError(ExtractionTimeout, errors.New("deadline")))
	if want := "Try splitting what you ate into smaller pieces."; !strings.Contains(ue.Message, want) {
		t.Errorf("message %q should suggest splitting", ue.Message)
	}
}

func TestUserError_Backgrounded(t *testing.T) {
	t.Parallel()

	ue := NewUserError(NewExtractionError(ExtractionNetwork, errors.New("reset")))
	bg := ue.Backgrounded()
	if bg.Kind != UserErrorBackgrounded || bg.Message != BackgroundedMessage {
		t.Errorf("unexpected backgrounded error: %+v", bg)
	}
	if bg.Retryable != ue.Retryable {
		t.Error("backgrounded error must keep the retry affordance")
	}
}

func TestCaptureError_Silent(t *testing.T) {
	t.Parallel()

	if !(&CaptureError{Kind: CaptureNoSpeech}).Silent() {
		t.Error("no-speech should be silent")
	}
	if (&CaptureError{Kind: CaptureTransducerFailure}).Silent() {
		t.Error("transducer failure should not be silent")
	}
}

