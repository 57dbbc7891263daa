package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrCancelled     = errors.New("cancelled")
)

// State-machine rejections. All of them are conflicts with the current state.
var (
	ErrBusy           = fmt.Errorf("logging attempt already in progress: %w", ErrConflict)
	ErrAlreadyActive  = fmt.Errorf("capture already active: %w", ErrConflict)
	ErrNotRecording   = fmt.Errorf("capture is not recording: %w", ErrConflict)
	ErrNotCancellable = fmt.Errorf("nothing to cancel: %w", ErrConflict)
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// ---------------------------------------------------------------------------
// Capture errors
// ---------------------------------------------------------------------------

// CaptureErrorKind classifies a failed recording session.
type CaptureErrorKind string

const (
	// CaptureNoSpeech is reported silently: the session resets without a visible error.
	CaptureNoSpeech          CaptureErrorKind = "NO_SPEECH"
	CaptureTransducerFailure CaptureErrorKind = "TRANSDUCER_FAILURE"
)

// CaptureError is a failure reported by the speech transducer.
type CaptureError struct {
	Kind    CaptureErrorKind
	Code    string
	Message string
}

func (e *CaptureError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("capture %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("capture %s: %s", e.Kind, e.Message)
}

// Silent reports whether the error must not be shown to the user.
func (e *CaptureError) Silent() bool { return e.Kind == CaptureNoSpeech }

// ---------------------------------------------------------------------------
// Extraction errors
// ---------------------------------------------------------------------------

// ExtractionErrorKind classifies a failed extraction call.
type ExtractionErrorKind string

const (
	ExtractionTimeout         ExtractionErrorKind = "TIMEOUT"
	ExtractionNetwork         ExtractionErrorKind = "NETWORK"
	ExtractionUnavailable     ExtractionErrorKind = "UNAVAILABLE"
	ExtractionAuth            ExtractionErrorKind = "AUTH"
	ExtractionSchemaInvalid   ExtractionErrorKind = "SCHEMA_INVALID"
	ExtractionContentRejected ExtractionErrorKind = "CONTENT_REJECTED"
	ExtractionUpstream        ExtractionErrorKind = "UPSTREAM"
)

// Transient reports whether errors of this kind are worth retrying.
func (k ExtractionErrorKind) Transient() bool {
	switch k {
	case ExtractionTimeout, ExtractionNetwork, ExtractionUnavailable:
		return true
	}
	return false
}

// ExtractionError is a classified failure of the structured-extraction service.
type ExtractionError struct {
	Kind     ExtractionErrorKind
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("extraction %s after %d attempts: %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError wraps err with the given kind.
func NewExtractionError(kind ExtractionErrorKind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Attempts: 1, Err: err}
}

// ---------------------------------------------------------------------------
// Persistence errors
// ---------------------------------------------------------------------------

// PersistenceError is a failed durable write or read. It is always surfaced.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// User-facing errors
// ---------------------------------------------------------------------------

// UserErrorKind groups errors the presentation layer renders differently.
type UserErrorKind string

const (
	UserErrorCapture      UserErrorKind = "CAPTURE"
	UserErrorExtraction   UserErrorKind = "EXTRACTION"
	UserErrorTimeout      UserErrorKind = "TIMEOUT"
	UserErrorBackgrounded UserErrorKind = "BACKGROUNDED"
	UserErrorSave         UserErrorKind = "SAVE"
)

// UserError is a short actionable message with a dismiss action.
type UserError struct {
	Kind      UserErrorKind `json:"kind"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
}

func (e *UserError) Error() string { return e.Message }

// UserMessage returns the short text shown to the user for this failure.
func (e *ExtractionError) UserMessage() string {
	switch e.Kind {
	case ExtractionTimeout:
		return "That took too long. Try splitting what you ate into smaller pieces."
	case ExtractionNetwork:
		return "Couldn't reach the server. Check your connection and try again."
	case ExtractionUnavailable:
		return "The food service is busy right now. Try again in a moment."
	case ExtractionAuth:
		return "The food service rejected our credentials. Try again later."
	case ExtractionSchemaInvalid:
		return "Couldn't understand that meal. Try describing it differently."
	case ExtractionContentRejected:
		return "That description couldn't be processed. Try rephrasing it."
	default:
		return "Something went wrong while logging. Try again."
	}
}

// BackgroundedMessage is shown when leaving the app interrupted a request.
const BackgroundedMessage = "Logging was interrupted because the app went to the background. Try again."

// NewUserError classifies err into a user-facing error.
// It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	var ee *ExtractionError
	if errors.As(err, &ee) {
		kind := UserErrorExtraction
		if ee.Kind == ExtractionTimeout {
			kind = UserErrorTimeout
		}
		return &UserError{Kind: kind, Message: ee.UserMessage(), Retryable: true}
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return &UserError{Kind: UserErrorCapture, Message: "Couldn't hear that. Try again or type it instead.", Retryable: true}
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return &UserError{Kind: UserErrorSave, Message: "Couldn't save your log. Try again.", Retryable: true}
	}
	return &UserError{Kind: UserErrorExtraction, Message: "Something went wrong while logging. Try again.", Retryable: true}
}

// Backgrounded rewrites e into the backgrounding variant, keeping the retry affordance.
func (e *UserError) Backgrounded() *UserError {
	return &UserError{Kind: UserErrorBackgrounded, Message: BackgroundedMessage, Retryable: e.Retryable}
}
