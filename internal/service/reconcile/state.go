package reconcile

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
)

// Phase is the phase of a logging attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseExtracting Phase = "extracting"
	PhaseSaving     Phase = "saving"
	// PhaseCancelled is absorbing: a cancelled attempt never leaves it.
	PhaseCancelled Phase = "cancelled"
)

// OutcomeStatus is the terminal status of an attempt.
type OutcomeStatus string

const (
	StatusSaved     OutcomeStatus = "saved"
	StatusFailed    OutcomeStatus = "failed"
	StatusCancelled OutcomeStatus = "cancelled"
)

// SubmitInput starts a logging attempt.
type SubmitInput struct {
	UserID     uuid.UUID
	Transcript string
	Source     capture.Source
	// Location is the device timezone; it decides which calendar day is "today".
	Location *time.Location
}

// Validate checks the input before an attempt is started.
func (i SubmitInput) Validate() error {
	var errs []domain.FieldError
	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if strings.TrimSpace(i.Transcript) == "" {
		errs = append(errs, domain.FieldError{Field: "text", Message: "required"})
	} else if len([]rune(i.Transcript)) > maxTranscriptLen {
		errs = append(errs, domain.FieldError{Field: "text", Message: "too long"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

const maxTranscriptLen = 4000

// Outcome reports how an attempt ended, with the day's totals before and
// after it.
type Outcome struct {
	AttemptID   uint64             `json:"attemptId"`
	Status      OutcomeStatus      `json:"status"`
	Date        string             `json:"date"`
	Transcript  string             `json:"transcript"`
	Source      capture.Source     `json:"source"`
	Before      domain.MacroTotals `json:"before"`
	After       domain.MacroTotals `json:"after"`
	ItemsBefore int                `json:"itemsBefore"`
	ItemsAfter  int                `json:"itemsAfter"`
	Day         *domain.DailyLog   `json:"day,omitempty"`
	Err         *domain.UserError  `json:"error,omitempty"`

	cause error
}

// Delta returns the change of the day's totals made by the attempt.
func (o Outcome) Delta() domain.MacroTotals {
	return o.After.Sub(o.Before)
}

// State is the observable state of a user's logging session.
type State struct {
	Phase             Phase             `json:"phase"`
	IsRecording       bool              `json:"isRecording"`
	IsProcessing      bool              `json:"isProcessing"`
	IsSaving          bool              `json:"isSaving"`
	CurrentTranscript string            `json:"currentTranscript"`
	PartialTranscript string            `json:"partialTranscript"`
	LastError         *domain.UserError `json:"lastError"`
	LastOutcome       *Outcome          `json:"lastOutcome,omitempty"`
}

// attempt is one run of Extracting -> Saving. Fields other than the
// immutable inputs are guarded by the owning session's mutex.
type attempt struct {
	id         uint64
	userID     uuid.UUID
	transcript string
	source     capture.Source
	loc        *time.Location
	date       string
	startedAt  time.Time

	phase        Phase
	cancelled    bool
	backgrounded bool
	// indicatorOff is set when the save watchdog fired. The session stays
	// held until the write returns.
	indicatorOff bool

	before      domain.MacroTotals
	itemsBefore int

	done chan Outcome
}

func (a *attempt) outcome(status OutcomeStatus) Outcome {
	return Outcome{
		AttemptID:   a.id,
		Status:      status,
		Date:        a.date,
		Transcript:  a.transcript,
		Source:      a.source,
		Before:      a.before,
		After:       a.before,
		ItemsBefore: a.itemsBefore,
		ItemsAfter:  a.itemsBefore,
	}
}
