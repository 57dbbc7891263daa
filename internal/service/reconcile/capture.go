package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
)

// errNoCapture is returned by the recording calls when no transducer is configured.
var errNoCapture = domain.NewValidationError("capture", "voice capture is not available")

var busyError = &domain.UserError{
	Kind:      domain.UserErrorCapture,
	Message:   "Still working on your last entry. Try again in a moment.",
	Retryable: true,
}

func (o *Orchestrator) newCapture(s *session) *capture.Controller {
	return capture.NewController(
		o.log,
		o.transducers(s.userID),
		o.clock,
		o.cfg.FinalTranscriptTimeout,
		func(out capture.Outcome) { o.onCaptureOutcome(s, out) },
		func(capture.Snapshot) {
			s.mu.Lock()
			s.notifyLocked()
			s.mu.Unlock()
		},
	)
}

// onCaptureOutcome turns a finished capture session into a logging attempt.
func (o *Orchestrator) onCaptureOutcome(s *session, out capture.Outcome) {
	switch out.Kind {
	case capture.OutcomeTranscript:
		s.mu.Lock()
		loc := s.captureLoc
		s.mu.Unlock()

		_, err := o.Start(o.base, SubmitInput{
			UserID:     s.userID,
			Transcript: out.Text,
			Source:     out.Source,
			Location:   loc,
		})
		if err == nil {
			return
		}
		ue := domain.NewUserError(err)
		if errors.Is(err, domain.ErrBusy) {
			ue = busyError
		}
		o.log.Warn("transcript not logged",
			slog.String("user_id", s.userID.String()),
			slog.String("error", err.Error()),
		)
		s.mu.Lock()
		s.lastErr = ue
		s.notifyLocked()
		s.mu.Unlock()

	case capture.OutcomeFailed:
		s.mu.Lock()
		s.lastErr = domain.NewUserError(out.Err)
		s.notifyLocked()
		s.mu.Unlock()

	case capture.OutcomeSilentReset:
	}
}

// StartRecording starts voice capture for the user.
func (o *Orchestrator) StartRecording(ctx context.Context, userID uuid.UUID, loc *time.Location) (State, error) {
	s := o.session(userID)
	if s.capture == nil {
		return State{}, errNoCapture
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return State{}, domain.ErrBusy
	}
	s.captureLoc = loc
	s.mu.Unlock()

	// A failed start reports through onCaptureOutcome.
	if err := s.capture.Start(ctx); err != nil {
		return State{}, err
	}
	return o.State(userID), nil
}

// StopRecording stops voice capture and waits for the final transcript,
// which starts a logging attempt.
func (o *Orchestrator) StopRecording(ctx context.Context, userID uuid.UUID) (State, error) {
	s := o.session(userID)
	if s.capture == nil {
		return State{}, errNoCapture
	}

	if _, err := s.capture.Stop(ctx); err != nil {
		return State{}, err
	}
	return o.State(userID), nil
}

// CancelRecording discards the current recording.
func (o *Orchestrator) CancelRecording(userID uuid.UUID) State {
	s := o.session(userID)
	if s.capture != nil {
		s.capture.Cancel()
	}
	return o.State(userID)
}

// SubmitTyped logs typed text. Without voice capture the text goes straight
// to a logging attempt.
func (o *Orchestrator) SubmitTyped(ctx context.Context, userID uuid.UUID, text string, loc *time.Location) (State, error) {
	s := o.session(userID)
	if s.capture == nil {
		if _, err := o.Start(ctx, SubmitInput{UserID: userID, Transcript: text, Source: capture.SourceTyped, Location: loc}); err != nil {
			return State{}, err
		}
		return o.State(userID), nil
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return State{}, domain.ErrBusy
	}
	s.captureLoc = loc
	s.mu.Unlock()

	if _, err := s.capture.SubmitTyped(text); err != nil {
		return State{}, err
	}
	return o.State(userID), nil
}
