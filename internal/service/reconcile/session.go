package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
)

// session is the per-user state of the orchestrator.
type session struct {
	userID uuid.UUID

	mu          sync.Mutex
	seq         uint64
	current     *attempt
	lastErr     *domain.UserError
	lastOutcome *Outcome
	watchSeq    uint64
	watchers    map[uint64]chan State

	// capture is nil when no transducer factory is configured.
	capture    *capture.Controller
	captureLoc *time.Location
}

func newSession(userID uuid.UUID) *session {
	return &session{
		userID:   userID,
		watchers: make(map[uint64]chan State),
	}
}

// finishLocked records the end of a. An attempt that is no longer current
// was cancelled and leaves the session untouched.
func (s *session) finishLocked(a *attempt, out *Outcome, ue *domain.UserError) {
	if s.current != a {
		return
	}
	s.current = nil
	s.lastOutcome = out
	s.lastErr = ue
	s.notifyLocked()
}

func (s *session) stateLocked() State {
	st := State{
		Phase:       PhaseIdle,
		LastError:   s.lastErr,
		LastOutcome: s.lastOutcome,
	}
	if a := s.current; a != nil {
		st.Phase = a.phase
		st.IsProcessing = true
		st.IsSaving = a.phase == PhaseSaving && !a.indicatorOff
		st.CurrentTranscript = a.transcript
	}
	if s.capture != nil {
		snap := s.capture.Snapshot()
		st.IsRecording = snap.IsRecording
		st.PartialTranscript = snap.PartialTranscript
	}
	return st
}

// notifyLocked publishes the current state to every watcher, replacing a
// value the watcher has not read yet.
func (s *session) notifyLocked() {
	if len(s.watchers) == 0 {
		return
	}
	st := s.stateLocked()
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
