package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// DefaultFinalTranscriptTimeout bounds how long Stop waits for the final transcript.
const DefaultFinalTranscriptTimeout = 500 * time.Millisecond

// codeRecognitionFail is the transducer error code for "no speech recognized".
const codeRecognitionFail = "recognition_fail"

// State is the capture state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
)

// Source tells where a transcript came from.
type Source string

const (
	SourceVoice Source = "voice"
	SourceTyped Source = "typed"
)

// OutcomeKind is the terminal result of a capture session.
type OutcomeKind string

const (
	OutcomeTranscript  OutcomeKind = "transcript"
	OutcomeSilentReset OutcomeKind = "silent_reset"
	OutcomeFailed      OutcomeKind = "failed"
)

// Outcome is delivered exactly once per session.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Source Source
	// Err is set for Failed outcomes and for silent resets caused by the transducer.
	Err *domain.CaptureError
}

// Snapshot is the observable state of the controller.
type Snapshot struct {
	State             State  `json:"state"`
	IsRecording       bool   `json:"isRecording"`
	PartialTranscript string `json:"partialTranscript"`
}

// session holds per-recording bookkeeping. final and done are one-shot.
type session struct {
	id       uint64
	final    chan string
	done     chan struct{}
	finished bool
	outcome  Outcome
}

// Controller is the input-capture state machine:
// Idle -> Recording -> Stopping -> Idle, plus the typed path from Idle.
type Controller struct {
	transducer   Transducer
	clock        clockwork.Clock
	finalTimeout time.Duration
	log          *slog.Logger
	onOutcome    func(Outcome)
	onChange     func(Snapshot)

	mu      sync.Mutex
	state   State
	partial string
	seq     uint64
	current *session
}

// NewController creates a Controller. onOutcome and onChange may be nil.
func NewController(
	log *slog.Logger,
	transducer Transducer,
	clock clockwork.Clock,
	finalTimeout time.Duration,
	onOutcome func(Outcome),
	onChange func(Snapshot),
) *Controller {
	if finalTimeout <= 0 {
		finalTimeout = DefaultFinalTranscriptTimeout
	}
	return &Controller{
		transducer:   transducer,
		clock:        clock,
		finalTimeout: finalTimeout,
		log:          log.With("service", "capture"),
		onOutcome:    onOutcome,
		onChange:     onChange,
		state:        StateIdle,
	}
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:             c.state,
		IsRecording:       c.state == StateRecording,
		PartialTranscript: c.partial,
	}
}

// Start begins a recording session.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return domain.ErrAlreadyActive
	}
	c.seq++
	s := &session{
		id:    c.seq,
		final: make(chan string, 1),
		done:  make(chan struct{}),
	}
	c.current = s
	c.state = StateRecording
	c.partial = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	if err := c.transducer.Start(ctx, c.handlerFor(s)); err != nil {
		ce := &domain.CaptureError{Kind: domain.CaptureTransducerFailure, Message: err.Error()}
		c.finish(s, Outcome{Kind: OutcomeFailed, Source: SourceVoice, Err: ce})
		return fmt.Errorf("start transducer: %w", ce)
	}

	c.log.DebugContext(ctx, "capture started", slog.Uint64("session", s.id))
	return nil
}

// Stop ends the recording and waits for the transducer's final transcript.
// When the final transcript does not arrive within the timeout, the last
// partial transcript is used.
func (c *Controller) Stop(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return Outcome{}, domain.ErrNotRecording
	}
	s := c.current
	c.state = StateStopping
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	if err := c.transducer.Stop(); err != nil {
		c.log.WarnContext(ctx, "transducer stop failed", slog.String("error", err.Error()))
	}

	var text string
	select {
	case text = <-s.final:
	case <-s.done:
		c.mu.Lock()
		out := s.outcome
		c.mu.Unlock()
		return out, nil
	case <-c.clock.After(c.finalTimeout):
		c.mu.Lock()
		text = c.partial
		c.mu.Unlock()
		c.log.InfoContext(ctx, "final transcript timed out, using partial",
			slog.Uint64("session", s.id),
			slog.Int("partial_len", len(text)),
		)
	case <-ctx.Done():
		out := Outcome{Kind: OutcomeSilentReset, Source: SourceVoice}
		c.finish(s, out)
		c.transducer.Cancel()
		return out, ctx.Err()
	}

	out := transcriptOutcome(text, SourceVoice)
	if !c.finish(s, out) {
		c.mu.Lock()
		out = s.outcome
		c.mu.Unlock()
	}
	return out, nil
}

// Cancel discards the current session from any state. It is a no-op when idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	s := c.current
	c.mu.Unlock()

	if c.finish(s, Outcome{Kind: OutcomeSilentReset, Source: SourceVoice}) {
		c.transducer.Cancel()
	}
}

// SubmitTyped emits a typed transcript. It is legal only while idle.
func (c *Controller) SubmitTyped(text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, domain.NewValidationError("text", "required")
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Outcome{}, domain.ErrAlreadyActive
	}
	c.seq++
	s := &session{id: c.seq, done: make(chan struct{})}
	c.current = s
	c.mu.Unlock()

	out := Outcome{Kind: OutcomeTranscript, Text: text, Source: SourceTyped}
	c.finish(s, out)
	return out, nil
}

// handlerFor binds transducer events to one session. Events of older
// sessions are ignored.
func (c *Controller) handlerFor(s *session) func(Event) {
	return func(ev Event) {
		c.mu.Lock()
		if c.current != s || s.finished {
			c.mu.Unlock()
			return
		}

		switch ev.Kind {
		case EventPartial:
			c.partial = ev.Text
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
			return

		case EventFinal:
			c.partial = ev.Text
			select {
			case s.final <- ev.Text:
			default:
			}
			c.mu.Unlock()
			return

		case EventError:
			c.mu.Unlock()
			kind := domain.CaptureTransducerFailure
			outcome := OutcomeFailed
			if ev.Code == codeRecognitionFail {
				kind = domain.CaptureNoSpeech
				outcome = OutcomeSilentReset
			}
			c.log.Info("transducer error",
				slog.Uint64("session", s.id),
				slog.String("code", ev.Code),
				slog.String("message", ev.Message),
			)
			c.finish(s, Outcome{
				Kind:   outcome,
				Source: SourceVoice,
				Err:    &domain.CaptureError{Kind: kind, Code: ev.Code, Message: ev.Message},
			})
			return

		default:
			c.mu.Unlock()
		}
	}
}

// finish records the session outcome, returns the controller to idle and
// emits the outcome. It reports false when the session already finished.
func (c *Controller) finish(s *session, out Outcome) bool {
	c.mu.Lock()
	if s.finished {
		c.mu.Unlock()
		return false
	}
	s.finished = true
	s.outcome = out
	close(s.done)
	if c.current == s {
		c.state = StateIdle
		c.partial = ""
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	if c.onOutcome != nil {
		c.onOutcome(out)
	}
	return true
}

func (c *Controller) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

func transcriptOutcome(text string, src Source) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{
			Kind:   OutcomeSilentReset,
			Source: src,
			Err:    &domain.CaptureError{Kind: domain.CaptureNoSpeech, Message: "empty transcript"},
		}
	}
	return Outcome{Kind: OutcomeTranscript, Text: text, Source: src}
}
