// Package reconcile implements the Reconciliation Orchestrator: it takes a
// transcript, asks the Extraction Client for the complete state of the day
// and replaces the stored day with it.
//
// Attempts are mutually exclusive per user. Cancellation is cooperative: it
// is honoured only while extracting, and a response that arrives after it is
// dropped instead of applied.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
	"github.com/heartmarshall/macrolog-backend/internal/service/extraction"
	"github.com/heartmarshall/macrolog-backend/internal/service/lifecycle"
)

// DefaultSaveWatchdog bounds how long the session reports "saving".
const DefaultSaveWatchdog = 10 * time.Second

type extractor interface {
	Extract(ctx context.Context, req extraction.Request) (*domain.ExtractionResult, error)
}

type dayGateway interface {
	EnsureDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ReplaceDayEntries(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error)
}

type dayCache interface {
	Get(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	Invalidate(userID uuid.UUID, date string)
}

type lifecycleObserver interface {
	Subscribe(userID uuid.UUID, fn func(lifecycle.Event)) (unsubscribe func())
}

// TransducerFactory returns the speech transducer of a user.
type TransducerFactory func(userID uuid.UUID) capture.Transducer

// Config holds orchestrator settings.
type Config struct {
	// PriorDays is the number of days before today sent as context.
	PriorDays              int
	SaveWatchdog           time.Duration
	FinalTranscriptTimeout time.Duration
}

// Orchestrator coordinates capture, extraction and persistence per user.
type Orchestrator struct {
	log         *slog.Logger
	extractor   extractor
	gateway     dayGateway
	cache       dayCache
	lifecycle   lifecycleObserver
	transducers TransducerFactory
	clock       clockwork.Clock
	cfg         Config

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// New creates an Orchestrator. transducers may be nil when voice capture
// is not available.
func New(
	log *slog.Logger,
	extractor extractor,
	gateway dayGateway,
	cache dayCache,
	observer lifecycleObserver,
	transducers TransducerFactory,
	clock clockwork.Clock,
	cfg Config,
) *Orchestrator {
	if cfg.SaveWatchdog <= 0 {
		cfg.SaveWatchdog = DefaultSaveWatchdog
	}
	if cfg.PriorDays < 0 {
		cfg.PriorDays = 0
	}
	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		log:         log.With("service", "reconcile"),
		extractor:   extractor,
		gateway:     gateway,
		cache:       cache,
		lifecycle:   observer,
		transducers: transducers,
		clock:       clock,
		cfg:         cfg,
		base:        base,
		shutdown:    cancel,
		sessions:    make(map[uuid.UUID]*session),
	}
}

// Start begins a logging attempt and returns a channel that receives its
// outcome once. Exclusivity is acquired before Start returns: a second
// attempt while one is extracting or saving fails with domain.ErrBusy.
//
// The attempt is not bound to ctx; use CancelProcessing to cancel it.
func (o *Orchestrator) Start(ctx context.Context, input SubmitInput) (<-chan Outcome, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s := o.session(input.UserID)
	a, err := o.begin(s, input)
	if err != nil {
		return nil, err
	}

	o.log.InfoContext(ctx, "logging attempt started",
		slog.String("user_id", input.UserID.String()),
		slog.Uint64("attempt", a.id),
		slog.String("date", a.date),
		slog.String("source", string(a.source)),
	)

	o.wg.Add(1)
	go o.run(s, a)
	return a.done, nil
}

// Submit runs a logging attempt and waits for its outcome.
// A failed attempt returns its outcome together with the cause.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (Outcome, error) {
	done, err := o.Start(ctx, input)
	if err != nil {
		return Outcome{}, err
	}

	select {
	case out := <-done:
		switch out.Status {
		case StatusFailed:
			return out, out.cause
		case StatusCancelled:
			return out, domain.ErrCancelled
		}
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (o *Orchestrator) begin(s *session, input SubmitInput) (*attempt, error) {
	loc := input.Location
	if loc == nil {
		loc = time.UTC
	}
	source := input.Source
	if source == "" {
		source = capture.SourceTyped
	}
	now := o.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return nil, domain.ErrBusy
	}

	s.seq++
	a := &attempt{
		id:         s.seq,
		userID:     input.UserID,
		transcript: strings.TrimSpace(input.Transcript),
		source:     source,
		loc:        loc,
		date:       domain.LocalDate(now, loc),
		startedAt:  now,
		phase:      PhaseExtracting,
		done:       make(chan Outcome, 1),
	}
	s.current = a
	s.lastErr = nil
	s.notifyLocked()
	return a, nil
}

func (o *Orchestrator) run(s *session, a *attempt) {
	defer o.wg.Done()

	unsubscribe := o.lifecycle.Subscribe(a.userID, func(ev lifecycle.Event) {
		if ev != lifecycle.EventBackground {
			return
		}
		s.mu.Lock()
		a.backgrounded = true
		s.mu.Unlock()
	})

	out := o.process(s, a)
	unsubscribe()
	a.done <- out
	close(a.done)
}

func (o *Orchestrator) process(s *session, a *attempt) Outcome {
	ctx := o.base
	log := o.log.With(
		slog.String("user_id", a.userID.String()),
		slog.Uint64("attempt", a.id),
		slog.String("date", a.date),
	)

	today, prior, err := o.loadContext(ctx, a)
	if err != nil {
		return o.fail(ctx, log, s, a, fmt.Errorf("load context: %w", err))
	}

	s.mu.Lock()
	a.before = today.Totals
	a.itemsBefore = today.EntryCount()
	if a.cancelled {
		s.mu.Unlock()
		return o.dropped(ctx, log, a)
	}
	s.mu.Unlock()

	result, err := o.extractor.Extract(ctx, extraction.Request{
		Transcript: a.transcript,
		AsOf:       o.clock.Now(),
		Location:   a.loc,
		Today:      today,
		PriorDays:  prior,
	})

	s.mu.Lock()
	if a.cancelled {
		s.mu.Unlock()
		return o.dropped(ctx, log, a)
	}
	if err != nil {
		s.mu.Unlock()
		return o.fail(ctx, log, s, a, err)
	}
	a.phase = PhaseSaving
	s.notifyLocked()
	s.mu.Unlock()

	watchdog := o.clock.AfterFunc(o.cfg.SaveWatchdog, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current != a {
			return
		}
		a.indicatorOff = true
		s.notifyLocked()
		log.Warn("save still running, hiding saving indicator", slog.Duration("watchdog", o.cfg.SaveWatchdog))
	})

	// Once saving has begun the write runs to completion.
	day, err := o.save(context.WithoutCancel(ctx), a, result)
	watchdog.Stop()
	o.cache.Invalidate(a.userID, a.date)
	if err != nil {
		return o.fail(ctx, log, s, a, err)
	}

	out := a.outcome(StatusSaved)
	out.After = day.Totals
	out.ItemsAfter = day.EntryCount()
	out.Day = day

	s.mu.Lock()
	a.phase = PhaseIdle
	s.finishLocked(a, &out, nil)
	s.mu.Unlock()

	log.InfoContext(ctx, "logging attempt saved",
		slog.Int("items", out.ItemsAfter),
		slog.Int("calories_delta", out.Delta().Calories),
		slog.Duration("elapsed", o.clock.Since(a.startedAt)),
	)
	return out
}

// loadContext reads today and the prior days through the Day Cache.
func (o *Orchestrator) loadContext(ctx context.Context, a *attempt) (*domain.DailyLog, []*domain.DailyLog, error) {
	dates, err := domain.DateRange(a.date, o.cfg.PriorDays+1)
	if err != nil {
		return nil, nil, err
	}

	days := make([]*domain.DailyLog, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	for i, date := range dates {
		g.Go(func() error {
			day, err := o.cache.Get(gctx, a.userID, date)
			if err != nil {
				return fmt.Errorf("day %s: %w", date, err)
			}
			days[i] = day
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	last := len(days) - 1
	return days[last], days[:last], nil
}

func (o *Orchestrator) save(ctx context.Context, a *attempt, result *domain.ExtractionResult) (*domain.DailyLog, error) {
	day, err := o.gateway.EnsureDay(ctx, a.userID, a.date)
	if err != nil {
		return nil, fmt.Errorf("ensure day: %w", err)
	}
	saved, err := o.gateway.ReplaceDayEntries(ctx, a.userID, day.ID, result)
	if err != nil {
		return nil, fmt.Errorf("replace day entries: %w", err)
	}
	return saved, nil
}

// fail surfaces err as the session's LastError unless the attempt was
// cancelled or superseded.
func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, s *session, a *attempt, err error) Outcome {
	s.mu.Lock()
	if a.cancelled || errors.Is(err, domain.ErrCancelled) {
		s.mu.Unlock()
		return o.dropped(ctx, log, a)
	}

	ue := domain.NewUserError(err)
	if a.backgrounded {
		ue = ue.Backgrounded()
	}
	out := a.outcome(StatusFailed)
	out.Err = ue
	out.cause = err

	a.phase = PhaseIdle
	s.finishLocked(a, &out, ue)
	s.mu.Unlock()

	log.WarnContext(ctx, "logging attempt failed",
		slog.String("kind", string(ue.Kind)),
		slog.Bool("backgrounded", a.backgrounded),
		slog.String("error", err.Error()),
	)
	return out
}

func (o *Orchestrator) dropped(ctx context.Context, log *slog.Logger, a *attempt) Outcome {
	log.InfoContext(ctx, "cancelled attempt finished, response dropped")
	return a.outcome(StatusCancelled)
}

// CancelProcessing cancels the user's attempt. It is legal only while the
// attempt is extracting; the session returns to idle at once and LastError
// is cleared.
func (o *Orchestrator) CancelProcessing(userID uuid.UUID) error {
	s := o.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.current
	if a == nil || a.phase != PhaseExtracting {
		return domain.ErrNotCancellable
	}
	a.cancelled = true
	a.phase = PhaseCancelled
	s.current = nil
	s.lastErr = nil
	s.notifyLocked()

	o.log.Info("logging attempt cancelled",
		slog.String("user_id", userID.String()),
		slog.Uint64("attempt", a.id),
	)
	return nil
}

// DismissError clears LastError. In-flight work and capture are untouched.
func (o *Orchestrator) DismissError(userID uuid.UUID) {
	s := o.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return
	}
	s.lastErr = nil
	s.notifyLocked()
}

// State returns the observable state of the user's session.
func (o *Orchestrator) State(userID uuid.UUID) State {
	s := o.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Watch returns a channel holding the latest state of the user's session.
// Slow readers see only the newest state. stop releases the channel.
func (o *Orchestrator) Watch(userID uuid.UUID) (updates <-chan State, stop func()) {
	s := o.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.watchSeq++
	id := s.watchSeq
	ch := make(chan State, 1)
	ch <- s.stateLocked()
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Refresh drops the cached day and reads it again.
func (o *Orchestrator) Refresh(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	o.cache.Invalidate(userID, date)
	day, err := o.cache.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("reconcile.Refresh: %w", err)
	}
	return day, nil
}

// Invalidate drops the cached day.
func (o *Orchestrator) Invalidate(userID uuid.UUID, date string) {
	o.cache.Invalidate(userID, date)
}

// Shutdown stops pending extractions and waits for running attempts.
// Saves already in progress are allowed to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shutdown()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) session(userID uuid.UUID) *session {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[userID]
	if !ok {
		s = newSession(userID)
		if o.transducers != nil {
			s.capture = o.newCapture(s)
		}
		o.sessions[userID] = s
	}
	return s
}
