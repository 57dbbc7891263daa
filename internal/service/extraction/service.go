package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// completer calls the structured-extraction service and returns the raw
// JSON object produced for the fixed output schema.
type completer interface {
	Complete(ctx context.Context, system, user string) ([]byte, error)
}

// Request is the input of one extraction.
type Request struct {
	Transcript string
	AsOf       time.Time
	Location   *time.Location
	Today      *domain.DailyLog
	PriorDays  []*domain.DailyLog
}

// Validate checks the request before any call is made.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Transcript) == "" {
		return domain.NewValidationError("transcript", "required")
	}
	if r.AsOf.IsZero() {
		return domain.NewValidationError("as_of", "required")
	}
	return nil
}

// Service is the Extraction Client: it renders the payload, calls the
// extraction service with retry and per-attempt timeouts, and validates
// the output.
type Service struct {
	provider completer
	schema   *Schema
	clock    clockwork.Clock
	cfg      config.ExtractionConfig
	log      *slog.Logger
}

// NewService creates a new Extraction service.
func NewService(
	log *slog.Logger,
	provider completer,
	clock clockwork.Clock,
	cfg config.ExtractionConfig,
) (*Service, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}
	return &Service{
		provider: provider,
		schema:   schema,
		clock:    clock,
		cfg:      cfg,
		log:      log.With("service", "extraction"),
	}, nil
}

// Extract converts a transcript into the complete candidate state of today.
//
// Transient failures are retried with exponential backoff; anything else
// fails at once. Cancelling ctx stops the loop and returns domain.ErrCancelled.
func (s *Service) Extract(ctx context.Context, req Request) (*domain.ExtractionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := RenderPayload(req, s.cfg.PriorDays)
	attempts := 0

	op := func() (*domain.ExtractionResult, error) {
		attempts++
		res, err := s.attempt(ctx, payload)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		ee := classify(err)
		if !ee.Kind.Transient() {
			return nil, backoff.Permanent(ee)
		}
		return nil, ee
	}

	notify := func(err error, wait time.Duration) {
		s.log.WarnContext(ctx, "extraction attempt failed, retrying",
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	start := s.clock.Now()
	res, err := backoff.RetryNotifyWithTimerAndData(op, s.newBackOff(ctx), notify, &clockTimer{clock: s.clock})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extract: %w: %w", domain.ErrCancelled, ctx.Err())
		}
		var ee *domain.ExtractionError
		if errors.As(err, &ee) {
			ee.Attempts = attempts
			s.log.WarnContext(ctx, "extraction failed",
				slog.String("kind", string(ee.Kind)),
				slog.Int("attempts", attempts),
				slog.String("error", ee.Err.Error()),
			)
			return nil, fmt.Errorf("extract: %w", ee)
		}
		return nil, fmt.Errorf("extract: %w", err)
	}

	s.log.InfoContext(ctx, "extraction succeeded",
		slog.Int("attempts", attempts),
		slog.Int("items", res.ItemCount()),
		slog.Duration("elapsed", s.clock.Since(start)),
	)
	return res, nil
}

// attempt runs a single call bounded by the attempt timeout.
func (s *Service) attempt(ctx context.Context, payload string) (*domain.ExtractionResult, error) {
	actx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	raw, err := s.provider.Complete(actx, SystemPrompt, payload)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewExtractionError(domain.ExtractionTimeout,
				fmt.Errorf("attempt exceeded %s: %w", s.cfg.AttemptTimeout, err))
		}
		return nil, err
	}

	return s.schema.Decode(raw)
}

// newBackOff returns max_attempts-1 exponential waits without jitter,
// starting at initial_backoff.
func (s *Service) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.Multiplier = s.cfg.BackoffMultiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	retries := s.cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
