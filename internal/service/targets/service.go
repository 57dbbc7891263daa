// Package targets implements the macro target solver and target persistence.
package targets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

type targetStore interface {
	GetTargets(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error)
	UpsertTargets(ctx context.Context, t domain.MacroTargets) error
	UpdateDayTargets(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type dayInvalidator interface {
	Invalidate(userID uuid.UUID, date string)
}

// Service reads and updates the live macro targets of users.
type Service struct {
	log   *slog.Logger
	store targetStore
	tx    txManager
	cache dayInvalidator
	clock clockwork.Clock
}

// NewService creates a new targets service.
func NewService(
	logger *slog.Logger,
	store targetStore,
	tx txManager,
	cache dayInvalidator,
	clock clockwork.Clock,
) *Service {
	return &Service{
		log:   logger.With("service", "targets"),
		store: store,
		tx:    tx,
		cache: cache,
		clock: clock,
	}
}

// Get returns the live targets of the user, or the defaults when none were set.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error) {
	t, err := s.store.GetTargets(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		def := domain.DefaultMacroTargets(userID)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("targets.Get: %w", err)
	}
	return t, nil
}

// UpdateInput holds parameters for the targets update operation.
type UpdateInput struct {
	UserID   uuid.UUID
	Form     FormState
	Location *time.Location
}

// Validate converts the form into targets.
func (i UpdateInput) Validate() (domain.MacroTargets, error) {
	if i.UserID == uuid.Nil {
		return domain.MacroTargets{}, domain.NewValidationError("user_id", "required")
	}
	return RestoreForm(i.Form).Targets(i.UserID)
}

// Update stores new live targets. Only today's snapshot is rewritten (when
// today's day exists); past days keep the targets they were logged against.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.MacroTargets, error) {
	t, err := input.Validate()
	if err != nil {
		return nil, err
	}

	today := domain.LocalDate(s.clock.Now(), input.Location)

	var todayUpdated bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpsertTargets(txCtx, t); err != nil {
			return fmt.Errorf("upsert targets: %w", err)
		}
		updated, err := s.store.UpdateDayTargets(txCtx, t.UserID, today, t)
		if err != nil {
			return fmt.Errorf("update today's snapshot: %w", err)
		}
		todayUpdated = updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("targets.Update: %w", err)
	}

	s.cache.Invalidate(t.UserID, today)

	s.log.InfoContext(ctx, "targets updated",
		slog.String("user_id", t.UserID.String()),
		slog.Int("calories", t.Calories),
		slog.Bool("today_snapshot_updated", todayUpdated),
	)
	return &t, nil
}

// SolveInput is a form state plus the edits the user just made.
type SolveInput struct {
	Form  FormState
	Edits map[Field]string
}

// Validate checks that every edited field exists.
func (i SolveInput) Validate() error {
	var errs []domain.FieldError
	for field := range i.Edits {
		if !field.IsValid() {
			errs = append(errs, domain.FieldError{Field: string(field), Message: "unknown field"})
		}
	}
	if i.Form.Derived != "" && !i.Form.Derived.IsValid() {
		errs = append(errs, domain.FieldError{Field: "derived", Message: "unknown field"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Solve applies the edits to the form and returns its new state. It has no
// side effects.
func (s *Service) Solve(input SolveInput) (FormState, error) {
	if err := input.Validate(); err != nil {
		return FormState{}, err
	}
	f := RestoreForm(input.Form)
	if len(input.Edits) > 0 {
		f.SetMany(input.Edits)
	} else {
		f.solve()
	}
	return f.State(), nil
}
