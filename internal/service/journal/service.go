// Package journal implements manual reads and edits of daily logs.
// Every mutation invalidates the affected day in the Day Cache before it returns.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

type entryStore interface {
	GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error)
	AddEntry(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error)
	UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error)
}

type dayCache interface {
	Get(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	Invalidate(userID uuid.UUID, date string)
	Prefetch(ctx context.Context, userID uuid.UUID, center string, loc *time.Location)
}

// Service implements day reads and manual entry edits.
type Service struct {
	log   *slog.Logger
	store entryStore
	cache dayCache
	clock clockwork.Clock
}

// NewService creates a new journal service.
func NewService(logger *slog.Logger, store entryStore, cache dayCache, clock clockwork.Clock) *Service {
	return &Service{
		log:   logger.With("service", "journal"),
		store: store,
		cache: cache,
		clock: clock,
	}
}

// Today returns the user's local calendar date.
func (s *Service) Today(loc *time.Location) string {
	return domain.LocalDate(s.clock.Now(), loc)
}

// GetDay returns the day through the cache and warms the days before it.
func (s *Service) GetDay(ctx context.Context, userID uuid.UUID, date string, loc *time.Location) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	day, err := s.cache.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("journal.GetDay: %w", err)
	}

	s.cache.Prefetch(ctx, userID, date, loc)
	return day, nil
}

// Refresh drops the cached copy of the day and reads it again from storage.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	s.cache.Invalidate(userID, date)
	day, err := s.cache.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("journal.Refresh: %w", err)
	}
	return day, nil
}

// Prefetch warms the cache with the days leading up to center.
func (s *Service) Prefetch(ctx context.Context, userID uuid.UUID, center string, loc *time.Location) {
	s.cache.Prefetch(ctx, userID, center, loc)
}

// AddEntry adds a food entry to a meal of the day.
func (s *Service) AddEntry(ctx context.Context, input AddEntryInput) (*domain.FoodEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.store.AddEntry(ctx, input.UserID, input.Date, input.Meal, input.Item)
	if err != nil {
		return nil, fmt.Errorf("journal.AddEntry: %w", err)
	}
	s.cache.Invalidate(input.UserID, input.Date)

	s.log.InfoContext(ctx, "entry added",
		slog.String("user_id", input.UserID.String()),
		slog.String("date", input.Date),
		slog.String("meal", string(input.Meal)),
	)
	return entry, nil
}

// UpdateEntry applies a partial edit to an entry.
func (s *Service) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.FoodEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	current, _, err := s.store.GetEntry(ctx, input.UserID, input.EntryID)
	if err != nil {
		return nil, fmt.Errorf("journal.UpdateEntry: %w", err)
	}

	meal, item := input.apply(*current)
	if errs := validateItem(item); len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	entry, date, err := s.store.UpdateEntry(ctx, input.UserID, input.EntryID, meal, item)
	if err != nil {
		return nil, fmt.Errorf("journal.UpdateEntry: %w", err)
	}
	s.cache.Invalidate(input.UserID, date)

	s.log.InfoContext(ctx, "entry updated",
		slog.String("user_id", input.UserID.String()),
		slog.String("entry_id", input.EntryID.String()),
		slog.String("date", date),
	)
	return entry, nil
}

// DeleteEntry removes an entry and returns the date of its day.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error) {
	if userID == uuid.Nil || entryID == uuid.Nil {
		return "", domain.NewValidationError("entry_id", "required")
	}

	date, err := s.store.DeleteEntry(ctx, userID, entryID)
	if err != nil {
		return "", fmt.Errorf("journal.DeleteEntry: %w", err)
	}
	s.cache.Invalidate(userID, date)

	s.log.InfoContext(ctx, "entry deleted",
		slog.String("user_id", userID.String()),
		slog.String("entry_id", entryID.String()),
		slog.String("date", date),
	)
	return date, nil
}
