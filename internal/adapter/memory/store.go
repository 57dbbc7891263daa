// Package memory implements the persistence gateway in process memory.
// It backs tests and the CLI's --memory mode and mirrors the PostgreSQL
// repositories' semantics: per-(user, date) uniqueness, user-scoped access
// and totals recomputed on every write.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

type dayKey struct {
	user uuid.UUID
	date string
}

// Store is an in-memory persistence gateway. It is safe for concurrent use.
type Store struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	users   map[uuid.UUID]domain.User
	targets map[uuid.UUID]domain.MacroTargets
	days    map[dayKey]*domain.DailyLog
	dayByID map[uuid.UUID]dayKey
	entryAt map[uuid.UUID]dayKey
}

// NewStore creates an empty Store.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		users:   make(map[uuid.UUID]domain.User),
		targets: make(map[uuid.UUID]domain.MacroTargets),
		days:    make(map[dayKey]*domain.DailyLog),
		dayByID: make(map[uuid.UUID]dayKey),
		entryAt: make(map[uuid.UUID]dayKey),
	}
}

// RunInTx runs fn directly. Every Store operation is atomic on its own, but
// a sequence run through RunInTx is not rolled back on error.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// Create stores a user. A zero ID or CreatedAt is filled in.
func (s *Store) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.clock.Now().UTC()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return nil, fmt.Errorf("user %s: %w", u.ID, domain.ErrAlreadyExists)
	}
	s.users[u.ID] = u
	return &u, nil
}

// GetByID returns a user by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

// Update changes the name and timezone of a user. Nil leaves a field as is.
func (s *Store) Update(ctx context.Context, id uuid.UUID, name, timezone *string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if name != nil {
		u.Name = *name
	}
	if timezone != nil {
		u.Timezone = *timezone
	}
	s.users[id] = u
	return &u, nil
}

// ---------------------------------------------------------------------------
// Days
// ---------------------------------------------------------------------------

// GetDay returns the stored day, or domain.ErrNotFound.
func (s *Store) GetDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.days[dayKey{userID, date}]
	if !ok {
		return nil, fmt.Errorf("daily_log %s/%s: %w", userID, date, domain.ErrNotFound)
	}
	return d.Clone(), nil
}

// ListDays returns the stored days among dates, oldest first.
func (s *Store) ListDays(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DailyLog, 0, len(dates))
	for _, date := range dates {
		if d, ok := s.days[dayKey{userID, date}]; ok {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// EnsureDay returns the day, creating it with a snapshot of the live targets.
func (s *Store) EnsureDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "ensure_day", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.ensureDayLocked(userID, date)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "ensure_day", Err: err}
	}
	return d.Clone(), nil
}

func (s *Store) ensureDayLocked(userID uuid.UUID, date string) (*domain.DailyLog, error) {
	k := dayKey{userID, date}
	if d, ok := s.days[k]; ok {
		return d, nil
	}
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	t, ok := s.targets[userID]
	if !ok {
		t = domain.DefaultMacroTargets(userID)
	}
	now := s.clock.Now().UTC()
	d := domain.NewDailyLog(userID, date)
	d.ID = uuid.New()
	d.Targets = &t
	d.CreatedAt = now
	d.UpdatedAt = now

	s.days[k] = d
	s.dayByID[d.ID] = k
	return d, nil
}

// ReplaceDayEntries makes result the complete content of the day.
func (s *Store) ReplaceDayEntries(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error) {
	if result == nil {
		return nil, domain.NewValidationError("result", "required")
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "replace_day_entries", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.dayByID[dayID]
	if !ok || k.user != userID {
		return nil, &domain.PersistenceError{
			Op:  "replace_day_entries",
			Err: fmt.Errorf("daily_log %s: %w", dayID, domain.ErrNotFound),
		}
	}
	d := s.days[k]

	for _, m := range domain.Meals {
		for _, e := range d.Meals[m] {
			delete(s.entryAt, e.ID)
		}
	}

	now := s.clock.Now().UTC()
	for _, m := range domain.Meals {
		items := result.Items(m)
		entries := make([]domain.FoodEntry, 0, len(items))
		for pos, item := range items {
			e := domain.FoodEntry{
				FoodItem:   item,
				ID:         uuid.New(),
				UserID:     userID,
				DailyLogID: d.ID,
				Meal:       m,
				Position:   pos,
				CreatedAt:  now,
			}
			entries = append(entries, e)
			s.entryAt[e.ID] = k
		}
		d.Meals[m] = entries
	}
	d.RecomputeTotals()
	d.UpdatedAt = now

	return d.Clone(), nil
}

// UpdateDayTargets rewrites the targets snapshot of a day and reports
// whether the day exists.
func (s *Store) UpdateDayTargets(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &domain.PersistenceError{Op: "update_day_targets", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.days[dayKey{userID, date}]
	if !ok {
		return false, nil
	}
	t.UserID = userID
	d.Targets = &t
	d.UpdatedAt = s.clock.Now().UTC()
	return true, nil
}

// ---------------------------------------------------------------------------
// Targets
// ---------------------------------------------------------------------------

// GetTargets returns the live targets, or domain.ErrNotFound.
func (s *Store) GetTargets(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.targets[userID]
	if !ok {
		return nil, fmt.Errorf("macro_targets %s: %w", userID, domain.ErrNotFound)
	}
	return &t, nil
}

// UpsertTargets stores the live targets of a user.
func (s *Store) UpsertTargets(ctx context.Context, t domain.MacroTargets) error {
	if err := ctx.Err(); err != nil {
		return &domain.PersistenceError{Op: "upsert_targets", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[t.UserID]; !ok {
		return &domain.PersistenceError{
			Op:  "upsert_targets",
			Err: fmt.Errorf("user %s: %w", t.UserID, domain.ErrNotFound),
		}
	}
	s.targets[t.UserID] = t
	return nil
}
