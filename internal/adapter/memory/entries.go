package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// GetEntry returns an entry of the user and the date of its day.
func (s *Store) GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, idx, meal, err := s.findEntryLocked(userID, entryID)
	if err != nil {
		return nil, "", err
	}
	e := d.Meals[meal][idx]
	return &e, d.Date, nil
}

// AddEntry appends an item to a meal, creating the day when needed.
func (s *Store) AddEntry(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "add_entry", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.ensureDayLocked(userID, date)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "add_entry", Err: err}
	}

	now := s.clock.Now().UTC()
	e := domain.FoodEntry{
		FoodItem:   item,
		ID:         uuid.New(),
		UserID:     userID,
		DailyLogID: d.ID,
		Meal:       meal,
		Position:   nextPosition(d.Meals[meal]),
		CreatedAt:  now,
	}
	d.Meals[meal] = append(d.Meals[meal], e)
	d.RecomputeTotals()
	d.UpdatedAt = now
	s.entryAt[e.ID] = dayKey{userID, date}
	return &e, nil
}

// UpdateEntry replaces the item and meal of an entry and returns the date of its day.
func (s *Store) UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", &domain.PersistenceError{Op: "update_entry", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, idx, oldMeal, err := s.findEntryLocked(userID, entryID)
	if err != nil {
		return nil, "", &domain.PersistenceError{Op: "update_entry", Err: err}
	}

	e := d.Meals[oldMeal][idx]
	e.FoodItem = item
	if meal != oldMeal {
		d.Meals[oldMeal] = append(d.Meals[oldMeal][:idx:idx], d.Meals[oldMeal][idx+1:]...)
		e.Meal = meal
		e.Position = nextPosition(d.Meals[meal])
		d.Meals[meal] = append(d.Meals[meal], e)
	} else {
		d.Meals[oldMeal][idx] = e
	}
	d.RecomputeTotals()
	d.UpdatedAt = s.clock.Now().UTC()
	return &e, d.Date, nil
}

// DeleteEntry removes an entry and returns the date of its day.
func (s *Store) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.PersistenceError{Op: "delete_entry", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, idx, meal, err := s.findEntryLocked(userID, entryID)
	if err != nil {
		return "", &domain.PersistenceError{Op: "delete_entry", Err: err}
	}

	d.Meals[meal] = append(d.Meals[meal][:idx:idx], d.Meals[meal][idx+1:]...)
	delete(s.entryAt, entryID)
	d.RecomputeTotals()
	d.UpdatedAt = s.clock.Now().UTC()
	return d.Date, nil
}

func (s *Store) findEntryLocked(userID, entryID uuid.UUID) (*domain.DailyLog, int, domain.Meal, error) {
	notFound := fmt.Errorf("food_entry %s: %w", entryID, domain.ErrNotFound)

	k, ok := s.entryAt[entryID]
	if !ok || k.user != userID {
		return nil, 0, "", notFound
	}
	d := s.days[k]
	for _, m := range domain.Meals {
		for i, e := range d.Meals[m] {
			if e.ID == entryID {
				return d, i, m, nil
			}
		}
	}
	return nil, 0, "", notFound
}

func nextPosition(entries []domain.FoodEntry) int {
	next := 0
	for _, e := range entries {
		if e.Position >= next {
			next = e.Position + 1
		}
	}
	return next
}
