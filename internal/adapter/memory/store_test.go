package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

func newStoreWithUser(t *testing.T) (*Store, domain.User) {
	t.Helper()
	s := NewStore(clockwork.NewFakeClock())
	u, err := s.Create(context.Background(), domain.User{Name: "Test"})
	require.NoError(t, err)
	return s, *u
}

func threeEggsAndToast() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Breakfast: []domain.FoodItem{
			{Name: "Eggs", Quantity: "3 large", Calories: 210, Protein: 18, Carbs: 0, Fat: 15},
			{Name: "Toast", Quantity: "1 slice", Calories: 80, Protein: 3, Carbs: 15, Fat: 1},
		},
	}
}

func TestStore_EnsureDay_SnapshotsTargets(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	d, err := s.EnsureDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, d.IsPersisted())
	assert.Equal(t, domain.DefaultMacroTargets(u.ID), *d.Targets)

	live := domain.MacroTargets{UserID: u.ID, Calories: 1800, Protein: 140, Carbs: 160, Fat: 60}
	require.NoError(t, s.UpsertTargets(ctx, live))

	again, err := s.EnsureDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)
	assert.Equal(t, 2000, again.Targets.Calories, "existing snapshot is kept")

	next, err := s.EnsureDay(ctx, u.ID, "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, live, *next.Targets)
}

func TestStore_EnsureDay_UnknownUser(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())

	_, err := s.EnsureDay(context.Background(), uuid.New(), "2024-03-01")
	var pe *domain.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ReplaceDayEntries_IdempotentAndConsistent(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	d, err := s.EnsureDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)

	first, err := s.ReplaceDayEntries(ctx, u.ID, d.ID, threeEggsAndToast())
	require.NoError(t, err)
	second, err := s.ReplaceDayEntries(ctx, u.ID, d.ID, threeEggsAndToast())
	require.NoError(t, err)

	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, 2, second.EntryCount())
	assert.Equal(t, second.SumEntries(), second.Totals)
	assert.Equal(t, domain.MacroTotals{Calories: 290, Protein: 21, Carbs: 15, Fat: 16}, second.Totals)

	stored, err := s.GetDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, second.Totals, stored.Totals)

	// Entries of the first replacement are gone.
	_, _, err = s.GetEntry(ctx, u.ID, first.Meals[domain.MealBreakfast][0].ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ReplaceDayEntries_OtherUser(t *testing.T) {
	s, owner := newStoreWithUser(t)
	ctx := context.Background()
	intruder, err := s.Create(ctx, domain.User{Name: "Other"})
	require.NoError(t, err)

	d, err := s.EnsureDay(ctx, owner.ID, "2024-03-01")
	require.NoError(t, err)

	_, err = s.ReplaceDayEntries(ctx, intruder.ID, d.ID, threeEggsAndToast())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_GetDay_ReturnsCopies(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	d, err := s.EnsureDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	_, err = s.ReplaceDayEntries(ctx, u.ID, d.ID, threeEggsAndToast())
	require.NoError(t, err)

	got, err := s.GetDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	got.Meals[domain.MealBreakfast][0].Calories = 9999
	got.Totals.Calories = 9999

	again, err := s.GetDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 210, again.Meals[domain.MealBreakfast][0].Calories)
	assert.Equal(t, 290, again.Totals.Calories)
}

func TestStore_EntryCRUD(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	eggs, err := s.AddEntry(ctx, u.ID, "2024-03-02", domain.MealBreakfast,
		domain.FoodItem{Name: "Eggs", Quantity: "2 large", Calories: 140, Protein: 12, Fat: 10})
	require.NoError(t, err)
	coffee, err := s.AddEntry(ctx, u.ID, "2024-03-02", domain.MealBreakfast,
		domain.FoodItem{Name: "Coffee", Quantity: "1 cup", Calories: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, coffee.Position)

	moved, date, err := s.UpdateEntry(ctx, u.ID, eggs.ID, domain.MealLunch,
		domain.FoodItem{Name: "Eggs", Quantity: "3 large", Calories: 210, Protein: 18, Fat: 15})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", date)
	assert.Equal(t, domain.MealLunch, moved.Meal)

	d, err := s.GetDay(ctx, u.ID, "2024-03-02")
	require.NoError(t, err)
	assert.Len(t, d.Meals[domain.MealBreakfast], 1)
	assert.Len(t, d.Meals[domain.MealLunch], 1)
	assert.Equal(t, 215, d.Totals.Calories)

	date, err = s.DeleteEntry(ctx, u.ID, coffee.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", date)

	d, err = s.GetDay(ctx, u.ID, "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, d.SumEntries(), d.Totals)
	assert.Equal(t, 210, d.Totals.Calories)

	_, err = s.DeleteEntry(ctx, u.ID, coffee.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ListDays(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	for _, date := range []string{"2024-03-03", "2024-03-01"} {
		_, err := s.EnsureDay(ctx, u.ID, date)
		require.NoError(t, err)
	}

	days, err := s.ListDays(ctx, u.ID, []string{"2024-03-03", "2024-03-02", "2024-03-01"})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-01", days[0].Date)
	assert.Equal(t, "2024-03-03", days[1].Date)
}

func TestStore_ConcurrentReplaceKeepsTotalsConsistent(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()
	d, err := s.EnsureDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := threeEggsAndToast()
			if i%2 == 0 {
				r.Snacks = []domain.FoodItem{{Name: "Apple", Quantity: "1", Calories: 95, Carbs: 25}}
			}
			_, err := s.ReplaceDayEntries(ctx, u.ID, d.ID, r)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := s.GetDay(ctx, u.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, final.SumEntries(), final.Totals)
}

func TestStore_UpdateUser(t *testing.T) {
	s, u := newStoreWithUser(t)
	ctx := context.Background()

	tz := "Asia/Tokyo"
	got, err := s.Update(ctx, u.ID, nil, &tz)
	require.NoError(t, err)
	assert.Equal(t, "Test", got.Name)
	assert.Equal(t, tz, got.Timezone)

	stored, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, tz, stored.Timezone)

	_, err = s.Update(ctx, uuid.New(), nil, &tz)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
