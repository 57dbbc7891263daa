package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

var (
	_ entryStore = &entryStoreMock{}
	_ dayCache   = &dayCacheMock{}
)

type entryStoreMock struct {
	GetEntryFunc    func(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error)
	AddEntryFunc    func(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error)
	UpdateEntryFunc func(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error)
	DeleteEntryFunc func(ctx context.Context, userID, entryID uuid.UUID) (string, error)

	calls struct {
		AddEntry []struct {
			Date string
			Meal domain.Meal
			Item domain.FoodItem
		}
		UpdateEntry []struct {
			EntryID uuid.UUID
			Meal    domain.Meal
			Item    domain.FoodItem
		}
	}
	lockAddEntry    sync.RWMutex
	lockUpdateEntry sync.RWMutex
}

func (mock *entryStoreMock) GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error) {
	if mock.GetEntryFunc == nil {
		panic("entryStoreMock.GetEntryFunc: method is nil but entryStore.GetEntry was just called")
	}
	return mock.GetEntryFunc(ctx, userID, entryID)
}

func (mock *entryStoreMock) AddEntry(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error) {
	if mock.AddEntryFunc == nil {
		panic("entryStoreMock.AddEntryFunc: method is nil but entryStore.AddEntry was just called")
	}
	mock.lockAddEntry.Lock()
	mock.calls.AddEntry = append(mock.calls.AddEntry, struct {
		Date string
		Meal domain.Meal
		Item domain.FoodItem
	}{Date: date, Meal: meal, Item: item})
	mock.lockAddEntry.Unlock()
	return mock.AddEntryFunc(ctx, userID, date, meal, item)
}

func (mock *entryStoreMock) AddEntryCalls() []struct {
	Date string
	Meal domain.Meal
	Item domain.FoodItem
} {
	mock.lockAddEntry.RLock()
	calls := mock.calls.AddEntry
	mock.lockAddEntry.RUnlock()
	return calls
}

func (mock *entryStoreMock) UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error) {
	if mock.UpdateEntryFunc == nil {
		panic("entryStoreMock.UpdateEntryFunc: method is nil but entryStore.UpdateEntry was just called")
	}
	mock.lockUpdateEntry.Lock()
	mock.calls.UpdateEntry = append(mock.calls.UpdateEntry, struct {
		EntryID uuid.UUID
		Meal    domain.Meal
		Item    domain.FoodItem
	}{EntryID: entryID, Meal: meal, Item: item})
	mock.lockUpdateEntry.Unlock()
	return mock.UpdateEntryFunc(ctx, userID, entryID, meal, item)
}

func (mock *entryStoreMock) UpdateEntryCalls() []struct {
	EntryID uuid.UUID
	Meal    domain.Meal
	Item    domain.FoodItem
} {
	mock.lockUpdateEntry.RLock()
	calls := mock.calls.UpdateEntry
	mock.lockUpdateEntry.RUnlock()
	return calls
}

func (mock *entryStoreMock) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error) {
	if mock.DeleteEntryFunc == nil {
		panic("entryStoreMock.DeleteEntryFunc: method is nil but entryStore.DeleteEntry was just called")
	}
	return mock.DeleteEntryFunc(ctx, userID, entryID)
}

type dayCacheMock struct {
	GetFunc func(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)

	calls struct {
		Invalidate []struct {
			UserID uuid.UUID
			Date   string
		}
		Prefetch []struct {
			UserID uuid.UUID
			Center string
		}
	}
	lockInvalidate sync.RWMutex
	lockPrefetch   sync.RWMutex
}

func (mock *dayCacheMock) Get(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if mock.GetFunc == nil {
		panic("dayCacheMock.GetFunc: method is nil but dayCache.Get was just called")
	}
	return mock.GetFunc(ctx, userID, date)
}

func (mock *dayCacheMock) Invalidate(userID uuid.UUID, date string) {
	mock.lockInvalidate.Lock()
	mock.calls.Invalidate = append(mock.calls.Invalidate, struct {
		UserID uuid.UUID
		Date   string
	}{UserID: userID, Date: date})
	mock.lockInvalidate.Unlock()
}

func (mock *dayCacheMock) InvalidateCalls() []struct {
	UserID uuid.UUID
	Date   string
} {
	mock.lockInvalidate.RLock()
	calls := mock.calls.Invalidate
	mock.lockInvalidate.RUnlock()
	return calls
}

func (mock *dayCacheMock) Prefetch(ctx context.Context, userID uuid.UUID, center string, loc *time.Location) {
	mock.lockPrefetch.Lock()
	mock.calls.Prefetch = append(mock.calls.Prefetch, struct {
		UserID uuid.UUID
		Center string
	}{UserID: userID, Center: center})
	mock.lockPrefetch.Unlock()
}

func (mock *dayCacheMock) PrefetchCalls() []struct {
	UserID uuid.UUID
	Center string
} {
	mock.lockPrefetch.RLock()
	calls := mock.calls.Prefetch
	mock.lockPrefetch.RUnlock()
	return calls
}
