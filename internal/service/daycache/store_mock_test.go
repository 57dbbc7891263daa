package daycache

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

var _ dayStore = &dayStoreMock{}

type dayStoreMock struct {
	GetDayFunc   func(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ListDaysFunc func(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error)

	calls struct {
		GetDay []struct {
			UserID uuid.UUID
			Date   string
		}
		ListDays []struct {
			UserID uuid.UUID
			Dates  []string
		}
	}
	lockGetDay   sync.RWMutex
	lockListDays sync.RWMutex
}

func (mock *dayStoreMock) GetDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if mock.GetDayFunc == nil {
		panic("dayStoreMock.GetDayFunc: method is nil but dayStore.GetDay was just called")
	}
	mock.lockGetDay.Lock()
	mock.calls.GetDay = append(mock.calls.GetDay, struct {
		UserID uuid.UUID
		Date   string
	}{UserID: userID, Date: date})
	mock.lockGetDay.Unlock()
	return mock.GetDayFunc(ctx, userID, date)
}

func (mock *dayStoreMock) GetDayCalls() []struct {
	UserID uuid.UUID
	Date   string
} {
	mock.lockGetDay.RLock()
	calls := mock.calls.GetDay
	mock.lockGetDay.RUnlock()
	return calls
}

func (mock *dayStoreMock) ListDays(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error) {
	if mock.ListDaysFunc == nil {
		panic("dayStoreMock.ListDaysFunc: method is nil but dayStore.ListDays was just called")
	}
	mock.lockListDays.Lock()
	mock.calls.ListDays = append(mock.calls.ListDays, struct {
		UserID uuid.UUID
		Dates  []string
	}{UserID: userID, Dates: dates})
	mock.lockListDays.Unlock()
	return mock.ListDaysFunc(ctx, userID, dates)
}

func (mock *dayStoreMock) ListDaysCalls() []struct {
	UserID uuid.UUID
	Dates  []string
} {
	mock.lockListDays.RLock()
	calls := mock.calls.ListDays
	mock.lockListDays.RUnlock()
	return calls
}
