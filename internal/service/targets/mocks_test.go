package targets

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

var (
	_ targetStore    = &targetStoreMock{}
	_ txManager      = &txManagerMock{}
	_ dayInvalidator = &dayInvalidatorMock{}
)

type targetStoreMock struct {
	GetTargetsFunc       func(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error)
	UpsertTargetsFunc    func(ctx context.Context, t domain.MacroTargets) error
	UpdateDayTargetsFunc func(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error)

	calls struct {
		UpsertTargets []struct {
			T domain.MacroTargets
		}
		UpdateDayTargets []struct {
			UserID uuid.UUID
			Date   string
			T      domain.MacroTargets
		}
	}
	lockUpsertTargets    sync.RWMutex
	lockUpdateDayTargets sync.RWMutex
}

func (mock *targetStoreMock) GetTargets(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error) {
	if mock.GetTargetsFunc == nil {
		panic("targetStoreMock.GetTargetsFunc: method is nil but targetStore.GetTargets was just called")
	}
	return mock.GetTargetsFunc(ctx, userID)
}

func (mock *targetStoreMock) UpsertTargets(ctx context.Context, t domain.MacroTargets) error {
	if mock.UpsertTargetsFunc == nil {
		panic("targetStoreMock.UpsertTargetsFunc: method is nil but targetStore.UpsertTargets was just called")
	}
	mock.lockUpsertTargets.Lock()
	mock.calls.UpsertTargets = append(mock.calls.UpsertTargets, struct {
		T domain.MacroTargets
	}{T: t})
	mock.lockUpsertTargets.Unlock()
	return mock.UpsertTargetsFunc(ctx, t)
}

func (mock *targetStoreMock) UpsertTargetsCalls() []struct {
	T domain.MacroTargets
} {
	mock.lockUpsertTargets.RLock()
	calls := mock.calls.UpsertTargets
	mock.lockUpsertTargets.RUnlock()
	return calls
}

func (mock *targetStoreMock) UpdateDayTargets(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error) {
	if mock.UpdateDayTargetsFunc == nil {
		panic("targetStoreMock.UpdateDayTargetsFunc: method is nil but targetStore.UpdateDayTargets was just called")
	}
	mock.lockUpdateDayTargets.Lock()
	mock.calls.UpdateDayTargets = append(mock.calls.UpdateDayTargets, struct {
		UserID uuid.UUID
		Date   string
		T      domain.MacroTargets
	}{UserID: userID, Date: date, T: t})
	mock.lockUpdateDayTargets.Unlock()
	return mock.UpdateDayTargetsFunc(ctx, userID, date, t)
}

func (mock *targetStoreMock) UpdateDayTargetsCalls() []struct {
	UserID uuid.UUID
	Date   string
	T      domain.MacroTargets
} {
	mock.lockUpdateDayTargets.RLock()
	calls := mock.calls.UpdateDayTargets
	mock.lockUpdateDayTargets.RUnlock()
	return calls
}

type txManagerMock struct {
	RunInTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (mock *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mock.RunInTxFunc == nil {
		panic("txManagerMock.RunInTxFunc: method is nil but txManager.RunInTx was just called")
	}
	return mock.RunInTxFunc(ctx, fn)
}

type dayInvalidatorMock struct {
	calls struct {
		Invalidate []struct {
			UserID uuid.UUID
			Date   string
		}
	}
	lockInvalidate sync.RWMutex
}

func (mock *dayInvalidatorMock) Invalidate(userID uuid.UUID, date string) {
	mock.lockInvalidate.Lock()
	mock.calls.Invalidate = append(mock.calls.Invalidate, struct {
		UserID uuid.UUID
		Date   string
	}{UserID: userID, Date: date})
	mock.lockInvalidate.Unlock()
}

func (mock *dayInvalidatorMock) InvalidateCalls() []struct {
	UserID uuid.UUID
	Date   string
} {
	mock.lockInvalidate.RLock()
	calls := mock.calls.Invalidate
	mock.lockInvalidate.RUnlock()
	return calls
}
