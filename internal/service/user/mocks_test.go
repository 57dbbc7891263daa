package user

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

var _ userRepo = &userRepoMock{}

type userRepoMock struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFunc  func(ctx context.Context, id uuid.UUID, name, timezone *string) (*domain.User, error)

	calls struct {
		GetByID []struct {
			ID uuid.UUID
		}
		Update []struct {
			ID       uuid.UUID
			Name     *string
			Timezone *string
		}
	}
	lockGetByID sync.RWMutex
	lockUpdate  sync.RWMutex
}

func (mock *userRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if mock.GetByIDFunc == nil {
		panic("userRepoMock.GetByIDFunc: method is nil but userRepo.GetByID was just called")
	}
	mock.lockGetByID.Lock()
	mock.calls.GetByID = append(mock.calls.GetByID, struct {
		ID uuid.UUID
	}{ID: id})
	mock.lockGetByID.Unlock()
	return mock.GetByIDFunc(ctx, id)
}

func (mock *userRepoMock) GetByIDCalls() []struct {
	ID uuid.UUID
} {
	mock.lockGetByID.RLock()
	calls := mock.calls.GetByID
	mock.lockGetByID.RUnlock()
	return calls
}

func (mock *userRepoMock) Update(ctx context.Context, id uuid.UUID, name, timezone *string) (*domain.User, error) {
	if mock.UpdateFunc == nil {
		panic("userRepoMock.UpdateFunc: method is nil but userRepo.Update was just called")
	}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, struct {
		ID       uuid.UUID
		Name     *string
		Timezone *string
	}{ID: id, Name: name, Timezone: timezone})
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, id, name, timezone)
}

func (mock *userRepoMock) UpdateCalls() []struct {
	ID       uuid.UUID
	Name     *string
	Timezone *string
} {
	mock.lockUpdate.RLock()
	calls := mock.calls.Update
	mock.lockUpdate.RUnlock()
	return calls
}
