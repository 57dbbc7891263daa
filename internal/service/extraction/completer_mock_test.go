package extraction

import (
	"context"
	"sync"
)

var _ completer = &completerMock{}

type completerMock struct {
	CompleteFunc func(ctx context.Context, system, user string) ([]byte, error)

	calls struct {
		Complete []struct {
			Ctx    context.Context
			System string
			User   string
		}
	}
	lockComplete sync.RWMutex
}

func (mock *completerMock) Complete(ctx context.Context, system, user string) ([]byte, error) {
	if mock.CompleteFunc == nil {
		panic("completerMock.CompleteFunc: method is nil but completer.Complete was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		System string
		User   string
	}{Ctx: ctx, System: system, User: user}
	mock.lockComplete.Lock()
	mock.calls.Complete = append(mock.calls.Complete, callInfo)
	mock.lockComplete.Unlock()
	return mock.CompleteFunc(ctx, system, user)
}

func (mock *completerMock) CompleteCalls() []struct {
	Ctx    context.Context
	System string
	User   string
} {
	mock.lockComplete.RLock()
	calls := mock.calls.Complete
	mock.lockComplete.RUnlock()
	return calls
}
