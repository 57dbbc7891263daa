package capture

import (
	"context"
	"sync"
)

var _ Transducer = &transducerMock{}

type transducerMock struct {
	StartFunc  func(ctx context.Context, handler func(Event)) error
	StopFunc   func() error
	CancelFunc func()

	calls struct {
		Start []struct {
			Ctx     context.Context
			Handler func(Event)
		}
		Stop   []struct{}
		Cancel []struct{}
	}
	lockStart  sync.RWMutex
	lockStop   sync.RWMutex
	lockCancel sync.RWMutex
}

func (mock *transducerMock) Start(ctx context.Context, handler func(Event)) error {
	callInfo := struct {
		Ctx     context.Context
		Handler func(Event)
	}{Ctx: ctx, Handler: handler}
	mock.lockStart.Lock()
	mock.calls.Start = append(mock.calls.Start, callInfo)
	mock.lockStart.Unlock()
	if mock.StartFunc == nil {
		return nil
	}
	return mock.StartFunc(ctx, handler)
}

func (mock *transducerMock) StartCalls() []struct {
	Ctx     context.Context
	Handler func(Event)
} {
	mock.lockStart.RLock()
	calls := mock.calls.Start
	mock.lockStart.RUnlock()
	return calls
}

// Emit delivers ev to the handler of the most recent Start call.
func (mock *transducerMock) Emit(ev Event) {
	calls := mock.StartCalls()
	if len(calls) == 0 {
		panic("transducerMock.Emit: Start was never called")
	}
	calls[len(calls)-1].Handler(ev)
}

func (mock *transducerMock) Stop() error {
	mock.lockStop.Lock()
	mock.calls.Stop = append(mock.calls.Stop, struct{}{})
	mock.lockStop.Unlock()
	if mock.StopFunc == nil {
		return nil
	}
	return mock.StopFunc()
}

func (mock *transducerMock) StopCalls() []struct{} {
	mock.lockStop.RLock()
	calls := mock.calls.Stop
	mock.lockStop.RUnlock()
	return calls
}

func (mock *transducerMock) Cancel() {
	mock.lockCancel.Lock()
	mock.calls.Cancel = append(mock.calls.Cancel, struct{}{})
	mock.lockCancel.Unlock()
	if mock.CancelFunc != nil {
		mock.CancelFunc()
	}
}

func (mock *transducerMock) CancelCalls() []struct{} {
	mock.lockCancel.RLock()
	calls := mock.calls.Cancel
	mock.lockCancel.RUnlock()
	return calls
}
