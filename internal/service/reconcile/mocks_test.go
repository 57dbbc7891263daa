package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
	"github.com/heartmarshall/macrolog-backend/internal/service/extraction"
)

var (
	_ extractor          = &extractorMock{}
	_ dayGateway         = &dayGatewayMock{}
	_ capture.Transducer = &fakeTransducer{}
)

type extractorMock struct {
	ExtractFunc func(ctx context.Context, req extraction.Request) (*domain.ExtractionResult, error)

	calls struct {
		Extract []struct {
			Req extraction.Request
		}
	}
	lockExtract sync.RWMutex
}

func (mock *extractorMock) Extract(ctx context.Context, req extraction.Request) (*domain.ExtractionResult, error) {
	if mock.ExtractFunc == nil {
		panic("extractorMock.ExtractFunc: method is nil but extractor.Extract was just called")
	}
	mock.lockExtract.Lock()
	mock.calls.Extract = append(mock.calls.Extract, struct {
		Req extraction.Request
	}{Req: req})
	mock.lockExtract.Unlock()
	return mock.ExtractFunc(ctx, req)
}

func (mock *extractorMock) ExtractCalls() []struct {
	Req extraction.Request
} {
	mock.lockExtract.RLock()
	calls := mock.calls.Extract
	mock.lockExtract.RUnlock()
	return calls
}

type dayGatewayMock struct {
	EnsureDayFunc         func(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ReplaceDayEntriesFunc func(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error)

	calls struct {
		ReplaceDayEntries []struct {
			Ctx    context.Context
			DayID  uuid.UUID
			Result *domain.ExtractionResult
		}
	}
	lockReplaceDayEntries sync.RWMutex
}

func (mock *dayGatewayMock) EnsureDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if mock.EnsureDayFunc == nil {
		panic("dayGatewayMock.EnsureDayFunc: method is nil but dayGateway.EnsureDay was just called")
	}
	return mock.EnsureDayFunc(ctx, userID, date)
}

func (mock *dayGatewayMock) ReplaceDayEntries(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error) {
	if mock.ReplaceDayEntriesFunc == nil {
		panic("dayGatewayMock.ReplaceDayEntriesFunc: method is nil but dayGateway.ReplaceDayEntries was just called")
	}
	mock.lockReplaceDayEntries.Lock()
	mock.calls.ReplaceDayEntries = append(mock.calls.ReplaceDayEntries, struct {
		Ctx    context.Context
		DayID  uuid.UUID
		Result *domain.ExtractionResult
	}{Ctx: ctx, DayID: dayID, Result: result})
	mock.lockReplaceDayEntries.Unlock()
	return mock.ReplaceDayEntriesFunc(ctx, userID, dayID, result)
}

func (mock *dayGatewayMock) ReplaceDayEntriesCalls() []struct {
	Ctx    context.Context
	DayID  uuid.UUID
	Result *domain.ExtractionResult
} {
	mock.lockReplaceDayEntries.RLock()
	calls := mock.calls.ReplaceDayEntries
	mock.lockReplaceDayEntries.RUnlock()
	return calls
}

// fakeTransducer records the handler of the current session so tests can
// play recognition events into it.
type fakeTransducer struct {
	mu       sync.Mutex
	handler  func(capture.Event)
	stopped  int
	startErr error
}

func (f *fakeTransducer) Start(ctx context.Context, handler func(capture.Event)) error {
	f.mu.Lock()
	if err := f.startErr; err != nil {
		f.mu.Unlock()
		return err
	}
	f.handler = handler
	f.mu.Unlock()
	handler(capture.Event{Kind: capture.EventStarted})
	return nil
}

func (f *fakeTransducer) Stop() error {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransducer) Cancel() {}

func (f *fakeTransducer) emit(ev capture.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}
