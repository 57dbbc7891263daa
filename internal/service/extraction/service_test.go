package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const eggsAndToast = `{
	"breakfast": [
		{"name": "eggs", "quantity": "3 large", "calories": 210, "protein": 18, "carbs": 1, "fat": 15},
		{"name": "toast", "quantity": "1 slice", "calories": 80, "protein": 3, "carbs": 14, "fat": 1}
	],
	"lunch": [], "dinner": [], "snacks": []
}`

func testConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		BackoffMultiplier: 2,
		AttemptTimeout:    3 * time.Minute,
		PriorDays:         3,
	}
}

func newTestService(t *testing.T, provider completer, clock clockwork.Clock, cfg config.ExtractionConfig) *Service {
	t.Helper()
	svc, err := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), provider, clock, cfg)
	require.NoError(t, err)
	return svc
}

func testRequest() Request {
	return Request{
		Transcript: "three eggs and toast",
		AsOf:       time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
		Location:   time.UTC,
	}
}

type extractResult struct {
	res *domain.ExtractionResult
	err error
}

func TestExtract_Success(t *testing.T) {
	t.Parallel()

	mock := &completerMock{
		CompleteFunc: func(ctx context.Context, system, user string) ([]byte, error) {
			return []byte(eggsAndToast), nil
		},
	}
	svc := newTestService(t, mock, clockwork.NewFakeClock(), testConfig())

	res, err := svc.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, res.Breakfast, 2)

	calls := mock.CompleteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, SystemPrompt, calls[0].System)
	assert.Contains(t, calls[0].User, "three eggs and toast")
}

func TestExtract_EmptyTranscript(t *testing.T) {
	t.Parallel()

	mock := &completerMock{}
	svc := newTestService(t, mock, clockwork.NewFakeClock(), testConfig())

	req := testRequest()
	req.Transcript = "  "
	_, err := svc.Extract(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, mock.CompleteCalls())
}

func TestExtract_RetriesTransientWithBackoff(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	mock := &completerMock{}
	mock.CompleteFunc = func(ctx context.Context, system, user string) ([]byte, error) {
		if len(mock.CompleteCalls()) < 3 {
			return nil, domain.NewExtractionError(domain.ExtractionUnavailable, errors.New("529 overloaded"))
		}
		return []byte(eggsAndToast), nil
	}
	svc := newTestService(t, mock, clock, testConfig())
	start := clock.Now()

	done := make(chan extractResult, 1)
	go func() {
		res, err := svc.Extract(context.Background(), testRequest())
		done <- extractResult{res, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// First wait: 2s.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, mock.CompleteCalls(), 1)
	clock.Advance(2*time.Second - time.Millisecond)
	assert.Len(t, mock.CompleteCalls(), 1, "second attempt must wait the full initial backoff")
	clock.Advance(time.Millisecond)

	// Second wait: 4s.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, mock.CompleteCalls(), 2)
	clock.Advance(4 * time.Second)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Len(t, r.res.Breakfast, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("Extract did not finish")
	}
	assert.Len(t, mock.CompleteCalls(), 3)
	assert.Equal(t, 6*time.Second, clock.Since(start))
}

func TestExtract_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	mock := &completerMock{
		CompleteFunc: func(ctx context.Context, system, user string) ([]byte, error) {
			return nil, &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
		},
	}
	svc := newTestService(t, mock, clock, testConfig())

	done := make(chan extractResult, 1)
	go func() {
		res, err := svc.Extract(context.Background(), testRequest())
		done <- extractResult{res, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)

	select {
	case r := <-done:
		var ee *domain.ExtractionError
		require.ErrorAs(t, r.err, &ee)
		assert.Equal(t, domain.ExtractionNetwork, ee.Kind)
		assert.Equal(t, 3, ee.Attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("Extract did not finish")
	}
	assert.Len(t, mock.CompleteCalls(), 3)
}

func TestExtract_NonTransientFailsImmediately(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		raw  string
		want domain.ExtractionErrorKind
	}{
		{name: "auth", err: domain.NewExtractionError(domain.ExtractionAuth, errors.New("401")), want: domain.ExtractionAuth},
		{name: "content rejected", err: domain.NewExtractionError(domain.ExtractionContentRejected, errors.New("refusal")), want: domain.ExtractionContentRejected},
		{name: "malformed output", raw: `{"breakfast": [{"name": ""}]}`, want: domain.ExtractionSchemaInvalid},
		{name: "unclassified", err: errors.New("weird"), want: domain.ExtractionUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := &completerMock{
				CompleteFunc: func(ctx context.Context, system, user string) ([]byte, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return []byte(tt.raw), nil
				},
			}
			svc := newTestService(t, mock, clockwork.NewFakeClock(), testConfig())

			_, err := svc.Extract(context.Background(), testRequest())
			var ee *domain.ExtractionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.want, ee.Kind)
			assert.Equal(t, 1, ee.Attempts)
			assert.Len(t, mock.CompleteCalls(), 1)
		})
	}
}

func TestExtract_AttemptTimeout(t *testing.T) {
	t.Parallel()

	mock := &completerMock{
		CompleteFunc: func(ctx context.Context, system, user string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.AttemptTimeout = 20 * time.Millisecond
	svc := newTestService(t, mock, clockwork.NewFakeClock(), cfg)

	_, err := svc.Extract(context.Background(), testRequest())
	var ee *domain.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, domain.ExtractionTimeout, ee.Kind)
	assert.Contains(t, ee.UserMessage(), "splitting")
}

func TestExtract_CancelDuringBackoff(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	mock := &completerMock{
		CompleteFunc: func(ctx context.Context, system, user string) ([]byte, error) {
			return nil, domain.NewExtractionError(domain.ExtractionUnavailable, errors.New("503"))
		},
	}
	svc := newTestService(t, mock, clock, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan extractResult, 1)
	go func() {
		res, err := svc.Extract(ctx, testRequest())
		done <- extractResult{res, err}
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case r := <-done:
		assert.ErrorIs(t, r.err, domain.ErrCancelled)
		assert.ErrorIs(t, r.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Extract did not stop after cancel")
	}
	assert.Len(t, mock.CompleteCalls(), 1)
}
