package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *outcomeRecorder) record(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func (r *outcomeRecorder) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func newTestController(t *testing.T, tr *transducerMock, clock clockwork.Clock) (*Controller, *outcomeRecorder) {
	t.Helper()
	rec := &outcomeRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(log, tr, clock, 500*time.Millisecond, rec.record, nil), rec
}

func TestStart_RejectsWhenActive(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t, &transducerMock{}, clockwork.NewFakeClock())
	require.NoError(t, c.Start(context.Background()))

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, StateRecording, c.Snapshot().State)
	assert.True(t, c.Snapshot().IsRecording)
}

func TestStart_TransducerFailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{
		StartFunc: func(ctx context.Context, handler func(Event)) error {
			return errors.New("microphone busy")
		},
	}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	err := c.Start(context.Background())
	var ce *domain.CaptureError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CaptureTransducerFailure, ce.Kind)
	assert.Equal(t, StateIdle, c.Snapshot().State)

	outs := rec.all()
	require.Len(t, outs, 1)
	assert.Equal(t, OutcomeFailed, outs[0].Kind)
	require.NotNil(t, outs[0].Err)
	assert.Equal(t, "microphone busy", outs[0].Err.Message)

	require.NoError(t, c.Start(context.Background()), "a failed start leaves the controller usable")
}

func TestStop_WaitsForFinalTranscript(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	tr.StopFunc = func() error {
		// The final result lands after Stop returned control to the controller.
		go tr.Emit(Event{Kind: EventFinal, Text: "three eggs and toast"})
		return nil
	}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	require.NoError(t, c.Start(context.Background()))
	tr.Emit(Event{Kind: EventPartial, Text: "three eggs"})
	assert.Equal(t, "three eggs", c.Snapshot().PartialTranscript)

	out, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTranscript, out.Kind)
	assert.Equal(t, "three eggs and toast", out.Text)
	assert.Equal(t, SourceVoice, out.Source)
	assert.Equal(t, StateIdle, c.Snapshot().State)

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, out, outcomes[0])
}

func TestStop_FallsBackToPartialOnTimeout(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clock)

	require.NoError(t, c.Start(context.Background()))
	tr.Emit(Event{Kind: EventPartial, Text: "a bowl of oatmeal"})

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := c.Stop(context.Background())
		done <- result{out, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, StateStopping, c.Snapshot().State)
	clock.Advance(500 * time.Millisecond)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, OutcomeTranscript, r.out.Kind)
		assert.Equal(t, "a bowl of oatmeal", r.out.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the timeout")
	}
	assert.Len(t, rec.all(), 1)
}

func TestStop_EmptyFinalIsSilentReset(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	tr.StopFunc = func() error {
		tr.Emit(Event{Kind: EventFinal, Text: "   "})
		return nil
	}
	c, _ := newTestController(t, tr, clockwork.NewFakeClock())

	require.NoError(t, c.Start(context.Background()))
	out, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSilentReset, out.Kind)
	require.NotNil(t, out.Err)
	assert.True(t, out.Err.Silent())
}

func TestStop_NotRecording(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t, &transducerMock{}, clockwork.NewFakeClock())
	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotRecording)
}

func TestTransducerError_RecognitionFailIsSilent(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	require.NoError(t, c.Start(context.Background()))
	tr.Emit(Event{Kind: EventError, Code: "recognition_fail", Message: "no speech detected"})

	assert.Equal(t, StateIdle, c.Snapshot().State)
	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSilentReset, outcomes[0].Kind)
	assert.Equal(t, domain.CaptureNoSpeech, outcomes[0].Err.Kind)
}

func TestTransducerError_OtherCodesFail(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	require.NoError(t, c.Start(context.Background()))
	tr.Emit(Event{Kind: EventError, Code: "audio_engine", Message: "input device lost"})

	assert.Equal(t, StateIdle, c.Snapshot().State)
	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Kind)
	assert.Equal(t, domain.CaptureTransducerFailure, outcomes[0].Err.Kind)
	assert.Equal(t, "audio_engine", outcomes[0].Err.Code)
}

func TestCancel_DiscardsSessionAndIgnoresLateEvents(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	require.NoError(t, c.Start(context.Background()))
	tr.Emit(Event{Kind: EventPartial, Text: "pizza"})
	c.Cancel()

	assert.Equal(t, Snapshot{State: StateIdle}, c.Snapshot())
	assert.Len(t, tr.CancelCalls(), 1)

	tr.Emit(Event{Kind: EventFinal, Text: "pizza and beer"})
	tr.Emit(Event{Kind: EventError, Code: "audio_engine"})

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSilentReset, outcomes[0].Kind)
	assert.Nil(t, outcomes[0].Err)
}

func TestCancel_IdleIsNoop(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())
	c.Cancel()

	assert.Empty(t, tr.CancelCalls())
	assert.Empty(t, rec.all())
}

func TestCancel_WhileStoppingUnblocksStop(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clock)
	require.NoError(t, c.Start(context.Background()))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Stop(context.Background())
		done <- out
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	c.Cancel()

	select {
	case out := <-done:
		assert.Equal(t, OutcomeSilentReset, out.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after Cancel")
	}
	assert.Len(t, rec.all(), 1)
}

func TestSubmitTyped(t *testing.T) {
	t.Parallel()

	tr := &transducerMock{}
	c, rec := newTestController(t, tr, clockwork.NewFakeClock())

	out, err := c.SubmitTyped("  grilled chicken salad ")
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: OutcomeTranscript, Text: "grilled chicken salad", Source: SourceTyped}, out)
	assert.Len(t, rec.all(), 1)

	_, err = c.SubmitTyped("  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, c.Start(context.Background()))
	_, err = c.SubmitTyped("soup")
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)
}
