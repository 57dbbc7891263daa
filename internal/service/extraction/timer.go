package extraction

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

var _ backoff.Timer = (*clockTimer)(nil)

// clockTimer drives backoff waits from a clockwork clock so tests can
// advance them with a fake clock.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = t.clock.NewTimer(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
