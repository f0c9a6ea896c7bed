package remote

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

// Retry policy of the remote store client.
const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 1000 * time.Millisecond
)

// Retrier runs an operation up to a fixed number of attempts, sleeping a fixed
// delay between them. Only transient errors are retried.
type Retrier struct {
	attempts int
	delay    time.Duration
	// newTimer is nil outside tests, which selects the library's real timer.
	newTimer func() backoff.Timer
	log      *zap.Logger
}

// NewRetrier returns a Retrier with the default policy.
func NewRetrier(log *zap.Logger) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		log:      log,
	}
}

// Delay returns the pause between attempts.
func (r *Retrier) Delay() time.Duration {
	return r.delay
}

// Do calls op until it succeeds, fails with a non-transient error, or the
// attempts are used up. The last error of op is returned as is, also when ctx
// ends during a pause.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(max(r.attempts-1, 0))),
		ctx,
	)
	attempt := 0
	operation := func() error {
		attempt++
		last = op(ctx)
		if last != nil && !domainerrors.Retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}
	notify := func(err error, next time.Duration) {
		r.log.Debug("remote call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", next),
			zap.Error(err),
		)
	}

	var timer backoff.Timer
	if r.newTimer != nil {
		timer = r.newTimer()
	}
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, timer)
	if err != nil && last != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return last
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
