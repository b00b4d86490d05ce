// internal/wait/wait.go
// Package wait holds the bounded polling primitives every engine wait is
// built from, so timeout policy lives in one place.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrTimeout is returned by Poll when the condition was not met in time.
var ErrTimeout = errors.New("condition not met before deadline")

// minInterval keeps a zero or negative interval from turning Poll into a busy loop.
const minInterval = 10 * time.Millisecond

// finalCheckTimeout bounds the last evaluation made once the budget is spent.
const finalCheckTimeout = time.Second

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the poll; conditions swallow transient failures themselves.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond immediately and then once per interval until it
// returns true, it returns an error, or timeout elapses. A timeout of zero
// means the wait is bounded only by ctx.
//
// When the budget runs out between two evaluations, cond gets one last
// evaluation at the deadline, so a state reached in the final partial
// interval is still seen.
//
// Expiry of the timeout yields an error wrapping ErrTimeout. Cancellation of
// ctx itself yields the context's error, so callers can tell the two apart.
func Poll(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	if interval < minInterval {
		interval = minInterval
	}
	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// Spend the initial burst token so the second evaluation waits a full interval.
	limiter.Allow()

	for attempt := 1; ; attempt++ {
		done, err := cond(pollCtx)
		if err != nil {
			if pollCtx.Err() != nil {
				return expired(ctx, pollCtx, timeout, attempt)
			}
			return err
		}
		if done {
			return nil
		}

		if err := limiter.Wait(pollCtx); err != nil {
			// The limiter refuses to wait past the deadline. Sit out the
			// remainder, then look once more.
			<-pollCtx.Done()
			if finalCheck(ctx, cond) {
				return nil
			}
			return expired(ctx, pollCtx, timeout, attempt+1)
		}
	}
}

// finalCheck evaluates cond under ctx once the poll budget is spent. It is
// skipped when ctx itself is done; errors count as not met.
func finalCheck(ctx context.Context, cond Condition) bool {
	if ctx.Err() != nil {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, finalCheckTimeout)
	defer cancel()
	done, err := cond(checkCtx)
	return err == nil && done
}

func expired(parent, pollCtx context.Context, timeout time.Duration, attempts int) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %v (%d attempts): %w", ErrTimeout, timeout, attempts, pollCtx.Err())
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
