// internal/navigation/settle.go
package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/wait"
	"go.uber.org/zap"
)

const readyStateComplete = "complete"

// AwaitDomSettled waits until the active document reports readyState
// "complete" and then for the profile's fixed grace period. Client-side
// rendering routinely continues after the load event, and the grace period
// is where that imprecision is confined. A zero timeout uses the profile's
// DomSettle budget; expiry is a Timeout failure.
func (t *Tracker) AwaitDomSettled(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = t.profile.DomSettle
	}
	start := time.Now()

	var last string
	err := wait.Poll(ctx, t.profile.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		state, err := t.driver.ReadyState(ctx)
		if err != nil {
			// Mid-navigation the document may briefly be unavailable.
			t.logger.Debug("Reading readyState failed; retrying.", zap.Error(err))
			return false, nil
		}
		last = state
		return state == readyStateComplete, nil
	})
	if err != nil {
		if errors.Is(err, wait.ErrTimeout) {
			return failure.Timeout("await_dom_settled", t.active.Handle,
				fmt.Errorf("last readyState %q: %w", last, err))
		}
		return err
	}

	if err := wait.Sleep(ctx, t.profile.DomGrace); err != nil {
		return err
	}
	t.logger.Debug("DOM settled.",
		zap.String("window", t.active.Handle),
		zap.Duration("elapsed", time.Since(start)),
		zap.Duration("grace", t.profile.DomGrace))
	return nil
}
