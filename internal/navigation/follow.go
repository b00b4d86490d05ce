// internal/navigation/follow.go
package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"go.uber.org/zap"
)

// State is a step of a navigation-with-possible-redirect workflow.
type State string

const (
	StateIdle              State = "idle"
	StateActionTriggered   State = "action_triggered"
	StateNoNewWindow       State = "no_new_window"
	StateNewWindowDetected State = "new_window_detected"
	StateSwitched          State = "switched"
	StateDomSettling       State = "dom_settling"
	StateSettled           State = "settled"
	StateTimedOut          State = "timed_out"
)

// FollowOptions bounds the two waits of FollowNavigation. Zero values use
// the profile's SpawnWindow and DomSettle budgets.
type FollowOptions struct {
	SpawnTimeout  time.Duration
	SettleTimeout time.Duration
}

// NavResult is the trace of one FollowNavigation run.
type NavResult struct {
	ID uuid.UUID
	// Window is the window active when the workflow ended.
	Window    Window
	NewWindow bool
	// States lists every state entered, in order.
	States   []State
	Duration time.Duration
}

// Final returns the last state entered.
func (r NavResult) Final() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// FollowNavigation runs trigger, typically a click, and follows whatever
// navigation it causes. If a new window appears within the spawn timeout it
// becomes active; otherwise the navigation is assumed to have happened in
// place, which is not an error. Either way the workflow ends once the active
// document has settled.
//
// ActionTriggered is only entered when trigger succeeds. A trigger error is
// returned as is, with the result still in Idle.
func (t *Tracker) FollowNavigation(ctx context.Context, trigger func(ctx context.Context) error, opts FollowOptions) (NavResult, error) {
	start := time.Now()
	res := NavResult{ID: uuid.New(), States: []State{StateIdle}}
	logger := t.logger.With(zap.String("workflow_id", res.ID.String()))

	enter := func(s State) {
		res.States = append(res.States, s)
		logger.Debug("Navigation state entered.", zap.String("state", string(s)))
	}
	done := func(err error) (NavResult, error) {
		res.Window = t.active
		res.Duration = time.Since(start)
		return res, err
	}

	if t.primary.IsZero() {
		if _, err := t.RecordPrimary(ctx); err != nil {
			return done(err)
		}
	}

	// Anything open before the trigger fired is not the window it spawned.
	exclude := make(map[string]bool)
	if handles, err := t.driver.WindowHandles(ctx); err == nil {
		for _, h := range handles {
			exclude[h] = true
		}
	}
	for h := range t.known {
		exclude[h] = true
	}

	if err := trigger(ctx); err != nil {
		return done(fmt.Errorf("navigation trigger failed: %w", err))
	}
	enter(StateActionTriggered)

	spawned, err := t.awaitNewWindow(ctx, opts.SpawnTimeout, exclude)
	switch {
	case err == nil:
		enter(StateNewWindowDetected)
		res.NewWindow = true
		if err := t.SwitchTo(ctx, spawned); err != nil {
			return done(err)
		}
		enter(StateSwitched)
	case failure.IsTimeout(err):
		enter(StateNoNewWindow)
	default:
		return done(err)
	}

	enter(StateDomSettling)
	if err := t.AwaitDomSettled(ctx, opts.SettleTimeout); err != nil {
		if failure.IsTimeout(err) {
			enter(StateTimedOut)
		}
		return done(err)
	}
	enter(StateSettled)

	logger.Info("Navigation settled.",
		zap.String("window", t.active.Handle),
		zap.Bool("new_window", res.NewWindow),
		zap.Duration("elapsed", time.Since(start)))
	return done(nil)
}
