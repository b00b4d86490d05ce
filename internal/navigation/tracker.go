// internal/navigation/tracker.go
// Package navigation tracks browser windows across a workflow: which window
// started it, which one is active, values carried from one page to the next,
// and when a document can be considered settled.
//
// A Tracker is driven by a single goroutine and holds no locks.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/wait"
	"go.uber.org/zap"
)

// Role tags a window by how it entered the workflow.
type Role string

const (
	RolePrimary Role = "primary"
	RoleSpawned Role = "spawned"
)

// Window identifies one browser tab or window.
type Window struct {
	Handle string
	Role   Role
}

// IsZero reports whether w refers to no window.
func (w Window) IsZero() bool { return w.Handle == "" }

var (
	// ErrNoPrimary is returned by operations that need RecordPrimary to have run.
	ErrNoPrimary = errors.New("no primary window recorded")
	// ErrNoSpawnedWindow is wrapped by the Timeout failure of AwaitSpawnedWindow.
	// It matches failure.ErrNotFound, since the awaited window is absent.
	ErrNoSpawnedWindow = fmt.Errorf("no spawned window: %w", failure.ErrNotFound)
)

// Tracker owns the window set and the active window pointer for one workflow.
type Tracker struct {
	driver   driver.Driver
	resolver *locator.Resolver
	profile  config.TimeoutProfile
	logger   *zap.Logger

	primary Window
	active  Window
	// known holds every handle the tracker has already handed out.
	known  map[string]bool
	values map[string]string
}

// NewTracker creates a Tracker. resolver backs the ElementVisible probe; nil
// builds one on the same driver and profile.
func NewTracker(d driver.Driver, resolver *locator.Resolver, profile config.TimeoutProfile, logger *zap.Logger) *Tracker {
	logger = observability.Component(logger, "navigation")
	if resolver == nil {
		resolver = locator.NewResolver(d, profile, logger)
	}
	return &Tracker{
		driver:   d,
		resolver: resolver,
		profile:  profile,
		logger:   logger,
		known:    make(map[string]bool),
		values:   make(map[string]string),
	}
}

// RecordPrimary captures the current window as the workflow's primary
// window and makes it active.
func (t *Tracker) RecordPrimary(ctx context.Context) (Window, error) {
	handle, err := t.driver.CurrentWindowHandle(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("failed to read current window handle: %w", err)
	}
	t.primary = Window{Handle: handle, Role: RolePrimary}
	t.active = t.primary
	t.known[handle] = true
	t.logger.Debug("Recorded primary window.", zap.String("handle", handle))
	return t.primary, nil
}

// Primary returns the recorded primary window.
func (t *Tracker) Primary() Window { return t.primary }

// Active returns the window subsequent element queries run against.
func (t *Tracker) Active() Window { return t.active }

// AwaitSpawnedWindow polls the open windows until one other than the primary
// exists, and returns it. Opening a tab from a click is asynchronous, hence
// the poll. A window seen before still counts; FollowNavigation is the
// place that tells windows opened by its trigger from older ones. On expiry
// it returns a Timeout failure that also matches ErrNoSpawnedWindow; callers
// for whom an in-place redirect is acceptable test for it with
// failure.IsTimeout.
func (t *Tracker) AwaitSpawnedWindow(ctx context.Context, timeout time.Duration) (Window, error) {
	if t.primary.IsZero() {
		return Window{}, ErrNoPrimary
	}
	return t.awaitNewWindow(ctx, timeout, nil)
}

func (t *Tracker) awaitNewWindow(ctx context.Context, timeout time.Duration, exclude map[string]bool) (Window, error) {
	if timeout <= 0 {
		timeout = t.profile.SpawnWindow
	}

	var spawned Window
	err := wait.Poll(ctx, t.profile.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		handles, err := t.driver.WindowHandles(ctx)
		if err != nil {
			t.logger.Debug("Listing windows failed; retrying.", zap.Error(err))
			return false, nil
		}
		if len(handles) < 2 {
			return false, nil
		}
		for _, h := range handles {
			if h != t.primary.Handle && !exclude[h] {
				spawned = Window{Handle: h, Role: RoleSpawned}
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, wait.ErrTimeout) {
			return Window{}, failure.Timeout("await_spawned_window", "", fmt.Errorf("%w: %w", ErrNoSpawnedWindow, err))
		}
		return Window{}, err
	}

	t.known[spawned.Handle] = true
	t.logger.Debug("Spawned window detected.", zap.String("handle", spawned.Handle))
	return spawned, nil
}

// SwitchTo makes w the active window.
func (t *Tracker) SwitchTo(ctx context.Context, w Window) error {
	if err := t.driver.SwitchToWindow(ctx, w.Handle); err != nil {
		return fmt.Errorf("failed to switch to window %s: %w", w.Handle, err)
	}
	if w.Handle == t.primary.Handle {
		w.Role = RolePrimary
	} else if w.Role == "" {
		w.Role = RoleSpawned
	}
	t.active = w
	t.known[w.Handle] = true
	return nil
}

// CloseAndReturnToPrimary closes the active window and switches back to the
// primary. It does nothing when the primary is already active. A window that
// is already gone does not stop the return to the primary.
func (t *Tracker) CloseAndReturnToPrimary(ctx context.Context) error {
	if t.primary.IsZero() {
		return ErrNoPrimary
	}
	if t.active.Handle == t.primary.Handle {
		return nil
	}

	closed := t.active
	if err := t.driver.CloseWindow(ctx); err != nil && !errors.Is(err, driver.ErrNoSuchWindow) {
		return fmt.Errorf("failed to close window %s: %w", closed.Handle, err)
	}
	delete(t.known, closed.Handle)

	if err := t.driver.SwitchToWindow(ctx, t.primary.Handle); err != nil {
		return fmt.Errorf("failed to return to primary window %s: %w", t.primary.Handle, err)
	}
	t.active = t.primary
	t.logger.Debug("Closed window and returned to primary.",
		zap.String("closed", closed.Handle),
		zap.String("primary", t.primary.Handle))
	return nil
}
