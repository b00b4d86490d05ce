// internal/locator/resolver.go
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/wait"
	"go.uber.org/zap"
)

// Options tunes a single resolution.
type Options struct {
	// RequireInteractable additionally filters out disabled elements.
	RequireInteractable bool
	// Timeout overrides the profile's resolve timeout when positive.
	Timeout time.Duration
}

// Resolver finds elements for a Spec against the driver's current window.
// It only reads the document.
type Resolver struct {
	driver  driver.Driver
	profile config.TimeoutProfile
	logger  *zap.Logger
}

// NewResolver creates a Resolver that polls at profile.PollInterval.
func NewResolver(d driver.Driver, profile config.TimeoutProfile, logger *zap.Logger) *Resolver {
	return &Resolver{
		driver:  d,
		profile: profile,
		logger:  observability.Component(logger, "locator"),
	}
}

// Resolve returns the first usable element of the first candidate that has
// one. Whole passes over the candidate list repeat, one poll interval apart,
// until the timeout expires, at which point a NotFound failure names the
// target and every strategy tried.
func (r *Resolver) Resolve(ctx context.Context, spec Spec, opts Options) (*Resolved, error) {
	matches, err := r.poll(ctx, spec, opts, false)
	if err != nil {
		return nil, err
	}
	return matches[0], nil
}

// ResolveAll returns every usable element matched by the first candidate that
// matches anything, for list-shaped targets such as table rows or OTP boxes.
func (r *Resolver) ResolveAll(ctx context.Context, spec Spec, opts Options) ([]*Resolved, error) {
	return r.poll(ctx, spec, opts, true)
}

// Exists runs a single pass without waiting. Absence is not an error.
func (r *Resolver) Exists(ctx context.Context, spec Spec, opts Options) (bool, error) {
	matches, err := r.pass(ctx, spec, opts, false)
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", spec.Name, err)
	}
	return len(matches) > 0, nil
}

func (r *Resolver) poll(ctx context.Context, spec Spec, opts Options, all bool) ([]*Resolved, error) {
	if len(spec.Candidates) == 0 {
		return nil, failure.NotFound("resolve", spec.Name, nil, errors.New("no candidates"))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.profile.Resolve
	}

	var found []*Resolved
	err := wait.Poll(ctx, r.profile.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		matches, err := r.pass(ctx, spec, opts, all)
		if err != nil {
			return false, err
		}
		found = matches
		return len(matches) > 0, nil
	})

	switch {
	case err == nil:
		r.logResolved(spec, found[0], len(found))
		return found, nil
	case errors.Is(err, wait.ErrTimeout):
		r.logger.Debug("Target not found.",
			zap.String("target", spec.Name),
			zap.Strings("strategies", spec.Strategies()),
			zap.Duration("timeout", timeout))
		return nil, failure.NotFound("resolve", spec.Name, spec.Strategies(), err)
	default:
		return nil, fmt.Errorf("resolve %q: %w", spec.Name, err)
	}
}

// pass evaluates candidates in order and stops at the first one with usable
// matches. Per-candidate query errors count as misses; only a done context
// aborts the pass.
func (r *Resolver) pass(ctx context.Context, spec Spec, opts Options, all bool) ([]*Resolved, error) {
	for i, c := range spec.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		by, q := c.Query()
		elements, err := r.driver.FindElements(ctx, by, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Debug("Candidate query failed.",
				zap.String("target", spec.Name),
				zap.Stringer("strategy", c),
				zap.Error(err))
			continue
		}

		var usable []*Resolved
		for _, el := range elements {
			if !r.usable(ctx, el, opts) {
				continue
			}
			usable = append(usable, &Resolved{Element: el, Index: i + 1, Candidate: c, Target: spec.Name})
			if !all {
				return usable, nil
			}
		}
		if len(usable) > 0 {
			return usable, nil
		}
	}
	return nil, nil
}

// usable reports whether el is displayed and, when required, enabled. An
// element that errors while being inspected (typically detached between the
// query and the check) is simply not usable.
func (r *Resolver) usable(ctx context.Context, el driver.Element, opts Options) bool {
	shown, err := el.IsDisplayed(ctx)
	if err != nil || !shown {
		return false
	}
	if !opts.RequireInteractable {
		return true
	}
	enabled, err := el.IsEnabled(ctx)
	return err == nil && enabled
}

func (r *Resolver) logResolved(spec Spec, res *Resolved, count int) {
	fields := []zap.Field{
		zap.String("target", spec.Name),
		zap.Int("strategy_index", res.Index),
		zap.Stringer("strategy", res.Candidate),
	}
	if count > 1 {
		fields = append(fields, zap.Int("matches", count))
	}
	if res.Index > 1 {
		// Preferred candidates missing is the signal page owners want to see.
		r.logger.Info("Resolved target via fallback strategy.", fields...)
		return
	}
	r.logger.Debug("Resolved target.", fields...)
}
