// internal/interact/executor.go
// Package interact performs actions on resolved elements. Every action is
// preceded by a scroll-into-view and a short settle pause. Clicks try the
// native input path first and fall back exactly once to a DOM-dispatched
// click on the same element. The executor never re-resolves an element: a
// stale element is reported to the caller, who decides whether to resolve
// again.
package interact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/wait"
	"go.uber.org/zap"
)

// sinkTimeout bounds how long recording one outcome may take.
const sinkTimeout = 5 * time.Second

// Executor performs interactions and reports their outcomes.
type Executor struct {
	profile config.TimeoutProfile
	sinks   []OutcomeSink
	logger  *zap.Logger
}

// NewExecutor creates an Executor. Outcomes always go to a LogSink on logger
// and additionally to every sink given.
func NewExecutor(profile config.TimeoutProfile, logger *zap.Logger, sinks ...OutcomeSink) *Executor {
	logger = observability.Component(logger, "interact")
	return &Executor{
		profile: profile,
		sinks:   append([]OutcomeSink{NewLogSink(logger)}, sinks...),
		logger:  logger,
	}
}

// Perform runs action against el. The returned error is non-nil exactly
// when the outcome's Status is StatusFailed, and is then the outcome's Err.
func (e *Executor) Perform(ctx context.Context, el *locator.Resolved, action Action) (Outcome, error) {
	out := Outcome{
		Action:    action.Kind,
		Target:    el.Target,
		Path:      PathNative,
		StartedAt: time.Now(),
	}
	if el.Index > 0 {
		out.StrategyIndex = el.Index
		out.Strategy = el.Candidate.String()
	}

	err := e.prepare(ctx, el)
	if err == nil {
		switch action.Kind {
		case ActionClick:
			err = e.click(ctx, el, &out)
		case ActionType:
			err = e.typeText(ctx, el, action)
		case ActionRead:
			out.Text, err = e.readText(ctx, el)
		default:
			err = fmt.Errorf("unsupported action %q", action.Kind)
		}
	}

	return e.finish(ctx, out, err)
}

// Click is shorthand for Perform with a click action.
func (e *Executor) Click(ctx context.Context, el *locator.Resolved) (Outcome, error) {
	return e.Perform(ctx, el, Click())
}

// Type clears el and sends text as one block.
func (e *Executor) Type(ctx context.Context, el *locator.Resolved, text string) (Outcome, error) {
	return e.Perform(ctx, el, TypeText(text))
}

// ReadText returns the trimmed rendered text of el. An element without text
// yields "" and no error.
func (e *Executor) ReadText(ctx context.Context, el *locator.Resolved) (string, error) {
	out, err := e.Perform(ctx, el, ReadText())
	return out.Text, err
}

// ResolveAndClick resolves spec and clicks the result. It is a plain
// composition: a stale or missing element is returned, not retried.
func (e *Executor) ResolveAndClick(ctx context.Context, r *locator.Resolver, spec locator.Spec, opts locator.Options) (Outcome, error) {
	el, err := r.Resolve(ctx, spec, opts)
	if err != nil {
		out := Outcome{Action: ActionClick, Target: spec.Name, StartedAt: time.Now()}
		return e.finish(ctx, out, err)
	}
	return e.Click(ctx, el)
}

// TypeIntoBoxes types value into a row of single-character inputs, one
// character per box in order, pausing for the key pacing between boxes.
// Fewer boxes than characters is an ActionBlocked failure and nothing is typed.
func (e *Executor) TypeIntoBoxes(ctx context.Context, boxes []*locator.Resolved, value string) (Outcome, error) {
	out := Outcome{Action: ActionType, Path: PathNative, StartedAt: time.Now()}
	if len(boxes) > 0 {
		out.Target = boxes[0].Target
		out.StrategyIndex = boxes[0].Index
		out.Strategy = boxes[0].Candidate.String()
	}

	if n := utf8.RuneCountInString(value); len(boxes) < n {
		err := failure.ActionBlocked("type_boxes", out.Target,
			fmt.Errorf("%d input boxes for %d characters", len(boxes), n))
		return e.finish(ctx, out, err)
	}

	var err error
	i := 0
	for _, r := range value {
		box := boxes[i]
		if i == 0 {
			err = e.prepare(ctx, box)
		} else {
			err = wait.Sleep(ctx, e.profile.KeyPacing)
		}
		if err == nil {
			err = e.clearAndSend(ctx, box, string(r))
		}
		if err != nil {
			err = fmt.Errorf("box %d: %w", i+1, err)
			break
		}
		i++
	}
	return e.finish(ctx, out, err)
}

// prepare scrolls el into view and lets the page settle. A failed scroll
// other than staleness is logged and the action still attempted.
func (e *Executor) prepare(ctx context.Context, el *locator.Resolved) error {
	if err := el.Element.ScrollIntoView(ctx); err != nil {
		if errors.Is(err, driver.ErrStaleElement) || ctx.Err() != nil {
			return err
		}
		e.logger.Debug("Scroll into view failed; continuing.", zap.String("target", el.Target), zap.Error(err))
	}
	return wait.Sleep(ctx, e.profile.ScrollSettle)
}

func (e *Executor) click(ctx context.Context, el *locator.Resolved, out *Outcome) error {
	nativeErr := el.Element.Click(ctx)
	if nativeErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nativeErr
	}

	e.logger.Info("Native click failed; falling back to scripted click.",
		zap.String("target", el.Target),
		zap.Stringer("strategy", el.Candidate),
		zap.Error(nativeErr))
	out.Path = PathScript

	scriptErr := el.Element.ScriptClick(ctx)
	if scriptErr == nil {
		return nil
	}
	if errors.Is(scriptErr, driver.ErrStaleElement) || ctx.Err() != nil {
		return scriptErr
	}
	both := fmt.Errorf("native click: %w; scripted click: %w", nativeErr, scriptErr)
	if errors.Is(nativeErr, driver.ErrStaleElement) {
		// Reported as Stale so the caller re-resolves.
		return both
	}
	return failure.ActionBlocked("click", el.Target, both)
}

func (e *Executor) typeText(ctx context.Context, el *locator.Resolved, action Action) error {
	if !action.PerCharacter {
		return e.clearAndSend(ctx, el, action.Value)
	}
	if err := el.Element.Clear(ctx); err != nil {
		return err
	}
	first := true
	for _, r := range action.Value {
		if !first {
			if err := wait.Sleep(ctx, e.profile.KeyPacing); err != nil {
				return err
			}
		}
		first = false
		if err := el.Element.SendKeys(ctx, string(r)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) clearAndSend(ctx context.Context, el *locator.Resolved, text string) error {
	if err := el.Element.Clear(ctx); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return el.Element.SendKeys(ctx, text)
}

func (e *Executor) readText(ctx context.Context, el *locator.Resolved) (string, error) {
	text, err := el.Element.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// finish classifies err, stamps the outcome and hands it to every sink.
func (e *Executor) finish(ctx context.Context, out Outcome, err error) (Outcome, error) {
	out.Duration = time.Since(out.StartedAt)
	switch {
	case err == nil && out.Path == PathScript:
		out.Status = StatusSucceededViaFallback
	case err == nil:
		out.Status = StatusSucceeded
	default:
		out.Status = StatusFailed
		out.Err = classify(ctx, string(out.Action), out.Target, err)
	}

	// Outcomes of a cancelled run are still worth keeping.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range e.sinks {
		if serr := s.Record(recordCtx, out); serr != nil {
			e.logger.Warn("Failed to record interaction outcome.", zap.String("target", out.Target), zap.Error(serr))
		}
	}
	return out, out.Err
}

// classify maps a raw error onto the failure taxonomy. Errors that already
// carry a kind and context errors pass through unchanged.
func classify(ctx context.Context, op, target string, err error) error {
	if failure.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, driver.ErrStaleElement) {
		return failure.Stale(op, target, err)
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return fmt.Errorf("%s %q: %w", op, target, err)
	}
	return failure.ActionBlocked(op, target, err)
}
