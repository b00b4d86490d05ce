// internal/failure/failure.go
// Package failure defines the typed outcomes that the interaction engine
// surfaces to page objects. Every error leaving the locator, interact and
// navigation packages is a *Error carrying one of four kinds, so callers can
// tell expected absence (NotFound, a benign Timeout) apart from real failure
// (Stale, ActionBlocked) with errors.Is.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindNotFound means no candidate of a locator spec produced a usable element in time.
	KindNotFound Kind = "NOT_FOUND"
	// KindStale means a resolved element is no longer attached to the document.
	KindStale Kind = "STALE"
	// KindActionBlocked means both the native and the scripted interaction raised.
	KindActionBlocked Kind = "ACTION_BLOCKED"
	// KindTimeout means a bounded wait (window spawn, DOM settle, readiness) expired.
	KindTimeout Kind = "TIMEOUT"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrNotFound      = errors.New("element not found")
	ErrStale         = errors.New("stale element")
	ErrActionBlocked = errors.New("action blocked")
	ErrTimeout       = errors.New("wait timed out")
)

// Error is the engine's failure value.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "resolve", "click", "await_spawned_window".
	Op string
	// Target is the logical UI target (locator spec name), if any.
	Target string
	// Strategies lists the candidate descriptions that were tried, in order.
	Strategies []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		fmt.Fprintf(&b, " %q", e.Target)
	}
	b.WriteString(": ")
	b.WriteString(sentinelFor(e.Kind).Error())
	if len(e.Strategies) > 0 {
		fmt.Fprintf(&b, " (strategies: %s)", strings.Join(e.Strategies, " | "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindStale:
		return ErrStale
	case KindActionBlocked:
		return ErrActionBlocked
	case KindTimeout:
		return ErrTimeout
	default:
		return errors.New(strings.ToLower(string(k)))
	}
}

// New builds a *Error.
func New(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// NotFound builds a NotFound error listing the strategies that were tried.
func NotFound(op, target string, strategies []string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Target: target, Strategies: strategies, Err: err}
}

// Stale builds a Stale error.
func Stale(op, target string, err error) *Error {
	return &Error{Kind: KindStale, Op: op, Target: target, Err: err}
}

// ActionBlocked builds an ActionBlocked error.
func ActionBlocked(op, target string, err error) *Error {
	return &Error{Kind: KindActionBlocked, Op: op, Target: target, Err: err}
}

// Timeout builds a Timeout error.
func Timeout(op, target string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Target: target, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsStale(err error) bool         { return errors.Is(err, ErrStale) }
func IsActionBlocked(err error) bool { return errors.Is(err, ErrActionBlocked) }
func IsTimeout(err error) bool       { return errors.Is(err, ErrTimeout) }
