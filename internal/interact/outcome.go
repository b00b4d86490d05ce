// internal/interact/outcome.go
package interact

import (
	"time"

	"github.com/xkilldash9x/uiharness/internal/failure"
)

// Status is the result class of one interaction.
type Status string

const (
	StatusSucceeded            Status = "succeeded"
	StatusSucceededViaFallback Status = "succeeded_via_fallback"
	StatusFailed               Status = "failed"
)

// Path records which mechanism carried out (or last attempted) the action.
type Path string

const (
	PathNative Path = "native"
	PathScript Path = "script"
)

// ActionKind identifies what was done to an element.
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionType  ActionKind = "type"
	ActionRead  ActionKind = "read_text"
)

// Action is a request for Executor.Perform.
type Action struct {
	Kind  ActionKind
	Value string
	// PerCharacter sends Value one character at a time with key pacing.
	PerCharacter bool
}

// Click requests a click.
func Click() Action { return Action{Kind: ActionClick} }

// TypeText requests clearing the field and sending value as one block.
func TypeText(value string) Action { return Action{Kind: ActionType, Value: value} }

// TypePerCharacter requests clearing the field and sending value key by key.
func TypePerCharacter(value string) Action {
	return Action{Kind: ActionType, Value: value, PerCharacter: true}
}

// ReadText requests the element's trimmed rendered text.
func ReadText() Action { return Action{Kind: ActionRead} }

// Outcome describes one interaction for the caller and for failure-pattern
// analysis.
type Outcome struct {
	Status Status
	Path   Path
	Action ActionKind
	Target string
	// StrategyIndex and Strategy identify the locator candidate that found the element.
	StrategyIndex int
	Strategy      string
	// Text holds the result of a ReadText action.
	Text      string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded reports whether the action took effect by either path.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded || o.Status == StatusSucceededViaFallback
}

// FailureKind returns the failure kind of a failed outcome, or "".
func (o Outcome) FailureKind() failure.Kind {
	return failure.KindOf(o.Err)
}
