// internal/driver/driver.go
// Package driver defines the browser automation surface consumed by the
// interaction engine. The engine never talks to a browser directly; it asks a
// Driver for elements, windows and document state. The production
// implementation lives in internal/driver/cdp (chromedp), and
// internal/driver/fake provides an in-memory document for tests.
package driver

import (
	"context"
	"errors"
)

// By selects the query language for FindElements.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// Sentinel errors every Driver implementation maps its native failures onto.
var (
	// ErrStaleElement is returned when an element handle no longer refers to a node in the current document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrClickIntercepted is returned when a native click would land on a different element (overlay, spinner).
	ErrClickIntercepted = errors.New("click intercepted by another element")
	// ErrNoSuchWindow is returned when a window handle is unknown or already closed.
	ErrNoSuchWindow = errors.New("no such window")
)

// Driver is a handle onto one browser instance. All element queries run
// against the currently selected window.
type Driver interface {
	// FindElements returns every node matching value in the current document.
	// Zero matches is not an error.
	FindElements(ctx context.Context, by By, value string) ([]Element, error)
	// ExecuteScript evaluates script in the current document and decodes the result into out (which may be nil).
	ExecuteScript(ctx context.Context, script string, out any) error

	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindowHandle(ctx context.Context) (string, error)
	SwitchToWindow(ctx context.Context, handle string) error
	// CloseWindow closes the currently selected window. The caller must switch to another handle afterwards.
	CloseWindow(ctx context.Context) error

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// ReadyState returns document.readyState of the current document.
	ReadyState(ctx context.Context) (string, error)
}

// Element is a live reference to a DOM node. It becomes stale after navigation.
type Element interface {
	// ID is an opaque identifier, stable for the lifetime of the node.
	ID() string
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	ScrollIntoView(ctx context.Context) error
	// Click performs a native (input-event) click.
	Click(ctx context.Context) error
	// ScriptClick dispatches a click through the DOM (element.click()).
	ScriptClick(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	// Text returns the rendered text of the node.
	Text(ctx context.Context) (string, error)
}
