// internal/driver/fake/fake.go
// Package fake is an in-memory driver.Driver used by unit tests across the
// module. Documents are modelled as a table of query -> nodes, so tests state
// exactly which locator candidates match without needing a browser. Every
// call is counted so tests can assert short-circuiting and retry behavior.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/uiharness/internal/driver"
)

// json decodes script results the way the CDP driver does.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Query identifies one FindElements call.
type Query struct {
	By    driver.By
	Value string
}

// Node is a fake DOM node. Exported fields configure behavior; counters
// record what the engine did to it.
type Node struct {
	Label     string
	Content   string
	Displayed bool
	Enabled   bool
	Value     string

	// ClickErr is returned by every native Click. ScriptClickErr likewise for ScriptClick.
	ClickErr       error
	ScriptClickErr error
	// DisplayedErr is returned by IsDisplayed, simulating a node that errors when inspected.
	DisplayedErr error
	// OnClick runs after a successful click of either kind.
	OnClick func()
	// DetachOnClick makes the node stale right after a native click, as a
	// click that triggers navigation would.
	DetachOnClick bool

	mu               sync.Mutex
	id               string
	stale            bool
	ClickCount       int
	ScriptClickCount int
	ScrollCount      int
	ClearCount       int
	Keys             []string
}

// Visible returns a displayed, enabled node with the given label and text.
func Visible(label, text string) *Node {
	return &Node{Label: label, Content: text, Displayed: true, Enabled: true}
}

// Hidden returns a node that exists but is not displayed.
func Hidden(label string) *Node {
	return &Node{Label: label, Displayed: false, Enabled: true}
}

// Detach marks the node stale; every later call on it returns driver.ErrStaleElement.
func (n *Node) Detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stale = true
}

// Show makes the node displayed, as a late render would.
func (n *Node) Show() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Displayed = true
}

// SetEnabled toggles the node's enabled state.
func (n *Node) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Enabled = enabled
}

// Counts returns the native click, scripted click and scroll counters.
func (n *Node) Counts() (clicks, scriptClicks, scrolls int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ClickCount, n.ScriptClickCount, n.ScrollCount
}

func (n *Node) ID() string { return n.id }

func (n *Node) check() error {
	if n.stale {
		return driver.ErrStaleElement
	}
	return nil
}

func (n *Node) IsDisplayed(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return false, err
	}
	if n.DisplayedErr != nil {
		return false, n.DisplayedErr
	}
	return n.Displayed, nil
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return false, err
	}
	return n.Enabled, nil
}

func (n *Node) ScrollIntoView(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return err
	}
	n.ScrollCount++
	return nil
}

func (n *Node) Click(ctx context.Context) error {
	n.mu.Lock()
	if err := n.check(); err != nil {
		n.mu.Unlock()
		return err
	}
	n.ClickCount++
	err := n.ClickErr
	hook := n.OnClick
	if n.DetachOnClick {
		n.stale = true
	}
	n.mu.Unlock()
	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (n *Node) ScriptClick(ctx context.Context) error {
	n.mu.Lock()
	if err := n.check(); err != nil {
		n.mu.Unlock()
		return err
	}
	n.ScriptClickCount++
	err := n.ScriptClickErr
	hook := n.OnClick
	n.mu.Unlock()
	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (n *Node) Clear(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return err
	}
	n.ClearCount++
	n.Value = ""
	return nil
}

func (n *Node) SendKeys(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return err
	}
	n.Keys = append(n.Keys, text)
	n.Value += text
	return nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check(); err != nil {
		return "", err
	}
	return n.Content, nil
}

// Window is a fake browser window with its own document.
type Window struct {
	Handle string
	URL    string
	Title  string
	Source string
	// ReadyStates is consumed one entry per ReadyState call; the last entry repeats.
	// Empty means "complete".
	ReadyStates []string

	nodes map[Query][]*Node
}

// NewWindow returns an empty, fully loaded window.
func NewWindow(handle string) *Window {
	return &Window{Handle: handle, nodes: make(map[Query][]*Node)}
}

// Add registers nodes as the result of query (by, value) in this window.
func (w *Window) Add(by driver.By, value string, nodes ...*Node) *Window {
	q := Query{By: by, Value: value}
	w.nodes[q] = append(w.nodes[q], nodes...)
	return w
}

// Driver is the fake driver.Driver.
type Driver struct {
	mu      sync.Mutex
	windows []*Window
	current string
	nextID  int

	// FindErr maps a query value to an error returned by FindElements.
	FindErr map[string]error
	// ScriptResult is JSON decoded into ExecuteScript's out parameter.
	ScriptResult string
	NavigateErr  error

	queries      []Query
	scripts      []string
	navigations  []string
	closed       bool
	handleCalls  int
	closeCalls   int
	pendingTimer []*time.Timer
}

var _ driver.Driver = (*Driver)(nil)
var _ driver.Element = (*Node)(nil)

// New returns a driver whose first window is selected.
func New(windows ...*Window) *Driver {
	d := &Driver{FindErr: make(map[string]error)}
	for _, w := range windows {
		d.attach(w)
	}
	if len(windows) > 0 {
		d.current = windows[0].Handle
	}
	return d
}

func (d *Driver) attach(w *Window) {
	if w.nodes == nil {
		w.nodes = make(map[Query][]*Node)
	}
	d.windows = append(d.windows, w)
}

// OpenWindow adds a window immediately, as a target=_blank click would.
func (d *Driver) OpenWindow(w *Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attach(w)
}

// OpenWindowAfter adds a window after delay, simulating asynchronous tab creation.
func (d *Driver) OpenWindowAfter(delay time.Duration, w *Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingTimer = append(d.pendingTimer, time.AfterFunc(delay, func() { d.OpenWindow(w) }))
}

// Stop cancels pending delayed windows.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.pendingTimer {
		t.Stop()
	}
}

func (d *Driver) window(handle string) *Window {
	for _, w := range d.windows {
		if w.Handle == handle {
			return w
		}
	}
	return nil
}

// Calls returns how many times FindElements was invoked with (by, value).
func (d *Driver) Calls(by driver.By, value string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queries {
		if q.By == by && q.Value == value {
			n++
		}
	}
	return n
}

// Queries returns every FindElements call in order.
func (d *Driver) Queries() []Query {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Query(nil), d.queries...)
}

// Scripts returns every script passed to ExecuteScript.
func (d *Driver) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scripts...)
}

// HandleCalls returns how many times WindowHandles was called.
func (d *Driver) HandleCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handleCalls
}

// CloseCalls returns how many times CloseWindow was called.
func (d *Driver) CloseCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCalls
}

func (d *Driver) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, Query{By: by, Value: value})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := d.FindErr[value]; ok {
		return nil, err
	}
	w := d.window(d.current)
	if w == nil {
		return nil, driver.ErrNoSuchWindow
	}
	nodes := w.nodes[Query{By: by, Value: value}]
	out := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.id == "" {
			d.nextID++
			n.id = fmt.Sprintf("node-%d", d.nextID)
		}
		out = append(out, n)
	}
	return out, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, out any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script)
	if out == nil || d.ScriptResult == "" {
		return nil
	}
	return json.Unmarshal([]byte(d.ScriptResult), out)
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handleCalls++
	handles := make([]string, 0, len(d.windows))
	for _, w := range d.windows {
		handles = append(handles, w.Handle)
	}
	return handles, nil
}

func (d *Driver) CurrentWindowHandle(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.window(d.current) == nil {
		return "", driver.ErrNoSuchWindow
	}
	return d.current, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.window(handle) == nil {
		return fmt.Errorf("switch to %q: %w", handle, driver.ErrNoSuchWindow)
	}
	d.current = handle
	return nil
}

func (d *Driver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	for i, w := range d.windows {
		if w.Handle == d.current {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			return nil
		}
	}
	return driver.ErrNoSuchWindow
}

func (d *Driver) currentWindow() (*Window, error) {
	w := d.window(d.current)
	if w == nil {
		return nil, driver.ErrNoSuchWindow
	}
	return w, nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.currentWindow()
	if err != nil {
		return "", err
	}
	return w.URL, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.currentWindow()
	if err != nil {
		return "", err
	}
	return w.Title, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.currentWindow()
	if err != nil {
		return "", err
	}
	return w.Source, nil
}

func (d *Driver) ReadyState(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.currentWindow()
	if err != nil {
		return "", err
	}
	switch len(w.ReadyStates) {
	case 0:
		return "complete", nil
	case 1:
		return w.ReadyStates[0], nil
	default:
		s := w.ReadyStates[0]
		w.ReadyStates = w.ReadyStates[1:]
		return s, nil
	}
}

// Navigate points the current window at url. NavigateErr, if set, is
// returned instead.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations = append(d.navigations, url)
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	w, err := d.currentWindow()
	if err != nil {
		return err
	}
	w.URL = url
	return nil
}

// Navigations returns every URL passed to Navigate.
func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// Close stops pending windows and marks the driver closed.
func (d *Driver) Close() error {
	d.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
