// internal/driver/cdp/driver.go
// Package cdp implements driver.Driver on the Chrome DevTools Protocol via
// chromedp. Windows are page targets, identified by target ID. Elements are
// DOM node IDs of the document they were queried in, so they go stale on
// navigation exactly like WebDriver element references.
package cdp

import (
	"context"
	"fmt"
	"sync"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tab is an attached page target.
type tab struct {
	ctx context.Context
	// cancel detaches from the target; nil for the root tab, whose lifetime is the browser's.
	cancel context.CancelFunc
}

// Driver drives one browser. Element queries run against the current tab.
type Driver struct {
	root   context.Context
	logger *zap.Logger

	mu      sync.Mutex
	tabs    map[string]*tab
	current string
	closers []context.CancelFunc
}

var _ driver.Driver = (*Driver)(nil)

func newDriver(root context.Context, logger *zap.Logger) *Driver {
	d := &Driver{root: root, logger: logger, tabs: make(map[string]*tab)}
	if c := chromedp.FromContext(root); c != nil && c.Target != nil {
		d.current = string(c.Target.TargetID)
		d.tabs[d.current] = &tab{ctx: root}
	}
	return d
}

// Close detaches every tab and shuts the browser down.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for handle, t := range d.tabs {
		if t.cancel != nil {
			t.cancel()
		}
		delete(d.tabs, handle)
	}
	for _, c := range d.closers {
		c()
	}
	d.closers = nil
	return nil
}

func (d *Driver) currentTab() (*tab, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tabs[d.current]
	if !ok {
		return nil, "", fmt.Errorf("%w: no window selected", driver.ErrNoSuchWindow)
	}
	return t, d.current, nil
}

// run executes actions in tab, bounded by the operational ctx. Context
// errors of ctx take precedence over whatever chromedp returned.
func (d *Driver) run(ctx context.Context, t *tab, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(t.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify(err)
	}
	return nil
}

// runCurrent executes actions in the current tab.
func (d *Driver) runCurrent(ctx context.Context, actions ...chromedp.Action) error {
	t, _, err := d.currentTab()
	if err != nil {
		return err
	}
	return d.run(ctx, t, actions...)
}

// browserExecutor returns a context whose executor is the browser-level
// connection, needed for Target domain commands.
func (d *Driver) browserExecutor(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := combineContext(d.root, ctx)
	return cdproto.WithExecutor(runCtx, chromedp.FromContext(d.root).Browser), cancel
}

// Navigate loads url in the current tab and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.runCurrent(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// -- Elements --

func (d *Driver) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	t, handle, err := d.currentTab()
	if err != nil {
		return nil, err
	}

	var opt chromedp.QueryOption
	switch by {
	case driver.ByCSS:
		opt = chromedp.ByQueryAll
	case driver.ByXPath:
		opt = chromedp.BySearch
	default:
		return nil, fmt.Errorf("unsupported query language %q", by)
	}

	var nodes []*cdproto.Node
	if err := d.run(ctx, t, chromedp.Nodes(value, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s %q: %w", by, value, err)
	}

	out := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		// performSearch also returns text and attribute nodes for some expressions.
		if n.NodeType != cdproto.NodeTypeElement {
			continue
		}
		out = append(out, &element{d: d, tab: t, handle: handle, nodeID: n.NodeID})
	}
	return out, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, out any) error {
	var raw []byte
	if err := d.runCurrent(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// -- Windows --

func (d *Driver) pageTargets(ctx context.Context) ([]*target.Info, error) {
	runCtx, cancel := combineContext(d.root, ctx)
	defer cancel()
	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	pages := infos[:0]
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	pages, err := d.pageTargets(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]string, len(pages))
	for i, p := range pages {
		handles[i] = string(p.TargetID)
	}
	return handles, nil
}

func (d *Driver) CurrentWindowHandle(ctx context.Context) (string, error) {
	_, handle, err := d.currentTab()
	return handle, err
}

// SwitchToWindow attaches to handle on first use and brings it to the front.
func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	_, attached := d.tabs[handle]
	d.mu.Unlock()

	if !attached {
		pages, err := d.pageTargets(ctx)
		if err != nil {
			return err
		}
		found := false
		for _, p := range pages {
			if string(p.TargetID) == handle {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("switch to %s: %w", handle, driver.ErrNoSuchWindow)
		}

		tabCtx, cancel := chromedp.NewContext(d.root, chromedp.WithTargetID(target.ID(handle)))
		t := &tab{ctx: tabCtx, cancel: cancel}
		if err := d.run(ctx, t); err != nil {
			cancel()
			return fmt.Errorf("failed to attach to window %s: %w", handle, err)
		}
		d.mu.Lock()
		d.tabs[handle] = t
		d.mu.Unlock()
	}

	execCtx, cancel := d.browserExecutor(ctx)
	defer cancel()
	if err := target.ActivateTarget(target.ID(handle)).Do(execCtx); err != nil {
		d.logger.Debug("Activating window failed.", zap.String("window", handle), zap.Error(err))
	}

	d.mu.Lock()
	d.current = handle
	d.mu.Unlock()
	return nil
}

// CloseWindow closes the current window. No window is selected afterwards.
func (d *Driver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	handle := d.current
	t := d.tabs[handle]
	d.mu.Unlock()
	if handle == "" {
		return fmt.Errorf("%w: no window selected", driver.ErrNoSuchWindow)
	}

	execCtx, cancel := d.browserExecutor(ctx)
	defer cancel()
	if err := target.CloseTarget(target.ID(handle)).Do(execCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("close %s: %w", handle, classify(err))
	}

	d.mu.Lock()
	delete(d.tabs, handle)
	d.current = ""
	d.mu.Unlock()
	if t != nil && t.cancel != nil {
		t.cancel()
	}
	return nil
}

// -- Document --

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.runCurrent(ctx, chromedp.Location(&url))
	return url, err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.runCurrent(ctx, chromedp.Title(&title))
	return title, err
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var src string
	err := d.ExecuteScript(ctx, "document.documentElement ? document.documentElement.outerHTML : ''", &src)
	return src, err
}

func (d *Driver) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := d.ExecuteScript(ctx, "document.readyState", &state)
	return state, err
}
