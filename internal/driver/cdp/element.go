// internal/driver/cdp/element.go
package cdp

import (
	"context"
	"fmt"
	"strings"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/uiharness/internal/driver"
)

const (
	jsIsDisplayed = `function() {
		if (!this.isConnected) return false;
		const style = window.getComputedStyle(this);
		if (style.display === 'none' || style.visibility === 'hidden' || style.visibility === 'collapse') return false;
		if (parseFloat(style.opacity) === 0) return false;
		const r = this.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	}`

	jsIsEnabled = `function() {
		if (this.disabled) return false;
		if (this.getAttribute('aria-disabled') === 'true') return false;
		const fs = this.closest('fieldset[disabled]');
		return !fs || fs.querySelector('legend')?.contains(this) === true;
	}`

	// jsHitTest reports the element's center and whether a click there
	// would land on the element (or one of its descendants).
	jsHitTest = `function() {
		const r = this.getBoundingClientRect();
		const x = r.left + r.width / 2;
		const y = r.top + r.height / 2;
		if (r.width === 0 || r.height === 0) return {x: x, y: y, hit: false, by: 'zero-size box'};
		const top = document.elementFromPoint(x, y);
		if (top === null) return {x: x, y: y, hit: false, by: 'outside viewport'};
		const hit = top === this || this.contains(top);
		return {x: x, y: y, hit: hit, by: hit ? '' : top.tagName.toLowerCase() + (top.id ? '#' + top.id : '')};
	}`

	jsClick = `function() { this.click(); }`

	jsClear = `function() {
		if ('value' in this) {
			this.value = '';
		} else if (this.isContentEditable) {
			this.textContent = '';
		}
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`

	jsText = `function() {
		const t = this.innerText;
		return typeof t === 'string' ? t : (this.textContent || '');
	}`
)

type element struct {
	d      *Driver
	tab    *tab
	handle string
	nodeID cdproto.NodeID
}

var _ driver.Element = (*element)(nil)

func (e *element) ID() string {
	return fmt.Sprintf("%s:%d", e.handle, e.nodeID)
}

// call invokes fn with this bound to the element and decodes its
// by-value result into out.
func (e *element) call(ctx context.Context, fn string, out any) error {
	return e.d.run(ctx, e.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.nodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var shown bool
	err := e.call(ctx, jsIsDisplayed, &shown)
	return shown, err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.call(ctx, jsIsEnabled, &enabled)
	return enabled, err
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.d.run(ctx, e.tab, dom.ScrollIntoViewIfNeeded().WithNodeID(e.nodeID))
}

// Click dispatches real mouse events at the element's center. It refuses
// when another element sits on top, which is what a user would hit.
func (e *element) Click(ctx context.Context) error {
	var box struct {
		X   float64 `json:"x"`
		Y   float64 `json:"y"`
		Hit bool    `json:"hit"`
		By  string  `json:"by"`
	}
	if err := e.call(ctx, jsHitTest, &box); err != nil {
		return err
	}
	if !box.Hit {
		return fmt.Errorf("%w: %s", driver.ErrClickIntercepted, box.By)
	}
	return e.d.run(ctx, e.tab, chromedp.MouseClickXY(box.X, box.Y))
}

func (e *element) ScriptClick(ctx context.Context) error {
	return e.call(ctx, jsClick, nil)
}

func (e *element) Clear(ctx context.Context) error {
	return e.call(ctx, jsClear, nil)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, e.tab,
		dom.Focus().WithNodeID(e.nodeID),
		chromedp.KeyEvent(text),
	)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, jsText, &text)
	return strings.TrimSpace(text), err
}
