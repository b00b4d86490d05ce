// internal/navigation/probes.go
package navigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/wait"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Probe is one signal that a page has loaded.
type Probe struct {
	Name  string
	check func(ctx context.Context, t *Tracker) (bool, error)
}

// URLContains passes when the active window's URL contains s.
func URLContains(s string) Probe {
	return Probe{Name: fmt.Sprintf("url contains %q", s), check: func(ctx context.Context, t *Tracker) (bool, error) {
		u, err := t.driver.CurrentURL(ctx)
		return err == nil && strings.Contains(u, s), err
	}}
}

// TitleContains passes when the document title contains s.
func TitleContains(s string) Probe {
	return Probe{Name: fmt.Sprintf("title contains %q", s), check: func(ctx context.Context, t *Tracker) (bool, error) {
		title, err := t.driver.Title(ctx)
		return err == nil && strings.Contains(title, s), err
	}}
}

// ElementVisible passes when spec resolves to a displayed element.
func ElementVisible(spec locator.Spec) Probe {
	return Probe{Name: fmt.Sprintf("element %q visible", spec.Name), check: func(ctx context.Context, t *Tracker) (bool, error) {
		return t.resolver.Exists(ctx, spec, locator.Options{})
	}}
}

// SourceContains passes when the document's visible text contains text.
// Script and style bodies, attributes and markup do not count, so a string
// that only appears in an inline bundle does not pass.
func SourceContains(text string) Probe {
	want := normalizeSpace(text)
	return Probe{Name: fmt.Sprintf("page text contains %q", text), check: func(ctx context.Context, t *Tracker) (bool, error) {
		src, err := t.driver.PageSource(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(VisibleText(src), want), nil
	}}
}

// AwaitPage evaluates probes in order on every poll and returns the first
// that passes. Probe errors count as "not yet". Expiry is a Timeout failure.
func (t *Tracker) AwaitPage(ctx context.Context, timeout time.Duration, probes ...Probe) (Probe, error) {
	if len(probes) == 0 {
		return Probe{}, errors.New("await page: no probes given")
	}
	if timeout <= 0 {
		timeout = t.profile.Navigation
	}

	var passed Probe
	err := wait.Poll(ctx, t.profile.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		for _, p := range probes {
			ok, err := p.check(ctx, t)
			if err != nil {
				if ctx.Err() != nil {
					return false, ctx.Err()
				}
				t.logger.Debug("Readiness probe errored.", zap.String("probe", p.Name), zap.Error(err))
				continue
			}
			if ok {
				passed = p
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, wait.ErrTimeout) {
			names := make([]string, len(probes))
			for i, p := range probes {
				names[i] = p.Name
			}
			return Probe{}, failure.Timeout("await_page", strings.Join(names, " | "), err)
		}
		return Probe{}, err
	}

	t.logger.Debug("Page ready.", zap.String("probe", passed.Name), zap.String("window", t.active.Handle))
	return passed, nil
}

// skippedElements hold text that is never rendered.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// blockElements break the text flow; inline elements do not.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true, "section": true,
	"article": true, "header": true, "footer": true, "nav": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"button": true, "label": true, "option": true, "form": true,
}

// VisibleText extracts the whitespace-normalized rendered text of an HTML
// document.
func VisibleText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if tt == html.StartTagToken && skippedElements[string(name)] {
				skipDepth++
			}
			if blockElements[string(name)] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[string(name)] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
