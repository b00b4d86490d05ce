// File: cmd/follow_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/driver/fake"
	"github.com/xkilldash9x/uiharness/internal/failure"
)

func TestRunFollow(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("follows a spawned window and returns to the primary", func(t *testing.T) {
		popup := fake.NewWindow("popup")
		popup.URL = "https://pay.test/checkout"
		popup.Title = "Checkout - Pay"
		popup.Source = "<html><body><h1>Checkout</h1></body></html>"

		pay := fake.Visible("pay", "Pay now")
		d := fake.New(fake.NewWindow("main").Add(driver.ByCSS, "#pay", pay))
		pay.OnClick = func() { d.OpenWindow(popup) }

		var out bytes.Buffer
		opts := followOptions{
			URL:         "https://shop.test/cart",
			Locators:    []string{"css=#pay"},
			ExpectTitle: "Checkout",
			Close:       true,
		}
		require.NoError(t, runFollow(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &out))

		assert.Contains(t, out.String(), "idle -> action_triggered -> new_window_detected -> switched -> dom_settling -> settled")
		assert.Contains(t, out.String(), "window: popup (spawned) https://pay.test/checkout")
		assert.Contains(t, out.String(), `ready: title contains "Checkout"`)
		assert.Contains(t, out.String(), "closed popup, back on main")
		assert.Equal(t, 1, d.CloseCalls())
	})

	t.Run("treats an in-place navigation as no new window", func(t *testing.T) {
		next := fake.Visible("next", "Next")
		main := fake.NewWindow("main").Add(driver.ByCSS, "#next", next)
		d := fake.New(main)
		next.OnClick = func() { main.Source = "<p>Step 2</p>" }

		var out bytes.Buffer
		opts := followOptions{
			URL:        "https://shop.test/step1",
			Locators:   []string{"css=#next"},
			ExpectText: "Step 2",
			Close:      true,
		}
		require.NoError(t, runFollow(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &out))

		assert.Contains(t, out.String(), "action_triggered -> no_new_window -> dom_settling -> settled")
		assert.Contains(t, out.String(), "window: main (primary)")
		assert.Contains(t, out.String(), `ready: page text contains "Step 2"`)
		assert.NotContains(t, out.String(), "closed")
		assert.Zero(t, d.CloseCalls())
	})

	t.Run("fails when no readiness probe passes", func(t *testing.T) {
		next := fake.Visible("next", "Next")
		d := fake.New(fake.NewWindow("main").Add(driver.ByCSS, "#next", next))

		cfg := newTestConfig()
		cfg.TimeoutsCfg.Profiles.Interactive.Navigation = 100 * time.Millisecond
		opts := followOptions{
			URL:        "https://shop.test",
			Locators:   []string{"css=#next"},
			ExpectLocs: []string{"css=.confirmation"},
		}
		err := runFollow(ctx, logger, cfg, opts, fakeFactory(t, d), &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, failure.IsTimeout(err))
		assert.Contains(t, err.Error(), "css .confirmation")
	})
}
