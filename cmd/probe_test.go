// File: cmd/probe_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/driver/fake"
	"github.com/xkilldash9x/uiharness/internal/failure"
)

func TestRunProbe(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("reports the fallback strategy and clicks via script", func(t *testing.T) {
		icon := fake.Visible("close", "×")
		icon.ClickErr = driver.ErrClickIntercepted
		d := fake.New(fake.NewWindow("main").Add(driver.ByCSS, "[aria-label=\"Close\"]", icon))

		var out bytes.Buffer
		opts := probeOptions{
			URL:      "https://shop.test/cart",
			Name:     "Close icon",
			Locators: []string{"css=button.close", `css=[aria-label="Close"]`},
			Click:    true,
			Read:     true,
		}
		err := runProbe(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &out)
		require.NoError(t, err)

		assert.Equal(t, []string{"https://shop.test/cart"}, d.Navigations())
		assert.Contains(t, out.String(), "Close icon: resolved via strategy 2 of 2")
		assert.Contains(t, out.String(), "text: ×")
		assert.Contains(t, out.String(), "click: succeeded_via_fallback (script path")
		clicks, scripts, _ := icon.Counts()
		assert.Equal(t, 1, clicks)
		assert.Equal(t, 1, scripts)
		assert.True(t, d.Closed(), "browser is released when the command ends")
	})

	t.Run("reports a missing target as not found", func(t *testing.T) {
		d := fake.New(fake.NewWindow("main"))
		var out bytes.Buffer
		opts := probeOptions{URL: "https://shop.test", Name: "Filter", Locators: []string{"id=filter"}}
		err := runProbe(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &out)
		require.Error(t, err)
		assert.True(t, failure.IsNotFound(err))
		assert.Contains(t, out.String(), "Filter: not found (tried id filter)")
		assert.True(t, d.Closed())
	})

	t.Run("propagates navigation errors", func(t *testing.T) {
		d := fake.New(fake.NewWindow("main"))
		d.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		opts := probeOptions{URL: "https://nowhere.test", Locators: []string{"css=body"}}
		err := runProbe(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &bytes.Buffer{})
		assert.ErrorIs(t, err, d.NavigateErr)
	})

	t.Run("rejects bad locators before launching a browser", func(t *testing.T) {
		d := fake.New(fake.NewWindow("main"))
		opts := probeOptions{URL: "https://shop.test", Locators: []string{"nope"}}
		err := runProbe(ctx, logger, newTestConfig(), opts, fakeFactory(t, d), &bytes.Buffer{})
		require.Error(t, err)
		assert.Empty(t, d.Navigations())
		assert.False(t, d.Closed())
	})
}

func TestProbeCmd_RequiresURL(t *testing.T) {
	resetForTest(t)
	root := newRootCmd(fakeFactory(t, fake.New(fake.NewWindow("main"))), &stubStoreProvider{})
	_, err := executeRoot(root, "probe", "--locator", "css=button")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "url" not set`)
}
