// File: cmd/locators_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/locator"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		raw      string
		strategy locator.Strategy
		by       driver.By
		query    string
	}{
		{"css=button.close", locator.StrategyCSS, driver.ByCSS, "button.close"},
		{"CSS=#filter", locator.StrategyCSS, driver.ByCSS, "#filter"},
		{"xpath=//button[@aria-label='Close']", locator.StrategyXPath, driver.ByXPath, "//button[@aria-label='Close']"},
		{"id=submit", locator.StrategyID, driver.ByCSS, `[id="submit"]`},
		{"attribute=data-testid:close-icon", locator.StrategyAttribute, driver.ByCSS, `[data-testid="close-icon"]`},
		{"position=table.results tr:td:3", locator.StrategyPosition, driver.ByCSS, "table.results tr > td:nth-of-type(3)"},
		{"position=ul li:first-child:a:1", locator.StrategyPosition, driver.ByCSS, "ul li:first-child > a:nth-of-type(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := parseLocator(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, c.Strategy())
			by, query := c.Query()
			assert.Equal(t, tt.by, by)
			assert.Equal(t, tt.query, query)
		})
	}

	t.Run("text kinds and role compile to xpath", func(t *testing.T) {
		for _, raw := range []string{"text=Close", "text_contains=Clos", "role=button:Close", "role=dialog"} {
			c, err := parseLocator(raw)
			require.NoError(t, err, raw)
			by, _ := c.Query()
			assert.Equal(t, driver.ByXPath, by, raw)
		}
	})

	t.Run("value may contain an equals sign", func(t *testing.T) {
		c, err := parseLocator("css=input[name=q]")
		require.NoError(t, err)
		_, query := c.Query()
		assert.Equal(t, "input[name=q]", query)
	})

	invalid := map[string]string{
		"button.close":         "expected kind=value",
		"css=":                 "expected kind=value",
		"=x":                   "expected kind=value",
		"label=Close":          "unknown locator kind",
		"attribute=data-close": "expected attribute=NAME:VALUE",
		"position=ul:li":       "expected position=CONTAINER:TAG:INDEX",
		"position=ul:li:zero":  "index must be a positive integer",
		"position=ul:li:0":     "index must be a positive integer",
	}
	for raw, want := range invalid {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, err := parseLocator(raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestBuildSpec(t *testing.T) {
	spec, err := buildSpec("Close icon", []string{"css=.close", "text=Close"})
	require.NoError(t, err)
	assert.Equal(t, "Close icon", spec.Name)
	require.Len(t, spec.Candidates, 2)
	assert.Equal(t, locator.StrategyText, spec.Candidates[1].Strategy())

	unnamed, err := buildSpec("", []string{"css=.close"})
	require.NoError(t, err)
	assert.Equal(t, unnamed.Candidates[0].String(), unnamed.Name)

	_, err = buildSpec("x", nil)
	assert.ErrorContains(t, err, "at least one --locator")

	_, err = buildSpec("x", []string{"css=.ok", "bogus"})
	assert.ErrorContains(t, err, "bogus")
}
