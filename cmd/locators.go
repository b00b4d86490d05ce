// File: cmd/locators.go
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/uiharness/internal/locator"
)

const locatorUsage = `locator candidate as kind=value, tried in the order given. Kinds:
  css=SELECTOR  xpath=EXPR  id=ID  text=EXACT  text_contains=PART
  attribute=NAME:VALUE  role=ROLE[:NAME]  position=CONTAINER:TAG:INDEX`

// parseLocator turns one --locator flag value into a candidate.
func parseLocator(raw string) (locator.Candidate, error) {
	kind, value, ok := strings.Cut(raw, "=")
	kind = strings.ToLower(strings.TrimSpace(kind))
	if !ok || kind == "" || value == "" {
		return locator.Candidate{}, fmt.Errorf("invalid locator %q: expected kind=value", raw)
	}

	switch locator.Strategy(kind) {
	case locator.StrategyCSS:
		return locator.ByCSS(value), nil
	case locator.StrategyXPath:
		return locator.ByXPath(value), nil
	case locator.StrategyID:
		return locator.ByID(value), nil
	case locator.StrategyText:
		return locator.ByText(value), nil
	case locator.StrategyTextContains:
		return locator.ByTextContains(value), nil
	case locator.StrategyAttribute:
		name, val, ok := strings.Cut(value, ":")
		if !ok || name == "" {
			return locator.Candidate{}, fmt.Errorf("invalid attribute locator %q: expected attribute=NAME:VALUE", raw)
		}
		return locator.ByAttribute(name, val), nil
	case locator.StrategyRole:
		role, name, _ := strings.Cut(value, ":")
		return locator.ByRole(role, name), nil
	case locator.StrategyPosition:
		// The container is a CSS selector and may itself contain colons.
		rest, idx, ok1 := cutLast(value, ":")
		container, tag, ok2 := cutLast(rest, ":")
		if !ok1 || !ok2 || container == "" || tag == "" {
			return locator.Candidate{}, fmt.Errorf("invalid position locator %q: expected position=CONTAINER:TAG:INDEX", raw)
		}
		index, err := strconv.Atoi(idx)
		if err != nil || index < 1 {
			return locator.Candidate{}, fmt.Errorf("invalid position locator %q: index must be a positive integer", raw)
		}
		return locator.ByPosition(container, tag, index), nil
	}
	return locator.Candidate{}, fmt.Errorf("unknown locator kind %q", kind)
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// buildSpec assembles a spec from repeated --locator values.
func buildSpec(name string, raws []string) (locator.Spec, error) {
	if len(raws) == 0 {
		return locator.Spec{}, fmt.Errorf("at least one --locator is required")
	}
	candidates := make([]locator.Candidate, 0, len(raws))
	for _, raw := range raws {
		c, err := parseLocator(raw)
		if err != nil {
			return locator.Spec{}, err
		}
		candidates = append(candidates, c)
	}
	if name == "" {
		name = candidates[0].String()
	}
	return locator.NewSpec(name, candidates...), nil
}
