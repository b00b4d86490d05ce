// internal/locator/candidate.go
package locator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiharness/internal/driver"
)

// Strategy names the way a Candidate finds elements.
type Strategy string

const (
	StrategyCSS          Strategy = "css"
	StrategyXPath        Strategy = "xpath"
	StrategyID           Strategy = "id"
	StrategyAttribute    Strategy = "attribute"
	StrategyText         Strategy = "text"
	StrategyTextContains Strategy = "text_contains"
	StrategyRole         Strategy = "role"
	StrategyPosition     Strategy = "position"
)

// Candidate is one immutable way of locating a logical UI target. Every
// strategy compiles down to a CSS selector or an XPath expression understood
// by the driver.
type Candidate struct {
	strategy Strategy
	by       driver.By
	query    string
	desc     string
}

// Strategy returns the kind of this candidate.
func (c Candidate) Strategy() Strategy { return c.strategy }

// Query returns the compiled driver query.
func (c Candidate) Query() (driver.By, string) { return c.by, c.query }

// String describes the candidate for logs and failure messages.
func (c Candidate) String() string { return c.desc }

// ByCSS matches a raw CSS selector.
func ByCSS(selector string) Candidate {
	return Candidate{StrategyCSS, driver.ByCSS, selector, "css " + selector}
}

// ByXPath matches a raw XPath expression.
func ByXPath(expr string) Candidate {
	return Candidate{StrategyXPath, driver.ByXPath, expr, "xpath " + expr}
}

// ByID matches the element whose id attribute equals id. The attribute form
// avoids CSS identifier escaping for ids that start with digits.
func ByID(id string) Candidate {
	return Candidate{StrategyID, driver.ByCSS, fmt.Sprintf(`[id=%s]`, cssString(id)), "id " + id}
}

// ByAttribute matches elements carrying attribute name with exactly value.
func ByAttribute(name, value string) Candidate {
	q := fmt.Sprintf(`[%s=%s]`, name, cssString(value))
	return Candidate{StrategyAttribute, driver.ByCSS, q, fmt.Sprintf("attribute %s=%s", name, value)}
}

// ByText matches elements that own a text node equal to text after
// whitespace normalization. Owning the text node, rather than containing it
// somewhere below, keeps wrapper elements from matching.
func ByText(text string) Candidate {
	q := fmt.Sprintf(`//*[text()[normalize-space(.)=%s]]`, xpathLiteral(strings.TrimSpace(text)))
	return Candidate{StrategyText, driver.ByXPath, q, fmt.Sprintf("text %q", text)}
}

// ByTextContains matches elements owning a text node that contains text.
func ByTextContains(text string) Candidate {
	q := fmt.Sprintf(`//*[text()[contains(normalize-space(.), %s)]]`, xpathLiteral(strings.TrimSpace(text)))
	return Candidate{StrategyTextContains, driver.ByXPath, q, fmt.Sprintf("text containing %q", text)}
}

// implicitRoles maps ARIA roles onto the XPath tests for elements that carry
// the role without declaring it.
var implicitRoles = map[string]string{
	"button":   `self::button or (self::input and (@type='button' or @type='submit' or @type='reset'))`,
	"link":     `(self::a and @href)`,
	"textbox":  `self::textarea or (self::input and (not(@type) or @type='text' or @type='email' or @type='password' or @type='tel' or @type='search'))`,
	"checkbox": `(self::input and @type='checkbox')`,
	"radio":    `(self::input and @type='radio')`,
	"combobox": `self::select`,
	"heading":  `self::h1 or self::h2 or self::h3 or self::h4 or self::h5 or self::h6`,
	"row":      `self::tr`,
	"cell":     `self::td`,
	"dialog":   `self::dialog`,
}

// ByRole matches elements with the given ARIA role, explicit or implicit.
// A non-empty name must equal the element's normalized text, aria-label,
// value or title.
func ByRole(role, name string) Candidate {
	role = strings.ToLower(strings.TrimSpace(role))
	test := fmt.Sprintf(`@role=%s`, xpathLiteral(role))
	if implicit, ok := implicitRoles[role]; ok {
		test = test + " or " + implicit
	}
	q := fmt.Sprintf(`//*[%s]`, test)
	desc := "role " + role
	if name != "" {
		lit := xpathLiteral(strings.TrimSpace(name))
		q += fmt.Sprintf(`[normalize-space(.)=%[1]s or @aria-label=%[1]s or @value=%[1]s or @title=%[1]s]`, lit)
		desc += fmt.Sprintf(" name %q", name)
	}
	return Candidate{StrategyRole, driver.ByXPath, q, desc}
}

// ByPosition matches the index-th (1-based) tag child of the elements
// matched by container, e.g. the third row of a results table. A container
// selector list ("#a, #b") applies the child step to every member.
func ByPosition(container, tag string, index int) Candidate {
	step := fmt.Sprintf(` > %s:nth-of-type(%d)`, tag, index)
	parts := splitSelectorList(container)
	for i, p := range parts {
		parts[i] = p + step
	}
	q := strings.Join(parts, ", ")
	return Candidate{StrategyPosition, driver.ByCSS, q, fmt.Sprintf("position %s > %s[%d]", container, tag, index)}
}

// splitSelectorList splits a CSS selector list on its top-level commas,
// leaving commas inside brackets, parentheses and strings alone.
func splitSelectorList(sel string) []string {
	var parts []string
	depth, start := 0, 0
	var quote rune
	escaped := false
	for i, r := range sel {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(sel[start:i]))
			start = i + 1
		}
	}
	parts = append(parts, strings.TrimSpace(sel[start:]))

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(sel)}
	}
	return out
}

// cssString quotes s as a CSS string token.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is assembled with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, `"'"`)
		}
		if p != "" {
			out = append(out, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(out, ", ") + ")"
}
