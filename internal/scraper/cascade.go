// internal/scraper/cascade.go
package scraper

import (
	"github.com/andybalholm/cascadia"
)

// Shape is the result shape of a field cascade.
type Shape int

const (
	// Single fields take the first non-empty candidate.
	Single Shape = iota
	// Multi fields take every qualifying node of the first rule that yields any.
	Multi
)

func (s Shape) String() string {
	if s == Multi {
		return "multi"
	}
	return "single"
}

// Rule is one selection strategy of a cascade.
type Rule struct {
	// Pattern is the CSS selector source, kept for logs and metrics.
	Pattern  string
	Selector cascadia.Selector
	// Attr reads an attribute instead of the element text when set.
	Attr string
	// MinLen is the exclusive lower bound on cleaned rune length (multi only).
	MinLen int
	// Checklist strips leading checkbox glyphs before qualifying a value.
	Checklist bool
}

// TextRule builds a rule reading element text.
func TextRule(pattern string) Rule {
	return Rule{Pattern: pattern, Selector: cascadia.MustCompile(pattern)}
}

// AttrRule builds a rule reading attribute attr of the first match.
func AttrRule(pattern, attr string) Rule {
	return Rule{Pattern: pattern, Selector: cascadia.MustCompile(pattern), Attr: attr}
}

// ListRule builds a multi-valued rule with the given length threshold.
func ListRule(pattern string, minLen int) Rule {
	return Rule{Pattern: pattern, Selector: cascadia.MustCompile(pattern), MinLen: minLen}
}

func (r Rule) clean(s string) string {
	if r.Checklist {
		return CleanChecklist(s)
	}
	return Clean(s)
}

// FieldRules is the ordered strategy list of one recipe field. Order is
// priority: earlier rules are higher confidence.
type FieldRules struct {
	Field string
	Shape Shape
	Rules []Rule
}

// Outcome is the result of evaluating a cascade. Rule is the index of the
// winning rule, or -1 when nothing matched.
type Outcome struct {
	Values []string
	Rule   int
}

// Matched reports whether any rule produced a value.
func (o Outcome) Matched() bool {
	return o.Rule >= 0
}

// First returns the single value of a single-valued outcome.
func (o Outcome) First() string {
	if len(o.Values) == 0 {
		return ""
	}
	return o.Values[0]
}

// Evaluate runs the cascade against doc.
func (f FieldRules) Evaluate(doc Document) Outcome {
	if f.Shape == Multi {
		return CascadeMulti(doc, f.Rules)
	}
	return CascadeSingle(doc, f.Rules)
}

// CascadeSingle returns the first non-empty candidate. Each rule looks only
// at its first matching node.
func CascadeSingle(doc Document, rules []Rule) Outcome {
	for i, rule := range rules {
		node, ok := doc.SelectFirst(rule.Selector)
		if !ok {
			continue
		}
		var raw string
		if rule.Attr != "" {
			raw, _ = doc.Attr(node, rule.Attr)
		} else {
			raw = doc.Text(node)
		}
		if value := rule.clean(raw); value != "" {
			return Outcome{Values: []string{value}, Rule: i}
		}
	}
	return Outcome{Rule: -1}
}

// CascadeMulti returns the qualifying items of the first rule that yields at
// least one. Results of different rules are never merged.
func CascadeMulti(doc Document, rules []Rule) Outcome {
	for i, rule := range rules {
		var items []string
		for _, node := range doc.SelectAll(rule.Selector) {
			value := rule.clean(doc.Text(node))
			if Qualifies(value, rule.MinLen) {
				items = append(items, value)
			}
		}
		if len(items) > 0 {
			return Outcome{Values: items, Rule: i}
		}
	}
	return Outcome{Rule: -1}
}
