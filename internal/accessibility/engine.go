// Package accessibility audits rendered markup against a small set of WCAG
// level A rules.
package accessibility

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/grievance/internal/logging"
	"golang.org/x/net/html"
)

// Impact is how badly a violation hurts assistive technology users.
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
)

// Rule is one accessibility check.
type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
	HelpURL     string `json:"help_url"`
}

// Violation is a rule failing on a specific element.
type Violation struct {
	Rule     string `json:"rule"`
	Impact   Impact `json:"impact"`
	Selector string `json:"selector"`
	Message  string `json:"message"`
}

// Report is the outcome of one audit.
type Report struct {
	Violations []Violation   `json:"violations"`
	Passed     []string      `json:"passed"`
	Duration   time.Duration `json:"duration"`
}

// Critical returns the number of violations with critical impact.
func (r *Report) Critical() int {
	n := 0
	for _, v := range r.Violations {
		if v.Impact == ImpactCritical {
			n++
		}
	}
	return n
}

// DefaultRules are applied by every engine.
var DefaultRules = []Rule{
	{
		ID:          "missing-alt-text",
		Description: "Images must have alternative text",
		Impact:      ImpactCritical,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/image-alt",
	},
	{
		ID:          "missing-form-label",
		Description: "Form elements must have labels",
		Impact:      ImpactCritical,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/label",
	},
	{
		ID:          "missing-heading-structure",
		Description: "Headings must be in logical order",
		Impact:      ImpactSerious,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/heading-order",
	},
	{
		ID:          "missing-button-text",
		Description: "Buttons must have accessible names",
		Impact:      ImpactCritical,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/button-name",
	},
	{
		ID:          "missing-lang-attribute",
		Description: "HTML element must have a lang attribute",
		Impact:      ImpactSerious,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/html-has-lang",
	},
	{
		ID:          "missing-title-element",
		Description: "Documents must contain a title element",
		Impact:      ImpactSerious,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/document-title",
	},
	{
		ID:          "duplicate-id",
		Description: "IDs of active elements must be unique",
		Impact:      ImpactSerious,
		HelpURL:     "https://dequeuniversity.com/rules/axe/4.4/duplicate-id-active",
	},
}

// Engine runs the rules over parsed HTML.
type Engine struct {
	rules  []Rule
	logger logging.Logger
}

// NewEngine creates an engine with DefaultRules.
func NewEngine(logger logging.Logger) *Engine {
	return &Engine{
		rules:  DefaultRules,
		logger: logger.WithComponent("accessibility"),
	}
}

// Analyze parses r as a complete document and applies every rule.
func (e *Engine) Analyze(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	elements := extractElements(doc)

	report := &Report{Violations: []Violation{}, Passed: []string{}}
	for _, rule := range e.rules {
		found := checkRule(rule, elements)
		if len(found) > 0 {
			report.Violations = append(report.Violations, found...)
		} else {
			report.Passed = append(report.Passed, rule.ID)
		}
	}
	report.Duration = time.Since(start)

	e.logger.Debug(ctx, "Accessibility analysis completed",
		"violations", len(report.Violations),
		"passed_rules", len(report.Passed),
		"duration", report.Duration)

	return report, nil
}

func extractElements(node *html.Node) []*html.Node {
	elements := []*html.Node{}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elements = append(elements, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return elements
}

func checkRule(rule Rule, elements []*html.Node) []Violation {
	violations := []Violation{}
	violate := func(n *html.Node, message string) {
		violations = append(violations, Violation{
			Rule:     rule.ID,
			Impact:   rule.Impact,
			Selector: selector(n),
			Message:  message,
		})
	}

	switch rule.ID {
	case "missing-alt-text":
		for _, el := range elements {
			if el.Data == "img" {
				if alt, ok := attr(el, "alt"); !ok || alt == "" {
					violate(el, "Image missing alt attribute")
				}
			}
		}

	case "missing-form-label":
		for _, el := range elements {
			if isLabelledControl(el) && !hasAssociatedLabel(el, elements) {
				violate(el, "Form control missing associated label")
			}
		}

	case "missing-heading-structure":
		headings := []*html.Node{}
		for _, el := range elements {
			if headingLevel(el.Data) > 0 {
				headings = append(headings, el)
			}
		}
		if len(headings) > 0 && !hasLogicalHeadingOrder(headings) {
			violate(headings[0], "Heading structure is not logical")
		}

	case "missing-button-text":
		for _, el := range elements {
			if el.Data == "button" && !hasAccessibleName(el) {
				violate(el, "Button missing accessible name")
			}
		}

	case "missing-lang-attribute":
		for _, el := range elements {
			if el.Data == "html" {
				if lang, ok := attr(el, "lang"); !ok || lang == "" {
					violate(el, "HTML element missing lang attribute")
				}
			}
		}

	case "missing-title-element":
		var head *html.Node
		hasTitle := false
		for _, el := range elements {
			switch el.Data {
			case "head":
				head = el
			case "title":
				hasTitle = strings.TrimSpace(textContent(el)) != ""
			}
		}
		if head != nil && !hasTitle {
			violate(head, "Document has no title")
		}

	case "duplicate-id":
		seen := make(map[string][]*html.Node)
		for _, el := range elements {
			if id, ok := attr(el, "id"); ok && id != "" {
				seen[id] = append(seen[id], el)
			}
		}
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if len(seen[id]) > 1 {
				for _, el := range seen[id] {
					violate(el, fmt.Sprintf("Duplicate ID: %s", id))
				}
			}
		}
	}

	return violations
}

func isLabelledControl(n *html.Node) bool {
	switch n.Data {
	case "textarea", "select":
		return true
	case "input":
		typ, _ := attr(n, "type")
		return typ != "hidden" && typ != "submit" && typ != "button"
	}
	return false
}

func hasAssociatedLabel(n *html.Node, all []*html.Node) bool {
	if _, ok := attr(n, "aria-label"); ok {
		return true
	}
	if _, ok := attr(n, "aria-labelledby"); ok {
		return true
	}

	if id, ok := attr(n, "id"); ok {
		for _, el := range all {
			if el.Data == "label" {
				if forAttr, ok := attr(el, "for"); ok && forAttr == id {
					return true
				}
			}
		}
	}

	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "label" {
			return true
		}
	}
	return false
}

func hasLogicalHeadingOrder(headings []*html.Node) bool {
	levels := make([]int, len(headings))
	for i, h := range headings {
		levels[i] = headingLevel(h.Data)
	}

	if levels[0] != 1 {
		return false
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			return false
		}
	}
	return true
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func hasAccessibleName(n *html.Node) bool {
	if strings.TrimSpace(textContent(n)) != "" {
		return true
	}
	if _, ok := attr(n, "aria-label"); ok {
		return true
	}
	_, ok := attr(n, "aria-labelledby")
	return ok
}

func selector(n *html.Node) string {
	if id, ok := attr(n, "id"); ok && id != "" {
		return fmt.Sprintf("%s#%s", n.Data, id)
	}
	if class, ok := attr(n, "class"); ok {
		if classes := strings.Fields(class); len(classes) > 0 {
			return fmt.Sprintf("%s.%s", n.Data, strings.Join(classes, "."))
		}
	}
	return n.Data
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
