package analysis

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Rule is one markup substitution applied to model output.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply substitutes while the substitution keeps shortening s, so markup
// nested in markup (a link inside link text) is removed in one call.
func (r Rule) Apply(s string) string {
	for {
		next := r.Pattern.ReplaceAllString(s, r.Replacement)
		if len(next) >= len(s) {
			return next
		}
		s = next
	}
}

// DefaultRules strip links, citations and emphasis, in order. Links go
// first so their URLs are not left behind by the bare URL rule.
var DefaultRules = []Rule{
	{Name: "markdown_link", Pattern: regexp.MustCompile(`\[([^\[\]]+)\]\((?:[^()\s]|\([^()\s]*\))+\)`), Replacement: "$1"},
	{Name: "bare_url", Pattern: regexp.MustCompile(`https?://[^\s<>()\[\]]+`), Replacement: ""},
	{Name: "domain_citation", Pattern: regexp.MustCompile(`\(\s*[a-zA-Z0-9.-]+\.[a-z]{2,}\s*\)`), Replacement: ""},
	{Name: "bare_domain", Pattern: regexp.MustCompile(`www\.[^\s<>()\[\]]+`), Replacement: ""},
	{Name: "empty_parens", Pattern: regexp.MustCompile(`\(\s*\)`), Replacement: ""},
	{Name: "bold", Pattern: regexp.MustCompile(`\*\*([^*]+)\*\*`), Replacement: "$1"},
	{Name: "underline_bold", Pattern: regexp.MustCompile(`__([^_]+)__`), Replacement: "$1"},
	{Name: "emphasis", Pattern: regexp.MustCompile(`\*([^*\n]+)\*`), Replacement: "$1"},
}

var (
	inlineSpace   = regexp.MustCompile(`[ \t\f\v]+`)
	spaceBefore   = regexp.MustCompile(` +([.,!?])`)
	extraNewlines = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer turns model output into plain prose.
type Sanitizer struct {
	rules  []Rule
	policy *bluemonday.Policy
}

func NewSanitizer(rules ...Rule) *Sanitizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Sanitizer{
		rules:  rules,
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize applies every rule, drops HTML and normalises whitespace until the
// text stops changing, so Sanitize(Sanitize(s)) == Sanitize(s). Each pass
// unescapes one level of entities, so deeply escaped markup takes several.
func (s *Sanitizer) Sanitize(text string) string {
	out := text
	for {
		next := s.pass(out)
		if next == out || len(next) > len(out) {
			return next
		}
		out = next
	}
}

func (s *Sanitizer) pass(text string) string {
	for _, rule := range s.rules {
		text = rule.Apply(text)
	}
	text = html.UnescapeString(s.policy.Sanitize(text))
	return normalizeSpace(text)
}

func normalizeSpace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = inlineSpace.ReplaceAllString(text, " ")
	text = spaceBefore.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
