package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// ContentPatternPolicy blocks a result only when ALL of its patterns occur in
// the result text. A single marker (a name, a number) is allowed; the
// combination is what leaks.
type ContentPatternPolicy struct {
	name     string
	reason   string
	matchers []func(string) bool
}

// NewContentPatternPolicy compiles patterns as substrings, or as regular
// expressions when regex is set.
func NewContentPatternPolicy(name, reason string, patterns []string, regex, caseInsensitive bool) (*ContentPatternPolicy, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("policy %q: at least one pattern is required", name)
	}
	p := &ContentPatternPolicy{name: name, reason: reason}
	for _, pat := range patterns {
		m, err := newMatcher(pat, regex, caseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", name, err)
		}
		p.matchers = append(p.matchers, m)
	}
	return p, nil
}

func (p *ContentPatternPolicy) Name() string { return p.name }

func (p *ContentPatternPolicy) EvaluateResult(out Output) Verdict {
	text := out.Text()
	for _, m := range p.matchers {
		if !m(text) {
			return Allow()
		}
	}
	return Block(p.name, p.reason)
}

func newMatcher(pattern string, regex, caseInsensitive bool) (func(string) bool, error) {
	if regex {
		if caseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		return re.MatchString, nil
	}
	if caseInsensitive {
		lower := strings.ToLower(pattern)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) }, nil
	}
	return func(s string) bool { return strings.Contains(s, pattern) }, nil
}
