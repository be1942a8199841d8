package policy

import (
	"fmt"
	"regexp"
)

// DefaultArgumentPatterns catches command execution, path traversal and
// prompt injection in tool arguments.
var DefaultArgumentPatterns = []string{
	// Command execution
	`(?i)\brm\s+-`,
	`(?i)\brm\s+/`,
	`(?i)\bcurl\s+`,
	`(?i)\bwget\s+`,
	`(?i)\bnc\s+-`,
	`(?i)\bbash\s+-`,
	`(?i)\bsudo\s+`,
	`(?i)\bsu\s+-c\b`,
	`(?i)\bam\s+broadcast\b`,

	// File operations / path traversal
	`\.\./`,
	`/etc/passwd`,
	`/etc/shadow`,
	`/proc/`,
	`id_rsa`,
	`\.ssh/`,

	// Code execution
	`(?i)eval\s*\(`,
	`(?i)exec\s*\(`,
	`(?i)system\s*\(`,
	`(?i)__import__\s*\(`,
	`(?i)os\.system`,

	// Prompt injection
	`(?i)ignore\s+(all\s+)?previous\s+instructions`,
	`(?i)disregard\s+(all\s+)?previous\s+instructions`,
	`(?i)override\s+(all\s+)?previous\s+instructions`,
}

// ArgumentPatternPolicy blocks a call when any string argument, at any depth,
// matches one of its expressions. Tools restricts it to the named tools.
type ArgumentPatternPolicy struct {
	name     string
	reason   string
	tools    map[string]struct{}
	patterns []*regexp.Regexp
}

func NewArgumentPatternPolicy(name, reason string, patterns, tools []string) (*ArgumentPatternPolicy, error) {
	if len(patterns) == 0 {
		patterns = DefaultArgumentPatterns
	}
	p := &ArgumentPatternPolicy{name: name, reason: reason, tools: toSet(tools)}
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("policy %q: compile %q: %w", name, pat, err)
		}
		p.patterns = append(p.patterns, re)
	}
	return p, nil
}

func (p *ArgumentPatternPolicy) Name() string { return p.name }

func (p *ArgumentPatternPolicy) EvaluateCall(call Call) Verdict {
	if !appliesTo(p.tools, call.Tool) {
		return Allow()
	}
	if p.matchValue(call.Arguments) {
		return Block(p.name, p.reason)
	}
	return Allow()
}

func (p *ArgumentPatternPolicy) matchValue(v any) bool {
	switch val := v.(type) {
	case string:
		for _, re := range p.patterns {
			if re.MatchString(val) {
				return true
			}
		}
	case map[string]any:
		for _, item := range val {
			if p.matchValue(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if p.matchValue(item) {
				return true
			}
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// appliesTo treats an empty set as "every tool".
func appliesTo(set map[string]struct{}, tool string) bool {
	if set == nil {
		return true
	}
	_, ok := set[tool]
	return ok
}
