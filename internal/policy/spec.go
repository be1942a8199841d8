package policy

import (
	"fmt"
)

// Policy kinds accepted in Spec.Kind.
const (
	KindForbiddenTool   = "forbidden_tool"
	KindContentPattern  = "content_pattern"
	KindArgumentPattern = "argument_pattern"
	KindInputSchema     = "input_schema"
)

// DefaultReason is the message of a block whose spec gives none.
const DefaultReason = "Blocked by Device Policy."

// Spec is the data form of a policy, as read from a policy file.
type Spec struct {
	Name            string   `mapstructure:"name" json:"name"`
	Kind            string   `mapstructure:"kind" json:"kind"`
	Reason          string   `mapstructure:"reason" json:"reason,omitempty"`
	Tools           []string `mapstructure:"tools" json:"tools,omitempty"`
	Patterns        []string `mapstructure:"patterns" json:"patterns,omitempty"`
	Regex           bool     `mapstructure:"regex" json:"regex,omitempty"`
	CaseInsensitive bool     `mapstructure:"case_insensitive" json:"case_insensitive,omitempty"`
	Disabled        bool     `mapstructure:"disabled" json:"disabled,omitempty"`
}

// DefaultSpecs apply when no policy file is configured.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name:   "no-world-destruction",
			Kind:   KindForbiddenTool,
			Reason: DefaultReason,
			Tools:  []string{"destroy_the_world"},
		},
		{
			Name:     "contact-leak",
			Kind:     KindContentPattern,
			Reason:   "Blocked by Device Policy: personal contact data in tool result.",
			Patterns: []string{"Alex", "12345"},
		},
	}
}

// Build turns specs into policies, in order. Disabled specs are skipped.
// Names must be unique.
func Build(specs []Spec, schemas SchemaSource) ([]Policy, error) {
	seen := make(map[string]struct{}, len(specs))
	out := make([]Policy, 0, len(specs))
	for i, s := range specs {
		if s.Disabled {
			continue
		}
		if s.Name == "" {
			return nil, fmt.Errorf("policy #%d: name is required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("policy %q: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}

		p, err := build(s, schemas)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func build(s Spec, schemas SchemaSource) (Policy, error) {
	reason := s.Reason
	if reason == "" {
		reason = DefaultReason
	}
	switch s.Kind {
	case KindForbiddenTool:
		if len(s.Tools) == 0 {
			return nil, fmt.Errorf("policy %q: tools is required", s.Name)
		}
		return NewForbiddenToolPolicy(s.Name, reason, s.Tools...), nil
	case KindContentPattern:
		return NewContentPatternPolicy(s.Name, reason, s.Patterns, s.Regex, s.CaseInsensitive)
	case KindArgumentPattern:
		return NewArgumentPatternPolicy(s.Name, reason, s.Patterns, s.Tools)
	case KindInputSchema:
		return NewInputSchemaPolicy(s.Name, reason, schemas, s.Tools)
	default:
		return nil, fmt.Errorf("policy %q: unknown kind %q", s.Name, s.Kind)
	}
}
