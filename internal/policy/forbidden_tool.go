package policy

import (
	"strings"

	"github.com/armon/go-radix"
)

// ForbiddenToolPolicy blocks calls to listed tools unconditionally.
// An entry ending in '*' forbids every tool with that prefix.
type ForbiddenToolPolicy struct {
	name     string
	reason   string
	exact    map[string]struct{}
	prefixes *radix.Tree
}

func NewForbiddenToolPolicy(name, reason string, tools ...string) *ForbiddenToolPolicy {
	p := &ForbiddenToolPolicy{
		name:     name,
		reason:   reason,
		exact:    make(map[string]struct{}, len(tools)),
		prefixes: radix.New(),
	}
	for _, t := range tools {
		if prefix, ok := strings.CutSuffix(t, "*"); ok {
			p.prefixes.Insert(prefix, t)
			continue
		}
		p.exact[t] = struct{}{}
	}
	return p
}

func (p *ForbiddenToolPolicy) Name() string { return p.name }

func (p *ForbiddenToolPolicy) EvaluateCall(call Call) Verdict {
	if _, ok := p.exact[call.Tool]; ok {
		return Block(p.name, p.reason)
	}
	if _, _, ok := p.prefixes.LongestPrefix(call.Tool); ok {
		return Block(p.name, p.reason)
	}
	return Allow()
}
