package policy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Alerter receives the reason of every block. Alert must not block.
type Alerter interface {
	Alert(reason string)
}

// Engine evaluates an ordered policy list. The list is swapped atomically so
// concurrent evaluations see either the old or the new list, never a mix.
type Engine struct {
	policies atomic.Pointer[[]Policy]
	mu       sync.Mutex // serialises writers
	alerter  Alerter
}

func NewEngine(alerter Alerter, policies ...Policy) *Engine {
	e := &Engine{alerter: alerter}
	list := append([]Policy(nil), policies...)
	e.policies.Store(&list)
	return e
}

// EvaluateCall runs call policies in order and returns the first block.
func (e *Engine) EvaluateCall(call Call) Verdict {
	for _, p := range e.snapshot() {
		cp, ok := p.(CallPolicy)
		if !ok {
			continue
		}
		if v := cp.EvaluateCall(call); v.Blocked {
			e.fire(v, call.Tool, "call")
			return v
		}
	}
	return Allow()
}

// EvaluateResult runs result policies in order and returns the first block.
func (e *Engine) EvaluateResult(out Output) Verdict {
	for _, p := range e.snapshot() {
		rp, ok := p.(ResultPolicy)
		if !ok {
			continue
		}
		if v := rp.EvaluateResult(out); v.Blocked {
			e.fire(v, out.Tool, "result")
			return v
		}
	}
	return Allow()
}

func (e *Engine) fire(v Verdict, tool, stage string) {
	log.Warn().
		Str("event", "policy_block").
		Str("policy", v.Policy).
		Str("tool", tool).
		Str("stage", stage).
		Str("reason", v.Reason).
		Msg("tool call blocked")
	if e.alerter != nil {
		e.alerter.Alert(v.Reason)
	}
}

func (e *Engine) snapshot() []Policy {
	return *e.policies.Load()
}

// Policies returns the current list.
func (e *Engine) Policies() []Policy {
	return append([]Policy(nil), e.snapshot()...)
}

func (e *Engine) Len() int {
	return len(e.snapshot())
}

// Add appends a policy. Names must be unique.
func (e *Engine) Add(p Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.snapshot()
	for _, existing := range cur {
		if existing.Name() == p.Name() {
			return fmt.Errorf("policy %q already installed", p.Name())
		}
	}
	next := make([]Policy, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, p)
	e.policies.Store(&next)
	return nil
}

// Remove drops the named policy and reports whether it was installed.
func (e *Engine) Remove(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.snapshot()
	next := make([]Policy, 0, len(cur))
	for _, p := range cur {
		if p.Name() != name {
			next = append(next, p)
		}
	}
	if len(next) == len(cur) {
		return false
	}
	e.policies.Store(&next)
	return true
}

// Replace installs a whole new list.
func (e *Engine) Replace(policies []Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := append([]Policy(nil), policies...)
	e.policies.Store(&next)
}
