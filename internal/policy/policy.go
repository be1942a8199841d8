// Package policy decides whether a tool call may run and whether its result
// may be returned. Policies are data-built predicates held by an Engine that
// every call passes through twice: before the handler sees the arguments and
// after it produced content.
package policy

import (
	"github.com/clawminium/agentkernel/internal/models"
	"github.com/clawminium/agentkernel/internal/tools"
)

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Blocked bool
	Policy  string
	Reason  string
}

func Allow() Verdict { return Verdict{} }

func Block(policy, reason string) Verdict {
	return Verdict{Blocked: true, Policy: policy, Reason: reason}
}

// Failure is the error result substituted for a blocked call or result.
func (v Verdict) Failure() tools.Result {
	return tools.Fail(models.CodePolicyBlocked, v.Reason)
}

// Call is a pending tool call.
type Call struct {
	Tool      string
	Arguments map[string]any
}

// Output is a produced, not yet delivered, tool result.
type Output struct {
	Tool    string
	Content []tools.Content
}

// Text joins the text blocks of the output.
func (o Output) Text() string {
	return tools.Result{Content: o.Content}.Text()
}

// Policy is a named rule. Concrete policies also implement CallPolicy,
// ResultPolicy, or both.
type Policy interface {
	Name() string
}

// CallPolicy inspects arguments before execution.
type CallPolicy interface {
	Policy
	EvaluateCall(call Call) Verdict
}

// ResultPolicy inspects content after successful execution.
type ResultPolicy interface {
	Policy
	EvaluateResult(out Output) Verdict
}
