// Package dispatch runs tool calls through the policy engine: arguments are
// checked before the handler runs, content is checked before it is returned.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/models"
	"github.com/clawminium/agentkernel/internal/policy"
	"github.com/clawminium/agentkernel/internal/security"
	"github.com/clawminium/agentkernel/internal/tools"
)

// Messages returned to clients. Handler errors are logged, never echoed.
const (
	MsgToolNotFound  = "tool not found"
	MsgToolExecution = "tool execution failed"
	MsgToolTimeout   = "tool call timed out"
)

// Resolver finds the handler registered for a tool name.
type Resolver interface {
	Resolve(name string) (tools.Handler, error)
}

// Evaluator is the two-point policy check.
type Evaluator interface {
	EvaluateCall(call policy.Call) policy.Verdict
	EvaluateResult(out policy.Output) policy.Verdict
}

type Dispatcher struct {
	tools  Resolver
	policy Evaluator
	audit  *security.AuditLogger
}

func New(tools Resolver, engine Evaluator, audit *security.AuditLogger) *Dispatcher {
	return &Dispatcher{tools: tools, policy: engine, audit: audit}
}

// Call resolves, checks, invokes and re-checks one tool call. It always
// returns a Result; faults become Failures.
func (d *Dispatcher) Call(ctx context.Context, req tools.CallRequest) tools.Result {
	start := time.Now()
	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	rec := security.ToolCallRecord{
		RequestID: chiMiddleware.GetReqID(ctx),
		Tool:      req.Name,
		Arguments: args,
	}
	res := d.call(ctx, req.Name, args, &rec)
	rec.Duration = time.Since(start)
	if res.Failure != nil {
		rec.Code = res.Failure.Code
	}
	d.audit.LogToolCall(rec)
	return res
}

func (d *Dispatcher) call(ctx context.Context, name string, args map[string]any, rec *security.ToolCallRecord) tools.Result {
	h, err := d.tools.Resolve(name)
	if err != nil {
		rec.Outcome = security.OutcomeNotFound
		return tools.Fail(models.CodeToolNotFound, fmt.Sprintf("%s: %s", MsgToolNotFound, name))
	}

	if v := d.policy.EvaluateCall(policy.Call{Tool: name, Arguments: args}); v.Blocked {
		rec.Outcome, rec.Stage, rec.Policy = security.OutcomeBlocked, "call", v.Policy
		return v.Failure()
	}

	res, err := invoke(ctx, h, args)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		rec.Outcome = security.OutcomeTimeout
		log.Warn().Err(err).Str("tool", name).Msg("tool call did not finish in time")
		return tools.Fail(models.CodeToolTimeout, MsgToolTimeout)
	case err != nil:
		rec.Outcome = security.OutcomeFailed
		log.Error().Err(err).Str("tool", name).Msg("tool handler failed")
		return tools.Fail(models.CodeToolExecution, MsgToolExecution)
	case res.IsFailure():
		// A handler may report its own failure; it is passed through as is.
		rec.Outcome = security.OutcomeFailed
		return res
	}

	if v := d.policy.EvaluateResult(policy.Output{Tool: name, Content: res.Content}); v.Blocked {
		rec.Outcome, rec.Stage, rec.Policy = security.OutcomeBlocked, "result", v.Policy
		return v.Failure()
	}
	rec.Outcome = security.OutcomeOK
	return res
}

type outcome struct {
	res tools.Result
	err error
}

// invoke runs h in its own goroutine so a stuck handler cannot outlive ctx
// and a panicking one cannot take the server down.
func invoke(ctx context.Context, h tools.Handler, args map[string]any) (tools.Result, error) {
	if err := ctx.Err(); err != nil {
		return tools.Result{}, err
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("tool handler panicked")
				done <- outcome{err: fmt.Errorf("handler panic: %v", rec)}
			}
		}()
		res, err := h.Invoke(ctx, args)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() != nil {
			return tools.Result{}, ctx.Err()
		}
		return o.res, o.err
	case <-ctx.Done():
		return tools.Result{}, ctx.Err()
	}
}
