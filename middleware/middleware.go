// Package middleware implements the middleware executor (C5): two
// sequential phases (global, then action-local), each middleware producing
// one of a small set of explicit outcomes rather than calling a
// continuation.
//
// Grounded on xraph-go-utils/http/context.go's Ctx.Set/Get (the same
// always-replace semantics back this package's context merges), redesigned
// per the spec's DESIGN NOTES away from a next()-callback model: Go favors
// an explicit returned outcome over a control-flow object threaded through
// every call, so next.Stop() becomes the Stop constructor and attaching an
// error on next() becomes Failed. There is no Skip constructor.
package middleware

import (
	"github.com/igniter-go/igniter/request"
	"github.com/igniter-go/igniter/response"
)

// kind discriminates the outcomes a Func can produce.
type kind int

const (
	kindContinue kind = iota
	kindEarlyReturn
	kindMergeContext
	kindFailed
	kindStop
)

// Result is the sum-type outcome of a single middleware invocation (spec
// §4.5): Continue runs the next middleware/handler unchanged; EarlyReturn
// serializes a response and skips everything after it; MergeContext
// shallow-merges a mapping into user-context, subject to the reserved-key
// policy; Failed aborts the pipeline and routes to the error classifier;
// Stop ends the pipeline without error and without a handler result.
type Result struct {
	kind     kind
	response *response.Response
	merge    map[string]any
	err      error
}

// Continue proceeds to the next middleware or the handler unchanged.
func Continue() Result { return Result{kind: kindContinue} }

// EarlyReturn serializes resp immediately; remaining middleware and the
// handler are skipped.
func EarlyReturn(resp *response.Response) Result {
	return Result{kind: kindEarlyReturn, response: resp}
}

// MergeContext shallow-merges values into user-context (reserved keys are
// dropped with a warning by request.Context.Merge).
func MergeContext(values map[string]any) Result {
	return Result{kind: kindMergeContext, merge: values}
}

// Failed aborts the pipeline; err is routed to the error classifier (C7).
func Failed(err error) Result {
	return Result{kind: kindFailed, err: err}
}

// Stop ends the pipeline without error and without invoking the handler,
// proceeding straight to finalization (the `next()` "stop" signal in
// spec §4.5, modeled as a Result rather than a side channel on next).
func Stop() Result {
	return Result{kind: kindStop}
}

// Func is a single middleware: inspect/mutate ctx, return one outcome.
type Func func(ctx *request.Context) Result

// Outcome is the resolved effect of running an entire phase or the full
// pipeline, reported back to the processor (C11).
type Outcome struct {
	// EarlyResponse is set when a middleware short-circuited with
	// EarlyReturn; the processor must finalize this and skip the handler.
	EarlyResponse *response.Response

	// Stopped is set when a middleware called Stop: no handler runs, no
	// error, proceed to finalization with whatever response state exists.
	Stopped bool

	// Err is set when a middleware Failed; the processor routes it to C7.
	Err error
}

// Done reports whether the pipeline should not continue to the next stage
// (handler invocation), because of an early return, a stop, or a failure.
func (o Outcome) Done() bool {
	return o.EarlyResponse != nil || o.Stopped || o.Err != nil
}

// Run executes funcs in registration order against ctx, applying each
// merge immediately so later middleware in the same phase observe it
// (spec §4.5 "Effects of merges are visible to subsequent middleware in
// the same phase"). It stops at the first EarlyReturn/Failed/Stop.
func Run(ctx *request.Context, funcs []Func) Outcome {
	for _, fn := range funcs {
		result := fn(ctx)

		switch result.kind {
		case kindContinue:
			continue
		case kindMergeContext:
			ctx.Merge(result.merge)
		case kindEarlyReturn:
			return Outcome{EarlyResponse: result.response}
		case kindFailed:
			return Outcome{Err: result.err}
		case kindStop:
			return Outcome{Stopped: true}
		}
	}

	return Outcome{}
}

// RunPhases executes the global phase followed by the action-local phase,
// stopping immediately if the global phase does not continue (spec §4.5
// "global (framework-wide) then action-local").
func RunPhases(ctx *request.Context, global, local []Func) Outcome {
	if outcome := Run(ctx, global); outcome.Done() {
		return outcome
	}

	return Run(ctx, local)
}
