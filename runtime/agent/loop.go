package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/guardrail"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// Interact drives the agentic loop to completion: trace initialization,
// input guardrails, then turns of model call / event interpretation / tool
// dispatch until a terminal assistant message, a handoff, or a fatal
// condition is reached. See the package doc for the overall state machine.
func (a *Agent) Interact(ctx context.Context, in *agentcontext.Context) (Result, error) {
	if in == nil {
		return Result{}, fmt.Errorf("%w: context must not be nil", ErrConfig)
	}

	a.ensureTrace(in)
	ctx = agentcontext.WithRunContext(ctx, in)

	if lastText, ok := lastUserText(in.History()); ok {
		if res, failed := a.runInputGuardrails(ctx, lastText, in); failed {
			return res, nil
		}
	}

	var toolExecutions []ToolExecution
	for {
		select {
		case <-ctx.Done():
			return Result{Outcome: ErrorResult{Cause: ErrCancelled, Context: in, TurnsUsed: in.TurnCount()}}, nil
		default:
		}

		spanCtx, span := a.telemetry.Tracer.Start(ctx, "agent.turn")
		resp, err := a.client.Complete(spanCtx, a.buildRequest(in))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "model call failed")
			span.End()
			a.telemetry.Logger.Error(ctx, "model call failed", "agent", a.name, "err", err)
			return Result{Outcome: ErrorResult{Cause: &ModelError{Cause: err}, Context: in, TurnsUsed: in.TurnCount()}}, nil
		}
		span.End()

		outcome, execs, done := a.interpretResponse(ctx, in, resp)
		toolExecutions = append(toolExecutions, execs...)

		turns := in.IncrementTurn()
		a.telemetry.Metrics.IncCounter("agent.turn", 1, "agent", a.name)

		if done {
			switch o := outcome.(type) {
			case Success:
				o.TurnsUsed = turns
				o.ToolExecutions = toolExecutions
				outcome = o
			case ErrorResult:
				o.TurnsUsed = turns
				outcome = o
			}
			return Result{Outcome: outcome}, nil
		}

		if turns >= a.maxTurns {
			return Result{Outcome: ErrorResult{Cause: ErrTurnBudgetExceeded, Context: in, TurnsUsed: turns}}, nil
		}
	}
}

// interpretResponse walks resp.Output in model-emitted order, mutating in's
// history as it goes. It returns a non-nil Outcome and done=true when the
// turn produced a terminal condition (handoff or assistant-text-only with
// guardrails applied); otherwise done=false and the loop should continue.
func (a *Agent) interpretResponse(ctx context.Context, in *agentcontext.Context, resp *model.Response) (Outcome, []ToolExecution, bool) {
	var (
		assistantText string
		sawToolCall   bool
		execs         []ToolExecution
	)

	for _, item := range resp.Output {
		switch o := item.(type) {
		case model.MessageOutput:
			assistantText += o.Text
			in.AddInput(model.AssistantMessage{Text: o.Text})

		case model.FunctionCallOutput:
			sawToolCall = true
			in.AddInput(model.ToolCall{ID: o.CallID, Name: o.Name, ArgsRaw: o.Arguments})
			out := a.tools.Dispatch(ctx, o.CallID, o.Name, o.Arguments)
			in.AddInput(out)
			exec := ToolExecution{CallID: o.CallID, ToolName: o.Name, ArgsRaw: o.Arguments}
			if out.IsError() {
				exec.Err = fmt.Errorf("%s", string(out.ErrorRaw))
			} else {
				exec.ResultRaw = out.OutputRaw
			}
			execs = append(execs, exec)
			a.telemetry.Metrics.IncCounter("agent.tool.dispatch", 1, "agent", a.name, "tool", o.Name)

		case model.HandoffOutput:
			return Handoff{Target: o.Target, Reason: o.Reason, Context: in}, execs, true
		}
	}

	if sawToolCall {
		return nil, execs, false
	}

	if res, failed := a.runOutputGuardrails(ctx, assistantText, in); failed {
		return res.Outcome, execs, true
	}

	return Success{
		Output:        assistantText,
		History:       in.HistoryMutable(),
		TurnsUsed:     in.TurnCount(),
		FinalResponse: resp,
	}, execs, true
}

func (a *Agent) ensureTrace(in *agentcontext.Context) {
	if in.HasTraceContext() {
		return
	}
	traceID, err := traceIDGenerator()
	if err != nil {
		return
	}
	spanID, err := spanIDGenerator()
	if err != nil {
		return
	}
	in.WithTraceContext(traceID, spanID)
}

func (a *Agent) runInputGuardrails(ctx context.Context, text string, in *agentcontext.Context) (Result, bool) {
	for _, g := range a.inputGuardrails {
		if res := g.CheckInput(ctx, text, in); !res.Ok() {
			reason := reasonOf(res)
			a.telemetry.Logger.Warn(ctx, "input guardrail failed", "agent", a.name, "reason", reason)
			return Result{Outcome: ErrorResult{
				Cause:     &GuardrailError{Stage: "input", Reason: reason},
				Context:   in,
				TurnsUsed: in.TurnCount(),
			}}, true
		}
	}
	return Result{}, false
}

func (a *Agent) runOutputGuardrails(ctx context.Context, text string, in *agentcontext.Context) (Result, bool) {
	for _, g := range a.outputGuardrails {
		if res := g.CheckOutput(ctx, text, in); !res.Ok() {
			reason := reasonOf(res)
			a.telemetry.Logger.Warn(ctx, "output guardrail failed", "agent", a.name, "reason", reason)
			return Result{Outcome: ErrorResult{
				Cause:     &GuardrailError{Stage: "output", Reason: reason},
				Context:   in,
				TurnsUsed: in.TurnCount(),
			}}, true
		}
	}
	return Result{}, false
}

func reasonOf(res guardrail.Result) string {
	if fr, ok := res.(guardrail.FailedResult); ok {
		return fr.Reason
	}
	return "guardrail failed"
}

func (a *Agent) buildRequest(in *agentcontext.Context) *model.Request {
	defs := a.tools.Definitions()
	return &model.Request{
		Model:        a.modelID,
		Instructions: a.instructions,
		Input:        in.History(),
		Tools:        defs,
		Params: model.GenerationParams{
			Temperature:     a.temperature,
			MaxOutputTokens: a.maxOutput,
		},
		Trace: model.TraceAttributes{
			ParentTraceID: in.TraceID(),
			ParentSpanID:  in.SpanID(),
			RequestID:     in.RequestID(),
		},
	}
}

// lastUserText returns the text of the most recent model.UserMessage in
// history, if any.
func lastUserText(history []model.InputItem) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if um, ok := history[i].(model.UserMessage); ok {
			return um.Text, true
		}
	}
	return "", false
}
