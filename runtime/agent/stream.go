package agent

import (
	"context"
	"strings"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agentcontext"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/telemetry"
)

// Stream is the observer façade for a streaming run: a set of optional,
// chainable callback setters fired synchronously as the run progresses,
// plus Start to begin (or replay, for a pre-failed stream) delivery.
//
// Every setter returns the same *Stream so calls chain:
//
//	result := agent.InteractStream(ctx, in).
//		OnTextDelta(func(chunk string) { fmt.Print(chunk) }).
//		OnToolExecuted(func(e ToolExecution) { log.Println(e.ToolName) }).
//		Start(ctx)
//
// Callback panics are recovered and logged; they never abort the run or
// propagate to the caller.
type Stream struct {
	onTurnStart       func(turnIndex int)
	onTextDelta       func(chunk string)
	onTurnComplete    func(*model.Response)
	onToolExecuted    func(ToolExecution)
	onGuardrailFailed func(reason string)
	onHandoff         func(target string)
	onComplete        func(Result)
	onError           func(error)

	logger telemetry.Logger
	drive  func(ctx context.Context, s *Stream) Result
}

func newStream(logger telemetry.Logger, drive func(ctx context.Context, s *Stream) Result) *Stream {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Stream{logger: logger, drive: drive}
}

// NewStream constructs a Stream driven by run, for callers outside this
// package implementing Interactable.InteractStream (orchestrators,
// primarily). run's returned Result is delivered to OnComplete
// automatically once Start is called.
func NewStream(logger telemetry.Logger, run func(ctx context.Context, s *Stream) Result) *Stream {
	return newStream(logger, run)
}

// NewFailedStream returns a Stream that, once Start is called, immediately
// delivers onError (if result is an ErrorResult) followed by onComplete
// with result. Used when a preconditional failure occurs before any model
// call (e.g., RouterAgent classification failure with no fallback).
func NewFailedStream(result Result) *Stream {
	s := newStream(nil, nil)
	s.drive = func(context.Context, *Stream) Result {
		if e, ok := result.Error(); ok {
			s.fireError(e.Cause)
		}
		return result
	}
	return s
}

// OnTurnStart registers a callback fired at the beginning of each turn.
func (s *Stream) OnTurnStart(fn func(turnIndex int)) *Stream {
	s.onTurnStart = fn
	return s
}

// OnTextDelta registers a callback fired for each incremental text chunk
// while streaming.
func (s *Stream) OnTextDelta(fn func(chunk string)) *Stream {
	s.onTextDelta = fn
	return s
}

// OnTurnComplete registers a callback fired once a turn's model.Response is
// fully materialized.
func (s *Stream) OnTurnComplete(fn func(*model.Response)) *Stream {
	s.onTurnComplete = fn
	return s
}

// OnToolExecuted registers a callback fired after each tool dispatch.
func (s *Stream) OnToolExecuted(fn func(ToolExecution)) *Stream {
	s.onToolExecuted = fn
	return s
}

// OnGuardrailFailed registers a callback fired when a guardrail vetoes the
// run.
func (s *Stream) OnGuardrailFailed(fn func(reason string)) *Stream {
	s.onGuardrailFailed = fn
	return s
}

// OnHandoff registers a callback fired when the run terminates via a
// handoff.
func (s *Stream) OnHandoff(fn func(target string)) *Stream {
	s.onHandoff = fn
	return s
}

// OnComplete registers a callback fired exactly once with the run's
// terminal Result, after any other callbacks for the final turn.
func (s *Stream) OnComplete(fn func(Result)) *Stream {
	s.onComplete = fn
	return s
}

// OnError registers a callback fired when the run terminates with a
// non-guardrail fatal error (model error, turn budget, cancellation,
// routing failure).
func (s *Stream) OnError(fn func(error)) *Stream {
	s.onError = fn
	return s
}

// Start begins delivering callbacks and blocks until the run reaches a
// terminal Result, which is both returned and delivered to OnComplete.
func (s *Stream) Start(ctx context.Context) Result {
	if s.drive == nil {
		return Result{}
	}
	result := s.drive(ctx, s)
	s.fireComplete(result)
	return result
}

func (s *Stream) fireTurnStart(i int) {
	s.safeCall(func() {
		if s.onTurnStart != nil {
			s.onTurnStart(i)
		}
	})
}

func (s *Stream) fireTextDelta(chunk string) {
	s.safeCall(func() {
		if s.onTextDelta != nil {
			s.onTextDelta(chunk)
		}
	})
}

func (s *Stream) fireTurnComplete(r *model.Response) {
	s.safeCall(func() {
		if s.onTurnComplete != nil {
			s.onTurnComplete(r)
		}
	})
}

func (s *Stream) fireToolExecuted(e ToolExecution) {
	s.safeCall(func() {
		if s.onToolExecuted != nil {
			s.onToolExecuted(e)
		}
	})
}

func (s *Stream) fireGuardrailFailed(reason string) {
	s.safeCall(func() {
		if s.onGuardrailFailed != nil {
			s.onGuardrailFailed(reason)
		}
	})
}

func (s *Stream) fireHandoff(target string) {
	s.safeCall(func() {
		if s.onHandoff != nil {
			s.onHandoff(target)
		}
	})
}

func (s *Stream) fireComplete(r Result) {
	s.safeCall(func() {
		if s.onComplete != nil {
			s.onComplete(r)
		}
	})
}

func (s *Stream) fireError(err error) {
	s.safeCall(func() {
		if s.onError != nil {
			s.onError(err)
		}
	})
}

// safeCall recovers a panicking callback and logs it instead of letting it
// propagate, matching the error policy's "exceptions from stream callbacks
// are caught and logged; they do not propagate".
func (s *Stream) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), "agent stream callback panicked", "panic", r)
		}
	}()
	fn()
}

// InteractStream runs the agentic loop while delivering progress through
// the returned Stream. Its turn loop mirrors Interact's and shares its
// request building, response interpretation, and guardrail steps, adding
// callback firing around them and, when the underlying model.Client
// supports Stream, forwarding text deltas as they arrive.
func (a *Agent) InteractStream(ctx context.Context, in *agentcontext.Context) *Stream {
	if in == nil {
		return NewFailedStream(Result{Outcome: ErrorResult{Cause: ErrConfig}})
	}
	return newStream(a.telemetry.Logger, func(ctx context.Context, s *Stream) Result {
		return a.interactStreaming(ctx, in, s)
	})
}

func (a *Agent) interactStreaming(ctx context.Context, in *agentcontext.Context, s *Stream) Result {
	if in == nil {
		return Result{Outcome: ErrorResult{Cause: ErrConfig}}
	}
	a.ensureTrace(in)
	ctx = agentcontext.WithRunContext(ctx, in)

	if lastText, ok := lastUserText(in.History()); ok {
		if res, failed := a.runInputGuardrails(ctx, lastText, in); failed {
			if e, ok := res.Error(); ok {
				if ge, ok := e.Cause.(*GuardrailError); ok {
					s.fireGuardrailFailed(ge.Reason)
				} else {
					s.fireError(e.Cause)
				}
			}
			return res
		}
	}

	var toolExecutions []ToolExecution
	for {
		select {
		case <-ctx.Done():
			res := Result{Outcome: ErrorResult{Cause: ErrCancelled, Context: in, TurnsUsed: in.TurnCount()}}
			s.fireError(ErrCancelled)
			return res
		default:
		}

		s.fireTurnStart(in.TurnCount())

		resp, err := a.streamOneTurn(ctx, in, s)
		if err != nil {
			res := Result{Outcome: ErrorResult{Cause: &ModelError{Cause: err}, Context: in, TurnsUsed: in.TurnCount()}}
			s.fireError(res.Outcome.(ErrorResult).Cause)
			return res
		}
		s.fireTurnComplete(resp)

		outcome, execs, done := a.interpretResponse(ctx, in, resp)
		for _, e := range execs {
			s.fireToolExecuted(e)
		}
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
				if ge, ok := o.Cause.(*GuardrailError); ok {
					s.fireGuardrailFailed(ge.Reason)
				} else {
					s.fireError(o.Cause)
				}
			case Handoff:
				s.fireHandoff(o.Target)
			}
			return Result{Outcome: outcome}
		}

		if turns >= a.maxTurns {
			res := Result{Outcome: ErrorResult{Cause: ErrTurnBudgetExceeded, Context: in, TurnsUsed: turns}}
			s.fireError(ErrTurnBudgetExceeded)
			return res
		}
	}
}

// streamOneTurn issues a single model turn, preferring the client's
// streaming path (forwarding text deltas) and falling back to a
// non-streaming Complete call when the client does not support streaming.
// When the stop event carries no Response, the turn's Response is rebuilt
// from the text deltas and output items received before it.
func (a *Agent) streamOneTurn(ctx context.Context, in *agentcontext.Context, s *Stream) (*model.Response, error) {
	req := a.buildRequest(in)
	streamer, err := a.client.Stream(ctx, req)
	if err == model.ErrStreamingUnsupported {
		return a.client.Complete(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var text strings.Builder
	var items []model.OutputItem
	for {
		ev, err := streamer.Recv()
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case model.ChunkTypeTextDelta:
			text.WriteString(ev.TextDelta)
			s.fireTextDelta(ev.TextDelta)
		case model.ChunkTypeOutputItem:
			items = append(items, ev.Item)
		case model.ChunkTypeStop:
			if ev.Response != nil {
				return ev.Response, nil
			}
			resp := &model.Response{Status: model.ResponseStatusCompleted}
			if text.Len() > 0 {
				resp.Output = append(resp.Output, model.MessageOutput{Role: model.RoleAssistant, Text: text.String()})
			}
			resp.Output = append(resp.Output, items...)
			return resp, nil
		}
	}
}
