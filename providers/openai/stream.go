package openai

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// streamer adapts an OpenAI Responses streaming reply to model.Streamer,
// translating server-sent events into model.Events on a buffered channel
// fed by a background goroutine.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *ssestream.Stream[responses.ResponseStreamEventUnion]

	events chan model.Event

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	metaMu   sync.RWMutex
	metadata map[string]any
}

func newStreamer(ctx context.Context, stream *ssestream.Stream[responses.ResponseStreamEventUnion]) model.Streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{ctx: cctx, cancel: cancel, stream: stream, events: make(chan model.Event, 32)}
	go s.run()
	return s
}

func (s *streamer) Recv() (model.Event, error) {
	select {
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
		if err := s.err(); err != nil {
			return model.Event{}, err
		}
		return model.Event{}, io.EOF
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(err)
		return model.Event{}, err
	}
}

func (s *streamer) Close() error {
	s.cancel()
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *streamer) Metadata() map[string]any {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	if len(s.metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

func (s *streamer) run() {
	defer close(s.events)
	defer func() {
		if s.stream != nil {
			_ = s.stream.Close()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		default:
		}
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				s.setErr(err)
			} else if err := s.ctx.Err(); err != nil {
				s.setErr(err)
			} else {
				s.setErr(nil)
			}
			return
		}
		if err := s.handle(s.stream.Current()); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *streamer) handle(event responses.ResponseStreamEventUnion) error {
	switch ev := event.AsAny().(type) {
	case responses.ResponseTextDeltaEvent:
		if ev.Delta == "" {
			return nil
		}
		return s.emit(model.Event{Type: model.ChunkTypeTextDelta, TextDelta: ev.Delta})

	case responses.ResponseOutputItemDoneEvent:
		switch item := ev.Item.AsAny().(type) {
		case responses.ResponseFunctionToolCall:
			return s.emit(model.Event{
				Type: model.ChunkTypeOutputItem,
				Item: model.FunctionCallOutput{
					CallID: item.CallID, Name: item.Name, Arguments: json.RawMessage(item.Arguments),
				},
			})
		case responses.ResponseOutputMessage:
			for _, c := range item.Content {
				if text, ok := c.AsAny().(responses.ResponseOutputText); ok && text.Text != "" {
					if err := s.emit(model.Event{
						Type: model.ChunkTypeOutputItem,
						Item: model.MessageOutput{Role: model.RoleAssistant, Text: text.Text},
					}); err != nil {
						return err
					}
				}
			}
		}
		return nil

	case responses.ResponseCompletedEvent:
		u := model.Usage{
			InputTokens:  int(ev.Response.Usage.InputTokens),
			OutputTokens: int(ev.Response.Usage.OutputTokens),
			TotalTokens:  int(ev.Response.Usage.TotalTokens),
		}
		s.recordUsage(u)
		if err := s.emit(model.Event{Type: model.ChunkTypeUsage, Usage: &u}); err != nil {
			return err
		}
		return s.emit(model.Event{Type: model.ChunkTypeStop, Response: translateResponse(&ev.Response), Usage: &u})

	default:
		return nil
	}
}

func (s *streamer) emit(ev model.Event) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.events <- ev:
		return nil
	}
}

func (s *streamer) recordUsage(u model.Usage) {
	s.metaMu.Lock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata["usage"] = u
	s.metaMu.Unlock()
}

func (s *streamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	s.finalErr = err
}

func (s *streamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}
