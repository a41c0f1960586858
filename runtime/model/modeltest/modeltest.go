// Package modeltest provides a scripted fake model.Client for agent-loop
// tests, mirroring the teacher's pattern of test doubles implementing the
// narrow MessagesClient-style interface instead of standing up a real
// provider.
package modeltest

import (
	"context"
	"errors"
	"sync"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/model"
)

// Client is a fake model.Client that returns one scripted Response per call
// to Complete, in order. Stream is unsupported unless StreamEvents is set.
type Client struct {
	mu sync.Mutex

	// Responses is consumed in order by successive Complete calls.
	Responses []*model.Response
	// Errs, if non-nil at an index, is returned instead of the
	// corresponding Responses entry.
	Errs []error
	// Requests records every Request passed to Complete, for assertions.
	Requests []*model.Request

	// StreamEvents, if set, is returned by Stream as a canned event
	// sequence (one call to Stream consumes the whole slice).
	StreamEvents []model.Event

	calls int
}

// NewClient constructs a fake client that returns responses in order.
func NewClient(responses ...*model.Response) *Client {
	return &Client{Responses: responses}
}

// Complete returns the next scripted response or error.
func (c *Client) Complete(_ context.Context, req *model.Request) (*model.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	i := c.calls
	c.calls++
	if i < len(c.Errs) && c.Errs[i] != nil {
		return nil, c.Errs[i]
	}
	if i >= len(c.Responses) {
		return nil, errors.New("modeltest: no scripted response for call")
	}
	return c.Responses[i], nil
}

// Stream returns a fake Streamer replaying StreamEvents.
func (c *Client) Stream(_ context.Context, req *model.Request) (model.Streamer, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	c.mu.Unlock()
	if c.StreamEvents == nil {
		return nil, model.ErrStreamingUnsupported
	}
	return &streamer{events: c.StreamEvents}, nil
}

// CallCount returns the number of Complete invocations observed so far.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type streamer struct {
	events []model.Event
	pos    int
}

func (s *streamer) Recv() (model.Event, error) {
	if s.pos >= len(s.events) {
		return model.Event{}, errStreamDone
	}
	e := s.events[s.pos]
	s.pos++
	return e, nil
}

func (s *streamer) Close() error             { return nil }
func (s *streamer) Metadata() map[string]any { return nil }

var errStreamDone = errors.New("modeltest: stream exhausted")

// ErrStreamDone is returned by Recv once all scripted events are consumed,
// analogous to io.EOF.
var ErrStreamDone = errStreamDone
