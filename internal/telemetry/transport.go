package telemetry

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mwiater/chatbench/internal/providers"
)

// Transport is a decorator that wraps a providers.Transport to record request metrics.
type Transport struct {
	wrapped providers.Transport
	metrics *Metrics
}

// Instrument wraps t so that every call is counted and timed in m.
func Instrument(t providers.Transport, m *Metrics) *Transport {
	return &Transport{wrapped: t, metrics: m}
}

// ListModels passes the call through to the wrapped transport.
func (t *Transport) ListModels(ctx context.Context) ([]providers.SupportedModel, error) {
	done := t.metrics.Begin("", KindModels)
	models, err := t.wrapped.ListModels(ctx)
	done(err)
	return models, err
}

// ChatCompletion passes the call through to the wrapped transport.
func (t *Transport) ChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error) {
	done := t.metrics.Begin(req.Model, KindCompletion)
	resp, timing, err := t.wrapped.ChatCompletion(ctx, req)
	done(err)
	return resp, timing, err
}

// StreamChatCompletion keeps the request in flight until the stream ends or is closed.
func (t *Transport) StreamChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (providers.EventStream, error) {
	done := t.metrics.Begin(req.Model, KindStream)
	stream, err := t.wrapped.StreamChatCompletion(ctx, req)
	if err != nil {
		done(err)
		return nil, err
	}
	return &instrumentedStream{EventStream: stream, done: done}, nil
}

// errEmptyStream marks a stream that ended or was closed before yielding any event.
var errEmptyStream = errors.New("stream ended without events")

type instrumentedStream struct {
	providers.EventStream
	once   sync.Once
	events int
	done   func(error)
}

func (s *instrumentedStream) Next() (providers.StreamEvent, error) {
	ev, err := s.EventStream.Next()
	switch {
	case err == nil:
		s.events++
	case errors.Is(err, io.EOF):
		s.finish(s.emptyErr())
	default:
		s.finish(err)
	}
	return ev, err
}

func (s *instrumentedStream) Close() error {
	err := s.EventStream.Close()
	s.finish(s.emptyErr())
	return err
}

func (s *instrumentedStream) emptyErr() error {
	if s.events == 0 {
		return errEmptyStream
	}
	return nil
}

func (s *instrumentedStream) finish(err error) {
	s.once.Do(func() { s.done(err) })
}
