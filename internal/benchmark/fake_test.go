package benchmark

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwiater/chatbench/internal/providers"
)

// sliceStream replays events and then returns err, or io.EOF when err is nil.
type sliceStream struct {
	events []providers.StreamEvent
	err    error
	closed atomic.Bool
}

func (s *sliceStream) Next() (providers.StreamEvent, error) {
	if len(s.events) == 0 {
		if s.err != nil {
			return providers.StreamEvent{}, s.err
		}
		return providers.StreamEvent{}, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *sliceStream) Close() error {
	s.closed.Store(true)
	return nil
}

func dataEvents(payloads ...string) []providers.StreamEvent {
	events := make([]providers.StreamEvent, len(payloads))
	for i, p := range payloads {
		events[i] = providers.StreamEvent{Data: p}
	}
	return events
}

// fakeTransport counts calls and tracks the peak number of concurrent calls.
type fakeTransport struct {
	mu              sync.Mutex
	models          []providers.SupportedModel
	listErr         error
	listCalls       int
	completionCalls int
	streamCalls     int

	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	completion func(call int, req providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error)
	stream     func(call int, req providers.ChatCompletionRequest) (providers.EventStream, error)
}

func newFakeTransport(names ...string) *fakeTransport {
	f := &fakeTransport{}
	for i, name := range names {
		f.models = append(f.models, providers.SupportedModel{Name: name, Provider: "fake", ModelID: i + 1})
	}
	return f
}

func (f *fakeTransport) enter() func() {
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeTransport) ListModels(context.Context) ([]providers.SupportedModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.models, f.listErr
}

func (f *fakeTransport) ChatCompletion(_ context.Context, req providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error) {
	defer f.enter()()
	f.mu.Lock()
	call := f.completionCalls
	f.completionCalls++
	f.mu.Unlock()

	if f.completion != nil {
		return f.completion(call, req)
	}
	tokens := 10
	return &providers.ChatCompletionResponse{Usage: &providers.Usage{CompletionTokens: &tokens}},
		providers.Timing{Total: 10 * time.Millisecond, FirstByte: 5 * time.Millisecond}, nil
}

// StreamChatCompletion counts the stream as in flight until it is closed.
func (f *fakeTransport) StreamChatCompletion(_ context.Context, req providers.ChatCompletionRequest) (providers.EventStream, error) {
	release := f.enter()
	f.mu.Lock()
	call := f.streamCalls
	f.streamCalls++
	f.mu.Unlock()

	var (
		stream providers.EventStream
		err    error
	)
	if f.stream != nil {
		stream, err = f.stream(call, req)
	} else {
		stream = &sliceStream{events: dataEvents(
			`{"choices":[{"delta":{"content":"Hello there"}}]}`,
			providers.DoneSentinel,
		)}
	}
	if err != nil || stream == nil {
		release()
		return stream, err
	}
	return &heldStream{EventStream: stream, release: release}, nil
}

// heldStream keeps its transport slot occupied until Close.
type heldStream struct {
	providers.EventStream
	once    sync.Once
	release func()
}

func (h *heldStream) Close() error {
	err := h.EventStream.Close()
	h.once.Do(h.release)
	return err
}

func (f *fakeTransport) calls() (completion, stream int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completionCalls, f.streamCalls
}
