package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/chatbench/internal/providers"
)

type fakeStream struct {
	events []providers.StreamEvent
	err    error
	closed bool
}

func (f *fakeStream) Next() (providers.StreamEvent, error) {
	if len(f.events) == 0 {
		if f.err != nil {
			return providers.StreamEvent{}, f.err
		}
		return providers.StreamEvent{}, io.EOF
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

type fakeTransport struct {
	completionErr error
	stream        *fakeStream
}

func (f *fakeTransport) ListModels(context.Context) ([]providers.SupportedModel, error) {
	return []providers.SupportedModel{{Name: "m"}}, nil
}

func (f *fakeTransport) ChatCompletion(context.Context, providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error) {
	if f.completionErr != nil {
		return nil, providers.Timing{}, f.completionErr
	}
	return &providers.ChatCompletionResponse{}, providers.Timing{Total: time.Millisecond}, nil
}

func (f *fakeTransport) StreamChatCompletion(context.Context, providers.ChatCompletionRequest) (providers.EventStream, error) {
	return f.stream, nil
}

func TestObserveCountsOutcomes(t *testing.T) {
	m := New()
	m.Observe("m1", KindCompletion, 100*time.Millisecond, nil)
	m.Observe("m1", KindCompletion, 200*time.Millisecond, errors.New("boom"))
	m.Observe("m1", KindCompletion, 300*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("m1", KindCompletion, outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("m1", KindCompletion, outcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestInstrumentedTransport(t *testing.T) {
	m := New()
	inner := &fakeTransport{
		completionErr: errors.New("503"),
		stream: &fakeStream{events: []providers.StreamEvent{
			{Data: `{"choices":[]}`},
			{Data: providers.DoneSentinel},
		}},
	}
	tr := Instrument(inner, m)

	_, err := tr.ListModels(context.Background())
	require.NoError(t, err)
	_, _, err = tr.ChatCompletion(context.Background(), providers.ChatCompletionRequest{Model: "m"})
	require.Error(t, err)

	stream, err := tr.StreamChatCompletion(context.Background(), providers.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight), "stream stays in flight until finished")

	for {
		if _, err := stream.Next(); err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
	}
	require.NoError(t, stream.Close())
	assert.True(t, inner.stream.closed)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("", KindModels, outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindCompletion, outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindStream, outcomeSuccess)), "stream counted once")
}

func TestInstrumentedStreamError(t *testing.T) {
	m := New()
	inner := &fakeTransport{stream: &fakeStream{err: io.ErrUnexpectedEOF}}
	stream, err := Instrument(inner, m).StreamChatCompletion(context.Background(), providers.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_ = stream.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindStream, outcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindStream, outcomeSuccess)))
}

func TestInstrumentedEmptyStreamCountsAsError(t *testing.T) {
	m := New()
	tr := Instrument(&fakeTransport{stream: &fakeStream{}}, m)

	drained, err := tr.StreamChatCompletion(context.Background(), providers.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	_, err = drained.Next()
	assert.ErrorIs(t, err, io.EOF)
	_ = drained.Close()

	tr = Instrument(&fakeTransport{stream: &fakeStream{}}, m)
	abandoned, err := tr.StreamChatCompletion(context.Background(), providers.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	_ = abandoned.Close()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindStream, outcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requests.WithLabelValues("m", KindStream, outcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Observe("m1", KindStream, time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `chatbench_requests_total{kind="stream",model="m1",outcome="success"} 1`)
	assert.Contains(t, body, "chatbench_requests_in_flight 0")
	assert.True(t, strings.Contains(body, "chatbench_request_duration_seconds_bucket"))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, "127.0.0.1:0", New()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
