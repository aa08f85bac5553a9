// internal/providers/sudo/provider.go
// Package sudo provides a Transport backed by the Sudo API's OpenAI-compatible HTTP endpoints.
package sudo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/mwiater/chatbench/internal/appconfig"
	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/providers"
	"github.com/mwiater/chatbench/internal/util"
)

const (
	modelsPath      = "/v1/models"
	completionsPath = "/v1/chat/completions"
	maxErrorBody    = 512
)

// ErrMalformedResponse marks a response body that does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is returned for any non-2xx response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d %s: %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorBody),
	}
}

// Provider implements providers.Transport over HTTP.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// New constructs a Provider configured with the application's base URL, key, and request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.APIBaseURL(),
		apiKey:  cfg.APIKey,
		timeout: timeout,
	}
}

// ListModels fetches the supported model list.
func (p *Provider) ListModels(ctx context.Context) ([]providers.SupportedModel, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := p.baseURL + modelsPath
	logging.LogRequest("BENCH->API", p.hostIdentifier(), "", map[string]string{"method": http.MethodGet, "url": endpoint})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read models response: %w", err)
	}
	logging.LogRequest("API->BENCH", p.hostIdentifier(), "", body)

	if !isSuccess(resp.StatusCode) {
		return nil, newAPIError(modelsPath, resp.StatusCode, body)
	}
	if err := validateBody(modelsSchema, body); err != nil {
		return nil, fmt.Errorf("get models: %w", err)
	}

	var parsed providers.ModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("get models: %w: %v", ErrMalformedResponse, err)
	}
	return parsed.Data, nil
}

// ChatCompletion issues one non-streaming completion. Time to first byte is taken
// from the client trace when the transport reports it, otherwise from header arrival.
func (p *Provider) ChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, providers.Timing{}, err
	}
	logging.LogRequest("BENCH->API", p.hostIdentifier(), req.Model, body)

	start := time.Now()
	var firstByte time.Duration
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByte = time.Since(start)
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, providers.Timing{}, err
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.Timing{}, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()
	if firstByte == 0 {
		firstByte = time.Since(start)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Timing{}, fmt.Errorf("read chat completion: %w", err)
	}
	total := time.Since(start)
	logging.LogRequest("API->BENCH", p.hostIdentifier(), req.Model, raw)

	if !isSuccess(resp.StatusCode) {
		return nil, providers.Timing{}, newAPIError(completionsPath, resp.StatusCode, raw)
	}
	if err := validateBody(completionSchema, raw); err != nil {
		return nil, providers.Timing{}, fmt.Errorf("chat completion: %w", err)
	}

	var parsed providers.ChatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, providers.Timing{}, fmt.Errorf("chat completion: %w: %v", ErrMalformedResponse, err)
	}

	return &parsed, providers.Timing{
		Total:         total,
		FirstByte:     firstByte,
		RequestBytes:  len(body),
		ResponseBytes: len(raw),
	}, nil
}

// StreamChatCompletion opens a streaming completion. Non-streaming requests are
// upgraded before dispatch. The caller must Close the returned stream.
func (p *Provider) StreamChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (providers.EventStream, error) {
	if !req.IsStreaming() {
		req = req.WithStreaming()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	logging.LogRequest("BENCH->API", p.hostIdentifier(), req.Model, body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("streaming chat completion: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest("API->BENCH", p.hostIdentifier(), req.Model, raw)
		return nil, newAPIError(completionsPath, resp.StatusCode, raw)
	}

	return &eventStream{
		body:   resp.Body,
		reader: NewSSEReader(resp.Body),
		host:   p.hostIdentifier(),
		model:  req.Model,
	}, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// hostIdentifier returns the API host for log lines.
func (p *Provider) hostIdentifier() string {
	if u, err := url.Parse(p.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "sudo-api"
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// eventStream adapts an SSE response body to providers.EventStream.
type eventStream struct {
	body   io.ReadCloser
	reader *SSEReader
	host   string
	model  string
}

func (s *eventStream) Next() (providers.StreamEvent, error) {
	eventType, data, err := s.reader.ReadEvent()
	if err != nil {
		return providers.StreamEvent{}, err
	}
	logging.LogRequest("API->BENCH", s.host, s.model, data)
	return providers.StreamEvent{Event: eventType, Data: string(data)}, nil
}

func (s *eventStream) Close() error {
	return s.body.Close()
}
