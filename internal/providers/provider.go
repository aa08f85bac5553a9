// internal/providers/provider.go

// Package providers defines the request and response shapes of the chat-completion API
// and the Transport abstraction the benchmark executor drives. Concrete transports live
// in sub-packages (e.g., sudo).
package providers

import (
	"context"
	"time"
)

// DoneSentinel is the payload of the final server-sent event of a completion stream.
const DoneSentinel = "[DONE]"

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamOptions asks the API to append a usage block to the final streamed event.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Messages            []ChatMessage  `json:"messages"`
	Model               string         `json:"model"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Stream              *bool          `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
}

// IsStreaming reports whether the request asks for a server-sent event stream.
func (r ChatCompletionRequest) IsStreaming() bool {
	return r.Stream != nil && *r.Stream
}

// Choice is one completion alternative. Non-streaming responses fill Message,
// streamed chunks fill Delta.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason,omitempty"`
}

// Usage is the token accounting block.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      int  `json:"total_tokens"`
}

// ChatCompletionResponse is the body of a non-streaming completion.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// CompletionTokens returns the reported completion token count, or 0 when absent.
func (r *ChatCompletionResponse) CompletionTokens() int {
	if r == nil || r.Usage == nil || r.Usage.CompletionTokens == nil {
		return 0
	}
	return *r.Usage.CompletionTokens
}

// SupportedModel is one entry of GET /v1/models.
type SupportedModel struct {
	Name      string  `json:"model_name"`
	Provider  string  `json:"model_provider"`
	CreatedAt *string `json:"created_at,omitempty"`
	ModelID   int     `json:"sudo_model_id"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Data []SupportedModel `json:"data"`
}

// Timing captures client-side measurements of one non-streaming call.
type Timing struct {
	Total         time.Duration
	FirstByte     time.Duration
	RequestBytes  int
	ResponseBytes int
}

// StreamEvent is one decoded server-sent event.
type StreamEvent struct {
	Event string
	Data  string
}

// EventStream yields the events of one streaming completion. Next returns io.EOF
// once the server closes the stream.
type EventStream interface {
	Next() (StreamEvent, error)
	Close() error
}

// Transport is the capability the benchmark executor calls through.
type Transport interface {
	// ListModels returns the models the API accepts, in server order.
	ListModels(ctx context.Context) ([]SupportedModel, error)
	// ChatCompletion issues one non-streaming request and reports its timing.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, Timing, error)
	// StreamChatCompletion opens a server-sent event stream for req.
	StreamChatCompletion(ctx context.Context, req ChatCompletionRequest) (EventStream, error)
}
