package providers

const (
	// BenchmarkPrompt is the single user message every benchmark request carries.
	BenchmarkPrompt = "Write a short paragraph about the benefits of API performance benchmarking."

	// DefaultMaxTokens caps generic benchmark requests.
	DefaultMaxTokens = 150
	// LatencyMaxTokens keeps generation short so first-byte time dominates.
	LatencyMaxTokens = 8
	// ThroughputMaxTokens lets generation run long enough to amortize per-call overhead.
	ThroughputMaxTokens = 512
)

// NewChatRequest builds a single-message user request for model.
func NewChatRequest(model, message string, maxTokens int, streaming bool) ChatCompletionRequest {
	req := ChatCompletionRequest{
		Messages: []ChatMessage{{
			Role:    "user",
			Content: message,
		}},
		Model:               model,
		MaxCompletionTokens: intPtr(maxTokens),
	}
	if streaming {
		return req.WithStreaming()
	}
	return req
}

// NewBenchmarkRequest builds the generic benchmark request.
func NewBenchmarkRequest(model string, streaming bool) ChatCompletionRequest {
	return NewChatRequest(model, BenchmarkPrompt, DefaultMaxTokens, streaming)
}

// NewLatencyRequest builds a request with a small output cap.
func NewLatencyRequest(model string, streaming bool) ChatCompletionRequest {
	return NewChatRequest(model, BenchmarkPrompt, LatencyMaxTokens, streaming)
}

// NewThroughputRequest builds a request with a large output cap.
func NewThroughputRequest(model string, streaming bool) ChatCompletionRequest {
	return NewChatRequest(model, BenchmarkPrompt, ThroughputMaxTokens, streaming)
}

// WithStreaming returns a copy of r upgraded to a streaming call that also asks
// for exact usage accounting on the final event.
func (r ChatCompletionRequest) WithStreaming() ChatCompletionRequest {
	out := r
	out.Messages = append([]ChatMessage(nil), r.Messages...)
	stream := true
	out.Stream = &stream
	out.StreamOptions = &StreamOptions{IncludeUsage: true}
	return out
}

func intPtr(v int) *int {
	return &v
}
