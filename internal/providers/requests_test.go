package providers

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestFactoryTokenCaps(t *testing.T) {
	cases := []struct {
		name string
		req  ChatCompletionRequest
		max  int
	}{
		{"generic", NewBenchmarkRequest("m1", false), DefaultMaxTokens},
		{"latency", NewLatencyRequest("m1", false), LatencyMaxTokens},
		{"throughput", NewThroughputRequest("m1", false), ThroughputMaxTokens},
	}
	for _, tc := range cases {
		if tc.req.MaxCompletionTokens == nil || *tc.req.MaxCompletionTokens != tc.max {
			t.Fatalf("%s: expected max tokens %d, got %v", tc.name, tc.max, tc.req.MaxCompletionTokens)
		}
		if tc.req.Model != "m1" {
			t.Fatalf("%s: unexpected model %q", tc.name, tc.req.Model)
		}
		if len(tc.req.Messages) != 1 || tc.req.Messages[0].Role != "user" || tc.req.Messages[0].Content != BenchmarkPrompt {
			t.Fatalf("%s: unexpected messages %+v", tc.name, tc.req.Messages)
		}
		if tc.req.IsStreaming() || tc.req.StreamOptions != nil {
			t.Fatalf("%s: non-streaming request must not set stream fields", tc.name)
		}
	}
	if *NewLatencyRequest("m", false).MaxCompletionTokens >= *NewThroughputRequest("m", false).MaxCompletionTokens {
		t.Fatalf("latency cap must be smaller than throughput cap")
	}
}

func TestStreamingRequestsAskForUsage(t *testing.T) {
	req := NewLatencyRequest("m1", true)
	if !req.IsStreaming() {
		t.Fatalf("expected streaming request")
	}
	if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
		t.Fatalf("expected include_usage, got %+v", req.StreamOptions)
	}

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(body)
	for _, want := range []string{`"stream":true`, `"stream_options":{"include_usage":true}`, `"max_completion_tokens":8`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in %s", want, text)
		}
	}
}

func TestNonStreamingRequestOmitsOptionalFields(t *testing.T) {
	body, err := json.Marshal(NewBenchmarkRequest("m1", false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "stream") {
		t.Fatalf("expected stream fields omitted, got %s", body)
	}
}

func TestWithStreamingDoesNotMutateTemplate(t *testing.T) {
	template := NewThroughputRequest("m1", false)
	upgraded := template.WithStreaming()
	if template.IsStreaming() || template.StreamOptions != nil {
		t.Fatalf("template mutated: %+v", template)
	}
	if !upgraded.IsStreaming() {
		t.Fatalf("expected upgraded request to stream")
	}
	upgraded.Messages[0].Content = "changed"
	if template.Messages[0].Content != BenchmarkPrompt {
		t.Fatalf("messages slice shared with template")
	}
}

func TestCompletionTokens(t *testing.T) {
	var nilResp *ChatCompletionResponse
	if nilResp.CompletionTokens() != 0 {
		t.Fatalf("nil response should report 0")
	}
	n := 42
	resp := &ChatCompletionResponse{Usage: &Usage{CompletionTokens: &n}}
	if resp.CompletionTokens() != 42 {
		t.Fatalf("expected 42, got %d", resp.CompletionTokens())
	}
	if (&ChatCompletionResponse{Usage: &Usage{}}).CompletionTokens() != 0 {
		t.Fatalf("missing completion tokens should report 0")
	}
}
