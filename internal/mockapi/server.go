// internal/mockapi/server.go
// Package mockapi serves a local stand-in for the chat-completion API so benchmarks
// can be run end to end without credentials or network access.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/mwiater/chatbench/internal/providers"
)

const maxRequestBytes = 1 << 20

// Model is one entry served by GET /v1/models.
type Model struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
}

// Config controls the mock server's model list, pacing and failure injection.
type Config struct {
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	APIKey       string  `yaml:"api_key"`
	Models       []Model `yaml:"models"`
	LatencyMS    int     `yaml:"latency_ms"`
	ChunkDelayMS int     `yaml:"chunk_delay_ms"`
	Chunks       int     `yaml:"chunks"`
	FailEvery    int     `yaml:"fail_every"`
}

// LoadConfig reads a YAML config. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8089
	}
	if len(c.Models) == 0 {
		c.Models = []Model{{Name: "mock-small", Provider: "mock"}, {Name: "mock-large", Provider: "mock"}}
	}
	if c.Chunks <= 0 {
		c.Chunks = 5
	}
}

func (c Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range (0..65535): %d", c.Port)
	}
	if c.LatencyMS < 0 || c.ChunkDelayMS < 0 || c.FailEvery < 0 {
		return errors.New("latency_ms, chunk_delay_ms and fail_every must be >= 0")
	}
	for _, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			return errors.New("model name is required")
		}
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ErrResp is the error body returned for rejected requests.
type ErrResp struct {
	Error string `json:"error"`
}

// Server answers model-list and completion requests from its Config.
type Server struct {
	cfg   Config
	calls atomic.Int64
}

// New returns a Server for cfg.
func New(cfg Config) *Server {
	cfg.applyDefaults()
	return &Server{cfg: cfg}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/models", s.authorized(s.handleModels))
	mux.HandleFunc("POST /v1/chat/completions", s.authorized(s.handleCompletion))
	return mux
}

// Calls returns the number of completion requests received.
func (s *Server) Calls() int64 {
	return s.calls.Load()
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.APIKey {
			writeJSON(w, http.StatusUnauthorized, ErrResp{Error: "invalid API key"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	resp := providers.ModelsResponse{Data: make([]providers.SupportedModel, len(s.cfg.Models))}
	for i, m := range s.cfg.Models {
		resp.Data[i] = providers.SupportedModel{Name: m.Name, Provider: m.Provider, ModelID: i + 1}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	call := s.calls.Add(1)

	var req providers.ChatCompletionRequest
	if err := decodeJSON(w, r, &req, maxRequestBytes); err != nil {
		log.Printf("mockapi decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !s.knownModel(req.Model) {
		writeJSON(w, http.StatusNotFound, ErrResp{Error: "unknown model: " + req.Model})
		return
	}
	if s.cfg.FailEvery > 0 && call%int64(s.cfg.FailEvery) == 0 {
		writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "injected failure"})
		return
	}

	if !sleepCtx(r, time.Duration(s.cfg.LatencyMS)*time.Millisecond) {
		return
	}

	words := s.words(req)
	if req.IsStreaming() {
		s.stream(w, r, req, words)
		return
	}

	tokens := len(words)
	finish := "stop"
	writeJSON(w, http.StatusOK, providers.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []providers.Choice{{
			Message:      &providers.ChatMessage{Role: "assistant", Content: strings.Join(words, "")},
			FinishReason: &finish,
		}},
		Usage: &providers.Usage{CompletionTokens: &tokens, TotalTokens: tokens},
	})
}

// stream writes one chunk per word, an optional usage event, then [DONE].
func (s *Server) stream(w http.ResponseWriter, r *http.Request, req providers.ChatCompletionRequest, words []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	id := "chatcmpl-" + uuid.NewString()
	for i, word := range words {
		if i > 0 && !sleepCtx(r, time.Duration(s.cfg.ChunkDelayMS)*time.Millisecond) {
			return
		}
		writeEvent(w, providers.ChatCompletionResponse{
			ID:      id,
			Object:  "chat.completion.chunk",
			Model:   req.Model,
			Choices: []providers.Choice{{Delta: &providers.ChatMessage{Content: word}}},
		})
		flusher.Flush()
	}

	if req.StreamOptions != nil && req.StreamOptions.IncludeUsage {
		tokens := len(words)
		writeEvent(w, providers.ChatCompletionResponse{
			ID:      id,
			Object:  "chat.completion.chunk",
			Model:   req.Model,
			Choices: []providers.Choice{},
			Usage:   &providers.Usage{CompletionTokens: &tokens, TotalTokens: tokens},
		})
	}
	fmt.Fprintf(w, "data: %s\n\n", providers.DoneSentinel)
	flusher.Flush()
}

// words returns the reply, one word per token, capped by max_completion_tokens.
func (s *Server) words(req providers.ChatCompletionRequest) []string {
	n := s.cfg.Chunks
	if req.MaxCompletionTokens != nil && *req.MaxCompletionTokens < n {
		n = *req.MaxCompletionTokens
	}
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d ", i+1)
	}
	return words
}

func (s *Server) knownModel(name string) bool {
	for _, m := range s.cfg.Models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// sleepCtx waits for d and reports false if the client went away first.
func sleepCtx(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeEvent(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
