// internal/benchmark/runner.go
// Package benchmark drives latency and throughput benchmarks against a chat-completion
// Transport under a fixed concurrency ceiling and summarizes the results per model.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/metrics"
	"github.com/mwiater/chatbench/internal/providers"
	"github.com/mwiater/chatbench/internal/report"
)

// DefaultWarmupRequests is the number of unrecorded calls made per model before a latency run.
const DefaultWarmupRequests = 2

// ErrUnsupportedModel is returned when a requested model is not in the API's model list.
var ErrUnsupportedModel = errors.New("unsupported model")

var (
	newRunID     = uuid.NewString
	newCollector = metrics.NewCollector
)

// Runner executes benchmark phases. It is safe to run phases sequentially on one Runner.
type Runner struct {
	transport  providers.Transport
	models     []providers.SupportedModel
	printer    *report.Printer
	warmup     int
	limiter    *rate.Limiter
	modelLimit int
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput directs the report to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.printer = report.New(w)
	}
}

// WithWarmup sets the number of warm-up calls per model; 0 disables warm-up.
func WithWarmup(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.warmup = n
		}
	}
}

// WithRateLimit caps request dispatch at perSecond across all workers; 0 disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithThroughputModelLimit restricts throughput runs without named models to the first n known models.
func WithThroughputModelLimit(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.modelLimit = n
		}
	}
}

// NewRunner fetches the supported model list once and returns a ready Runner.
func NewRunner(ctx context.Context, transport providers.Transport, opts ...Option) (*Runner, error) {
	r := &Runner{
		transport: transport,
		printer:   report.New(os.Stdout),
		warmup:    DefaultWarmupRequests,
	}
	for _, opt := range opts {
		opt(r)
	}

	models, err := r.transport.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch supported models: %w", err)
	}
	r.models = models
	logging.LogEvent("Loaded %d supported models", len(models))
	return r, nil
}

// ListModels returns the supported model names in server order.
func (r *Runner) ListModels() []string {
	names := make([]string, len(r.models))
	for i, m := range r.models {
		names[i] = m.Name
	}
	return names
}

// PrintModels writes the numbered model list to the report output.
func (r *Runner) PrintModels() {
	r.printer.Models(r.models)
}

// Warmup issues n sequential latency requests for model. Outcomes are logged and
// never recorded.
func (r *Runner) Warmup(ctx context.Context, model string, n int) {
	for i := 0; i < n; i++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
		}
		_, timing, err := r.transport.ChatCompletion(ctx, providers.NewLatencyRequest(model, false))
		if err != nil {
			logging.LogDebug("warm-up %d/%d for %s failed: %v", i+1, n, model, err)
			continue
		}
		logging.LogDebug("warm-up %d/%d for %s took %s", i+1, n, model, timing.Total)
	}
}

// RunComprehensive runs non-streaming latency, streaming latency, and throughput
// in that order. A failing phase does not stop later phases; all phase errors are
// returned joined.
func (r *Runner) RunComprehensive(ctx context.Context, latencyRequests, concurrency int, duration time.Duration) error {
	logging.LogEvent("Starting comprehensive benchmark suite")

	throughputCfg := StreamingThroughputConfig(concurrency, nil)
	if duration > 0 {
		throughputCfg = ThroughputConfig(duration, concurrency, nil)
	}

	phases := []struct {
		name string
		run  func() error
	}{
		{"regular latency", func() error {
			_, err := r.RunLatency(ctx, LatencyConfig(latencyRequests, concurrency, nil, false))
			return err
		}},
		{"streaming latency", func() error {
			_, err := r.RunLatency(ctx, LatencyConfig(latencyRequests, concurrency, nil, true))
			return err
		}},
		{"throughput", func() error {
			_, err := r.RunThroughput(ctx, throughputCfg)
			return err
		}},
	}

	var errs []error
	for i, phase := range phases {
		if i > 0 {
			r.printer.Separator()
		}
		logging.LogEvent("Running %s benchmarks...", phase.name)
		if err := phase.run(); err != nil {
			logging.LogError("%s benchmark failed: %v", phase.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", phase.name, err))
		}
	}

	logging.LogEvent("Comprehensive benchmark suite completed")
	return errors.Join(errs...)
}

// resolveModels returns the explicitly requested models after checking each one
// against the supported list, or the known models (first limit of them when
// limit > 0) when none are requested.
func (r *Runner) resolveModels(requested []string, limit int) ([]string, error) {
	if len(requested) == 0 {
		names := r.ListModels()
		if limit > 0 && limit < len(names) {
			names = names[:limit]
		}
		return names, nil
	}

	known := make(map[string]struct{}, len(r.models))
	for _, m := range r.models {
		known[m.Name] = struct{}{}
	}
	for _, name := range requested {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
		}
	}
	return requested, nil
}

// streamingCall issues one streaming request and drains it.
func (r *Runner) streamingCall(ctx context.Context, req providers.ChatCompletionRequest) (StreamOutcome, int, error) {
	req = req.WithStreaming()
	size := requestSize(req)

	start := time.Now()
	stream, err := r.transport.StreamChatCompletion(ctx, req)
	if err != nil {
		return StreamOutcome{}, size, err
	}
	defer stream.Close()

	outcome, err := ConsumeStream(stream, start)
	if err != nil {
		return StreamOutcome{}, size, fmt.Errorf("model %s: %w", req.Model, err)
	}
	return outcome, size, nil
}
