package benchmark

import (
	"context"
	"encoding/json"

	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/metrics"
	"github.com/mwiater/chatbench/internal/providers"
)

// LatencyResult is the per-model outcome of one latency run. Latency is filled for
// regular runs and Streaming for streaming runs.
type LatencyResult struct {
	RunID        string
	Streaming    bool
	Latency      []metrics.LatencyStats
	Stream       []metrics.StreamingStats
	Insufficient []string
	Errors       []string
}

// RunLatency benchmarks each model in turn: warm-up, then cfg.Requests calls at most
// cfg.Concurrency at a time. Models with no successful call are reported as
// insufficient and do not fail the run.
func (r *Runner) RunLatency(ctx context.Context, cfg BenchmarkConfig) (*LatencyResult, error) {
	if err := cfg.validateLatency(); err != nil {
		return nil, err
	}
	models, err := r.resolveModels(cfg.Models, 0)
	if err != nil {
		return nil, err
	}

	result := &LatencyResult{RunID: newRunID(), Streaming: cfg.Streaming}
	collector := newCollector()
	mode := "regular"
	if cfg.Streaming {
		mode = "streaming"
	}
	logging.LogEvent("[%s] Running %s latency benchmark on %d models", result.RunID, mode, len(models))

	for _, model := range models {
		logging.LogEvent("[%s] Testing model: %s", result.RunID, model)
		r.Warmup(ctx, model, r.warmup)

		var ok bool
		if cfg.Streaming {
			ok = r.streamingLatency(ctx, collector, model, cfg, result)
		} else {
			ok = r.regularLatency(ctx, collector, model, cfg, result)
		}
		if !ok {
			logging.LogError("[%s] no successful requests for model %s", result.RunID, model)
			result.Insufficient = append(result.Insufficient, model)
		}
	}
	result.Errors = collector.Errors()

	if cfg.Streaming {
		r.printer.Streaming(result.Stream)
	} else {
		r.printer.Latency(result.Latency)
	}
	for _, model := range result.Insufficient {
		r.printer.Insufficient(model)
	}
	r.printer.Errors(result.Errors)
	return result, nil
}

func (r *Runner) regularLatency(ctx context.Context, collector *metrics.Collector, model string, cfg BenchmarkConfig, result *LatencyResult) bool {
	results := runTasks(ctx, cfg.Requests, cfg.Concurrency, r.limiter, func(ctx context.Context) (metrics.LatencyMetric, error) {
		_, timing, err := r.transport.ChatCompletion(ctx, providers.NewLatencyRequest(model, false))
		if err != nil {
			return metrics.LatencyMetric{}, err
		}
		return metrics.LatencyMetric{
			Model:           model,
			TotalDuration:   timing.Total,
			TimeToFirstByte: timing.FirstByte,
			RequestSize:     timing.RequestBytes,
			ResponseSize:    timing.ResponseBytes,
		}, nil
	})

	for _, res := range results {
		if res.err != nil {
			logging.LogError("[%s] request failed for model %s: %v", result.RunID, model, res.err)
			collector.AddError(model, res.err.Error())
			continue
		}
		collector.AddLatencyMetric(res.metric)
	}

	stats, ok := collector.CalculateLatencyStats(model)
	if ok {
		result.Latency = append(result.Latency, stats)
	}
	return ok
}

func (r *Runner) streamingLatency(ctx context.Context, collector *metrics.Collector, model string, cfg BenchmarkConfig, result *LatencyResult) bool {
	results := runTasks(ctx, cfg.Requests, cfg.Concurrency, r.limiter, func(ctx context.Context) (metrics.StreamingMetric, error) {
		outcome, size, err := r.streamingCall(ctx, providers.NewLatencyRequest(model, true))
		if err != nil {
			return metrics.StreamingMetric{}, err
		}
		return metrics.StreamingMetric{
			Model:            model,
			TotalDuration:    outcome.TotalDuration,
			TimeToFirstChunk: outcome.TimeToFirstChunk,
			ChunkCount:       outcome.ChunkCount,
			TotalTokens:      outcome.TotalTokens,
			RequestSize:      size,
		}, nil
	})

	for _, res := range results {
		if res.err != nil {
			logging.LogError("[%s] streaming request failed for model %s: %v", result.RunID, model, res.err)
			collector.AddError(model, res.err.Error())
			continue
		}
		collector.AddStreamingMetric(res.metric)
	}

	stats, ok := collector.CalculateStreamingStats(model)
	if ok {
		result.Stream = append(result.Stream, stats)
	}
	return ok
}

func requestSize(req providers.ChatCompletionRequest) int {
	body, err := json.Marshal(req)
	if err != nil {
		return 0
	}
	return len(body)
}
