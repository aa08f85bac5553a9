package benchmark

import (
	"context"
	"time"

	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/metrics"
	"github.com/mwiater/chatbench/internal/providers"
)

// ThroughputResult is the per-model outcome of one throughput run.
type ThroughputResult struct {
	RunID        string
	Stats        []metrics.ThroughputStats
	Insufficient []string
	Errors       []string
}

// RunThroughput benchmarks each model with cfg.Concurrency workers. With a positive
// Duration every worker loops on non-streaming requests until the deadline;
// otherwise every worker issues a single streaming request.
func (r *Runner) RunThroughput(ctx context.Context, cfg BenchmarkConfig) (*ThroughputResult, error) {
	if err := cfg.validateThroughput(); err != nil {
		return nil, err
	}
	models, err := r.resolveModels(cfg.Models, r.modelLimit)
	if err != nil {
		return nil, err
	}

	result := &ThroughputResult{RunID: newRunID()}
	collector := newCollector()
	if cfg.Duration > 0 {
		logging.LogEvent("[%s] Running throughput benchmark for %s on %d models", result.RunID, cfg.Duration, len(models))
	} else {
		logging.LogEvent("[%s] Running streaming throughput benchmark on %d models", result.RunID, len(models))
	}

	for _, model := range models {
		logging.LogEvent("[%s] Testing throughput for model: %s", result.RunID, model)
		if cfg.Duration > 0 {
			r.loopThroughput(ctx, collector, model, cfg, result.RunID)
		} else {
			r.streamingThroughput(ctx, collector, model, cfg, result.RunID)
		}

		stats, ok := collector.CalculateThroughputStats(model)
		if !ok {
			logging.LogError("[%s] no successful throughput tests for model %s", result.RunID, model)
			result.Insufficient = append(result.Insufficient, model)
			continue
		}
		result.Stats = append(result.Stats, stats)
	}
	result.Errors = collector.Errors()

	r.printer.Throughput(result.Stats)
	for _, model := range result.Insufficient {
		r.printer.Insufficient(model)
	}
	r.printer.Errors(result.Errors)
	return result, nil
}

func (r *Runner) loopThroughput(ctx context.Context, collector *metrics.Collector, model string, cfg BenchmarkConfig, runID string) {
	results := runTasks(ctx, cfg.Concurrency, cfg.Concurrency, nil, func(ctx context.Context) (metrics.ThroughputMetric, error) {
		return r.throughputWorker(ctx, model, cfg.Duration), nil
	})
	for _, res := range results {
		if res.err != nil {
			logging.LogError("[%s] throughput worker failed for model %s: %v", runID, model, res.err)
			collector.AddError(model, res.err.Error())
			continue
		}
		collector.AddThroughputMetric(res.metric)
	}
}

// throughputWorker issues non-streaming requests back to back until duration has
// elapsed. The call in flight at the deadline is allowed to finish.
func (r *Runner) throughputWorker(ctx context.Context, model string, duration time.Duration) metrics.ThroughputMetric {
	start := time.Now()
	var successful, failed int64
	var tokens int

	for time.Since(start) < duration && ctx.Err() == nil {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}
		resp, _, err := r.transport.ChatCompletion(ctx, providers.NewThroughputRequest(model, false))
		if err != nil {
			failed++
			logging.LogDebug("throughput request failed for model %s: %v", model, err)
			continue
		}
		successful++
		tokens += resp.CompletionTokens()
	}

	elapsed := time.Since(start)
	metric := metrics.ThroughputMetric{
		Model:              model,
		Duration:           elapsed,
		SuccessfulRequests: successful,
		FailedRequests:     failed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		metric.TokensPerSecond = float64(tokens) / secs
		metric.RequestsPerSecond = float64(successful) / secs
	}
	return metric
}

func (r *Runner) streamingThroughput(ctx context.Context, collector *metrics.Collector, model string, cfg BenchmarkConfig, runID string) {
	results := runTasks(ctx, cfg.Requests, cfg.Concurrency, r.limiter, func(ctx context.Context) (metrics.ThroughputMetric, error) {
		outcome, _, err := r.streamingCall(ctx, providers.NewThroughputRequest(model, true))
		if err != nil {
			return metrics.ThroughputMetric{}, err
		}
		metric := metrics.ThroughputMetric{
			Model:              model,
			Duration:           outcome.TotalDuration,
			SuccessfulRequests: 1,
		}
		if gen := outcome.GenerationTime(); gen > 0 {
			metric.TokensPerSecond = float64(outcome.TotalTokens) / gen.Seconds()
		}
		if outcome.TotalDuration > 0 {
			metric.RequestsPerSecond = 1 / outcome.TotalDuration.Seconds()
		}
		return metric, nil
	})

	for _, res := range results {
		if res.err != nil {
			logging.LogError("[%s] streaming throughput request failed for model %s: %v", runID, model, res.err)
			collector.AddError(model, res.err.Error())
			collector.AddThroughputMetric(metrics.ThroughputMetric{Model: model, FailedRequests: 1})
			continue
		}
		collector.AddThroughputMetric(res.metric)
	}
}
