// internal/metrics/collector.go
// Package metrics accumulates per-request measurements for one benchmark run and
// derives per-model latency, streaming, and throughput statistics from them.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector is an append-only store of measurements for a single run.
type Collector struct {
	mutex      sync.Mutex
	latency    []LatencyMetric
	streaming  []StreamingMetric
	throughput []ThroughputMetric
	errors     []RequestError
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) AddLatencyMetric(m LatencyMetric) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.latency = append(c.latency, m)
}

func (c *Collector) AddStreamingMetric(m StreamingMetric) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.streaming = append(c.streaming, m)
}

func (c *Collector) AddThroughputMetric(m ThroughputMetric) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.throughput = append(c.throughput, m)
}

// AddError records one failed task for model.
func (c *Collector) AddError(model, message string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, RequestError{Model: model, Message: message})
}

// Errors returns every recorded error message in insertion order.
func (c *Collector) Errors() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]string, len(c.errors))
	for i, e := range c.errors {
		out[i] = e.Message
	}
	return out
}

// ErrorCount returns the number of errors recorded against model.
func (c *Collector) ErrorCount(model string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.errorCountLocked(model)
}

func (c *Collector) errorCountLocked(model string) int {
	n := 0
	for _, e := range c.errors {
		if e.Model == model {
			n++
		}
	}
	return n
}

// Models returns the sorted set of model names seen in any sequence.
func (c *Collector) Models() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	seen := make(map[string]struct{})
	for _, m := range c.latency {
		seen[m.Model] = struct{}{}
	}
	for _, m := range c.streaming {
		seen[m.Model] = struct{}{}
	}
	for _, m := range c.throughput {
		seen[m.Model] = struct{}{}
	}
	for _, e := range c.errors {
		seen[e.Model] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CalculateLatencyStats summarizes the latency samples recorded for model. The
// boolean is false when there are none.
func (c *Collector) CalculateLatencyStats(model string) (LatencyStats, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var (
		running RunningStat
		hist    = newLatencyHistogram()
		ttfbs   []time.Duration
	)
	for _, m := range c.latency {
		if m.Model != model {
			continue
		}
		running.Add(millis(m.TotalDuration))
		hist.Record(m.TotalDuration)
		ttfbs = append(ttfbs, m.TimeToFirstByte)
	}
	if running.Count == 0 {
		return LatencyStats{}, false
	}

	minLatency := fromMillis(running.Min)
	maxLatency := fromMillis(running.Max)
	return LatencyStats{
		Model:        model,
		RequestCount: int(running.Count),
		MinLatency:   minLatency,
		MaxLatency:   maxLatency,
		MeanLatency:  fromMillis(running.Mean),
		StdDev:       fromMillis(running.StdDev()),
		P50Latency:   clampDuration(hist.Quantile(50), minLatency, maxLatency),
		P95Latency:   clampDuration(hist.Quantile(95), minLatency, maxLatency),
		P99Latency:   clampDuration(hist.Quantile(99), minLatency, maxLatency),
		MeanTTFB:     meanDuration(ttfbs),
		P95TTFB:      sortedPercentile(ttfbs, 95),
		ErrorRate:    errorRate(c.errorCountLocked(model), int(running.Count)),
	}, true
}

// CalculateStreamingStats summarizes the streaming samples recorded for model.
// Tokens per second is duration-weighted across samples.
func (c *Collector) CalculateStreamingStats(model string) (StreamingStats, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var (
		count         int
		ttfcs         []time.Duration
		totalChunks   int
		totalTokens   int
		totalDuration time.Duration
	)
	for _, m := range c.streaming {
		if m.Model != model {
			continue
		}
		count++
		if m.TimeToFirstChunk != nil {
			ttfcs = append(ttfcs, *m.TimeToFirstChunk)
		}
		totalChunks += m.ChunkCount
		totalTokens += m.TotalTokens
		totalDuration += m.TotalDuration
	}
	if count == 0 {
		return StreamingStats{}, false
	}

	var tps float64
	if totalDuration > 0 {
		tps = float64(totalTokens) / totalDuration.Seconds()
	}
	return StreamingStats{
		Model:                model,
		RequestCount:         count,
		MeanTimeToFirstChunk: meanDuration(ttfcs),
		P95TimeToFirstChunk:  sortedPercentile(ttfcs, 95),
		MeanTokensPerSecond:  tps,
		TotalChunks:          totalChunks,
		ErrorRate:            errorRate(c.errorCountLocked(model), count),
	}, true
}

// CalculateThroughputStats summarizes the throughput samples recorded for model.
// Rates are the arithmetic mean of each sample's own rate.
func (c *Collector) CalculateThroughputStats(model string) (ThroughputStats, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var (
		count  int
		stats  = ThroughputStats{Model: model}
		rpsSum float64
		tpsSum float64
	)
	for _, m := range c.throughput {
		if m.Model != model {
			continue
		}
		count++
		stats.TestDuration += m.Duration
		stats.SuccessfulRequests += m.SuccessfulRequests
		stats.FailedRequests += m.FailedRequests
		rpsSum += m.RequestsPerSecond
		tpsSum += m.TokensPerSecond
	}
	if count == 0 {
		return ThroughputStats{}, false
	}

	stats.TotalRequests = stats.SuccessfulRequests + stats.FailedRequests
	stats.MeanRequestsPerSecond = rpsSum / float64(count)
	stats.MeanTokensPerSecond = tpsSum / float64(count)
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests) * 100
	}
	return stats, true
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
