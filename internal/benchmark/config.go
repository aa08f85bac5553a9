package benchmark

import (
	"fmt"
	"time"
)

// BenchmarkConfig describes one benchmark invocation. Exactly one of Requests or
// Duration is meaningful for a given mode.
type BenchmarkConfig struct {
	Requests    int
	Concurrency int
	Duration    time.Duration
	Models      []string
	Streaming   bool
}

// LatencyConfig issues requests calls per model, at most concurrency at a time.
func LatencyConfig(requests, concurrency int, models []string, streaming bool) BenchmarkConfig {
	return BenchmarkConfig{
		Requests:    requests,
		Concurrency: concurrency,
		Models:      models,
		Streaming:   streaming,
	}
}

// ThroughputConfig runs concurrency looping workers per model for duration.
func ThroughputConfig(duration time.Duration, concurrency int, models []string) BenchmarkConfig {
	return BenchmarkConfig{
		Concurrency: concurrency,
		Duration:    duration,
		Models:      models,
	}
}

// StreamingThroughputConfig runs one streaming request per worker.
func StreamingThroughputConfig(concurrency int, models []string) BenchmarkConfig {
	return BenchmarkConfig{
		Requests:    concurrency,
		Concurrency: concurrency,
		Models:      models,
		Streaming:   true,
	}
}

// Validate rejects configurations that cannot be executed.
func (c BenchmarkConfig) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Requests < 0 {
		return fmt.Errorf("requests must be >= 0, got %d", c.Requests)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must be >= 0, got %s", c.Duration)
	}
	if c.Requests == 0 && c.Duration == 0 {
		return fmt.Errorf("either requests or duration must be set")
	}
	return nil
}

// validateLatency additionally requires a request count; latency runs are never time-boxed.
func (c BenchmarkConfig) validateLatency() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Requests < 1 {
		return fmt.Errorf("latency benchmarks need requests >= 1, got %d", c.Requests)
	}
	return nil
}

// validateThroughput additionally enforces one request per worker in streaming mode.
func (c BenchmarkConfig) validateThroughput() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Duration == 0 && c.Requests != c.Concurrency {
		return fmt.Errorf("streaming throughput issues one request per worker: requests (%d) must equal concurrency (%d)", c.Requests, c.Concurrency)
	}
	return nil
}
