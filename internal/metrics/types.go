// internal/metrics/types.go
package metrics

import "time"

// LatencyMetric is one completed latency-mode call.
type LatencyMetric struct {
	Model           string
	TotalDuration   time.Duration
	TimeToFirstByte time.Duration
	RequestSize     int
	ResponseSize    int
}

// StreamingMetric is one completed streaming call. TimeToFirstChunk is nil when no
// event arrived.
type StreamingMetric struct {
	Model            string
	TotalDuration    time.Duration
	TimeToFirstChunk *time.Duration
	ChunkCount       int
	TotalTokens      int
	RequestSize      int
}

// ThroughputMetric is one worker's contribution to a throughput run.
type ThroughputMetric struct {
	Model              string
	Duration           time.Duration
	SuccessfulRequests int64
	FailedRequests     int64
	TokensPerSecond    float64
	RequestsPerSecond  float64
}

// RequestError is one failed task.
type RequestError struct {
	Model   string
	Message string
}

// LatencyStats summarizes the latency samples of one model.
type LatencyStats struct {
	Model        string
	RequestCount int
	MinLatency   time.Duration
	MaxLatency   time.Duration
	MeanLatency  time.Duration
	StdDev       time.Duration
	P50Latency   time.Duration
	P95Latency   time.Duration
	P99Latency   time.Duration
	MeanTTFB     time.Duration
	P95TTFB      time.Duration
	ErrorRate    float64
}

// StreamingStats summarizes the streaming samples of one model.
type StreamingStats struct {
	Model                string
	RequestCount         int
	MeanTimeToFirstChunk time.Duration
	P95TimeToFirstChunk  time.Duration
	MeanTokensPerSecond  float64
	TotalChunks          int
	ErrorRate            float64
}

// ThroughputStats summarizes the throughput samples of one model.
type ThroughputStats struct {
	Model                 string
	TestDuration          time.Duration
	TotalRequests         int64
	SuccessfulRequests    int64
	FailedRequests        int64
	MeanRequestsPerSecond float64
	MeanTokensPerSecond   float64
	SuccessRate           float64
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"-"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
