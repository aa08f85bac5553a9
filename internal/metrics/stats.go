package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/codahale/hdrhistogram"
)

const (
	histogramMinMillis = 1
	// histogramMaxMillis clamps recorded latencies at one hour.
	histogramMaxMillis = int64(time.Hour / time.Millisecond)
	histogramSigFigs   = 3
)

// Add folds value into the running statistic using Welford's online algorithm.
func (rs *RunningStat) Add(value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// StdDev returns the sample standard deviation, or 0 with fewer than two values.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}

// latencyHistogram records millisecond samples for quantile queries.
type latencyHistogram struct {
	h *hdrhistogram.Histogram
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{h: hdrhistogram.New(histogramMinMillis, histogramMaxMillis, histogramSigFigs)}
}

func (l *latencyHistogram) Record(d time.Duration) {
	ms := d.Milliseconds()
	if ms < histogramMinMillis {
		ms = histogramMinMillis
	}
	if ms > histogramMaxMillis {
		ms = histogramMaxMillis
	}
	_ = l.h.RecordValue(ms)
}

// Quantile returns the value at q, where q is a percentage in [0,100].
func (l *latencyHistogram) Quantile(q float64) time.Duration {
	return time.Duration(l.h.ValueAtQuantile(q)) * time.Millisecond
}

// sortedPercentile returns the element at index len*p/100 of an ascending copy of
// values, clamped to the last index. It returns 0 for an empty slice.
func sortedPercentile(values []time.Duration, p int) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func meanDuration(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range values {
		sum += v
	}
	return sum / time.Duration(len(values))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func errorRate(errs, samples int) float64 {
	total := errs + samples
	if total == 0 {
		return 0
	}
	return float64(errs) / float64(total) * 100
}
