// Package metrics folds Observations into per-query-kind latency
// distributions using a high-dynamic-range histogram, without losing
// high-percentile accuracy.
package metrics

import (
	"math"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

const (
	lowestTrackableNanos  = int64(1_000)          // 1 microsecond
	highestTrackableNanos = int64(60_000_000_000) // 60 seconds
	significantFigures    = 3
)

// PercentileSnapshot is an immutable view of a LatencyDistribution's shape at
// the moment it was taken. All values are nanoseconds; the Reporter converts
// to milliseconds at serialisation time.
type PercentileSnapshot struct {
	Min    int64
	P50    int64
	P75    int64
	P90    int64
	P95    int64
	P99    int64
	P999   int64
	Max    int64
	Mean   float64
	StdDev float64
	Empty  bool
}

// LatencyDistribution is an HDR histogram over a fixed 1µs-60s range with at
// least 3 significant decimal digits, created per QueryKind at session start
// and append-only until session close.
type LatencyDistribution struct {
	hist *hdrhistogram.Histogram
}

// NewLatencyDistribution constructs an empty distribution.
func NewLatencyDistribution() *LatencyDistribution {
	return &LatencyDistribution{
		hist: hdrhistogram.New(lowestTrackableNanos, highestTrackableNanos, significantFigures),
	}
}

// Record adds a latency observation, in nanoseconds. Values outside the
// trackable range are clamped to the boundary rather than silently dropped
// (the histogram's own out-of-range behaviour), since exceeding 60s is
// itself informative and must still count toward percentiles.
func (d *LatencyDistribution) Record(latencyNanos int64) {
	if latencyNanos < lowestTrackableNanos {
		latencyNanos = lowestTrackableNanos
	}
	if latencyNanos > highestTrackableNanos {
		latencyNanos = highestTrackableNanos
	}
	_ = d.hist.RecordValue(latencyNanos)
}

// Snapshot reads the current percentile shape. Percentiles are monotonic
// non-decreasing by construction (each call reads increasing quantiles from
// the same immutable-at-read-time histogram state).
func (d *LatencyDistribution) Snapshot() PercentileSnapshot {
	if d.hist.TotalCount() == 0 {
		return PercentileSnapshot{Empty: true}
	}
	s := PercentileSnapshot{
		Min:    d.hist.Min(),
		P50:    d.hist.ValueAtQuantile(50),
		P75:    d.hist.ValueAtQuantile(75),
		P90:    d.hist.ValueAtQuantile(90),
		P95:    d.hist.ValueAtQuantile(95),
		P99:    d.hist.ValueAtQuantile(99),
		P999:   d.hist.ValueAtQuantile(99.9),
		Max:    d.hist.Max(),
		Mean:   d.hist.Mean(),
		StdDev: d.hist.StdDev(),
	}
	// The histogram reports bucket-equivalent values, which can lie just
	// outside the range Record clamps to; keep them inside that range.
	for _, v := range []*int64{&s.Min, &s.P50, &s.P75, &s.P90, &s.P95, &s.P99, &s.P999, &s.Max} {
		*v = max(lowestTrackableNanos, min(*v, highestTrackableNanos))
	}
	return s
}

// Count returns the number of recorded (successful) observations.
func (d *LatencyDistribution) Count() int64 { return d.hist.TotalCount() }

// MillisRounded rounds a nanosecond duration to milliseconds with two
// decimal places, matching the Reporter's serialisation rule.
func MillisRounded(nanos int64) float64 {
	ms := float64(nanos) / 1e6
	return math.Round(ms*100) / 100
}

// MillisRoundedF is MillisRounded for values already in nanoseconds as
// float64 (means/stddevs).
func MillisRoundedF(nanos float64) float64 {
	ms := nanos / 1e6
	return math.Round(ms*100) / 100
}
