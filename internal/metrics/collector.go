package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
)

// Outcome classifies a single Observation.
type Outcome int

const (
	OK Outcome = iota
	HTTPError
	Timeout
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case HTTPError:
		return "http_error"
	case Timeout:
		return "timeout"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Observation is what the executor produces per request; it is folded into
// KindMetrics and then discarded.
type Observation struct {
	KindID       string
	StartNanos   int64
	LatencyNanos int64
	Outcome      Outcome
	HTTPStatus   int
	RespBytes    int64
}

// KindMetrics accumulates a LatencyDistribution plus success/failure
// bookkeeping for one QueryKind. Its mutex serialises concurrent Fold calls
// (the executor folds from every in-flight request goroutine) and Snapshot
// readers.
type KindMetrics struct {
	mu sync.Mutex

	KindID   string
	Category catalog.Category

	dist *LatencyDistribution

	issued          int64
	ok              int64
	httpErrors      int64
	timeouts        int64
	transportErrors int64

	firstObservationNanos int64
	lastObservationNanos  int64
	hasObservation        bool
}

func newKindMetrics(kindID string, category catalog.Category) *KindMetrics {
	return &KindMetrics{KindID: kindID, Category: category, dist: NewLatencyDistribution()}
}

// Fold records one Observation. Only OK observations contribute to the
// latency distribution; failures are counted but excluded from percentiles.
func (k *KindMetrics) Fold(o Observation) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.issued++
	if !k.hasObservation || o.StartNanos < k.firstObservationNanos {
		k.firstObservationNanos = o.StartNanos
		k.hasObservation = true
	}
	end := o.StartNanos + o.LatencyNanos
	if end > k.lastObservationNanos {
		k.lastObservationNanos = end
	}

	switch o.Outcome {
	case OK:
		k.ok++
		k.dist.Record(o.LatencyNanos)
	case HTTPError:
		k.httpErrors++
	case Timeout:
		k.timeouts++
	case TransportError:
		k.transportErrors++
	}
}

// KindSnapshot is an immutable view of a KindMetrics at some point in time.
type KindSnapshot struct {
	KindID          string
	Category        catalog.Category
	Issued          int64
	OK              int64
	HTTPErrors      int64
	Timeouts        int64
	TransportErrors int64
	Failed          int64
	ErrorRate       float64
	ThroughputQPS   float64
	DurationSec     float64
	Latency         PercentileSnapshot
}

// Snapshot freezes the current state of a KindMetrics.
func (k *KindMetrics) Snapshot() KindSnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	failed := k.httpErrors + k.timeouts + k.transportErrors
	var errorRate float64
	if k.issued > 0 {
		errorRate = float64(failed) / float64(k.issued)
	}

	durationSec := float64(k.lastObservationNanos-k.firstObservationNanos) / 1e9
	var qps float64
	if durationSec > 0 {
		qps = float64(k.ok) / durationSec
	}

	return KindSnapshot{
		KindID:          k.KindID,
		Category:        k.Category,
		Issued:          k.issued,
		OK:              k.ok,
		HTTPErrors:      k.httpErrors,
		Timeouts:        k.timeouts,
		TransportErrors: k.transportErrors,
		Failed:          failed,
		ErrorRate:       errorRate,
		ThroughputQPS:   qps,
		DurationSec:     durationSec,
		Latency:         k.dist.Snapshot(),
	}
}

// SessionMetadata describes the run that produced a SessionMetrics value.
type SessionMetadata struct {
	SUTURL             string
	PatternName        string
	Concurrency        int
	RequestBudget      int
	Seed               int64
	CacheEnabled       bool
	SyntheticDataUsed  bool
	Interrupted        bool
	WallClockStartUnix int64
	WallClockEndUnix   int64
}

// Collector owns per-kind KindMetrics for a single session. The Executor
// calls Fold from each in-flight request goroutine; the Threshold Evaluator
// and Reporter read only from Snapshot after the session ends.
type Collector struct {
	mu    sync.RWMutex
	kinds map[string]*KindMetrics
	meta  SessionMetadata
}

// NewCollector creates an empty Collector for the given session metadata.
func NewCollector(meta SessionMetadata) *Collector {
	return &Collector{kinds: map[string]*KindMetrics{}, meta: meta}
}

// Fold routes an Observation to its KindMetrics, creating one lazily on
// first sight of a kind (the catalogue may register kinds the pattern never
// draws, and a session should not need to know the full set up front).
func (c *Collector) Fold(o Observation, category catalog.Category) {
	c.mu.Lock()
	km, ok := c.kinds[o.KindID]
	if !ok {
		km = newKindMetrics(o.KindID, category)
		c.kinds[o.KindID] = km
	}
	c.mu.Unlock()

	km.Fold(o)
}

// SessionSnapshot is the immutable, fully materialised view of a completed
// session.
type SessionSnapshot struct {
	Meta  SessionMetadata
	Kinds map[string]KindSnapshot
}

// Snapshot freezes every KindMetrics into a SessionSnapshot.
func (c *Collector) Snapshot() SessionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make(map[string]KindSnapshot, len(c.kinds))
	for id, km := range c.kinds {
		kinds[id] = km.Snapshot()
	}
	return SessionSnapshot{Meta: c.meta, Kinds: kinds}
}

// SetInterrupted marks the session metadata as having been cut short by an
// external cancellation signal.
func (c *Collector) SetInterrupted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta.Interrupted = true
}

// SetSyntheticDataUsed records that the Dataset Selector fell back to a
// synthetic pool at least once during this session.
func (c *Collector) SetSyntheticDataUsed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta.SyntheticDataUsed = true
}

// TotalIssued sums issued counts across all kinds, used by the "issued ==
// K_or_near" interruption property.
func (s SessionSnapshot) TotalIssued() int64 {
	var total int64
	for _, k := range s.Kinds {
		total += k.Issued
	}
	return total
}

// SumInvariantCheck verifies "sum of per-kind ok_count == session ok_count"
// style invariants against externally-tracked totals; returns a descriptive
// error rather than panicking, since a violation here means the collector
// itself has a bug (InvariantViolation, exit 70 at the CLI layer).
func (s SessionSnapshot) SumInvariantCheck(expectedOK, expectedFailed int64) error {
	var ok, failed int64
	for _, k := range s.Kinds {
		ok += k.OK
		failed += k.Failed
	}
	if ok != expectedOK {
		return fmt.Errorf("metrics: ok_count invariant violated: sum=%d expected=%d", ok, expectedOK)
	}
	if failed != expectedFailed {
		return fmt.Errorf("metrics: failed_count invariant violated: sum=%d expected=%d", failed, expectedFailed)
	}
	return nil
}

// Now is a small seam so tests can freeze wall-clock behaviour without
// reaching into the metrics package's internals.
var Now = func() time.Time { return time.Now() }
