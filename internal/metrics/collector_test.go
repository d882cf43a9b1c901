package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
)

func TestKindMetricsFoldTracksSuccessAndFailure(t *testing.T) {
	km := newKindMetrics("mode_s", catalog.IdentifierLookup)
	km.Fold(Observation{KindID: "mode_s", StartNanos: 0, LatencyNanos: 5_000_000, Outcome: OK})
	km.Fold(Observation{KindID: "mode_s", StartNanos: 5_000_000, LatencyNanos: 3_000_000, Outcome: HTTPError})
	km.Fold(Observation{KindID: "mode_s", StartNanos: 8_000_000, LatencyNanos: 1_000_000, Outcome: Timeout})

	snap := km.Snapshot()
	assert.Equal(t, int64(3), snap.Issued)
	assert.Equal(t, int64(1), snap.OK)
	assert.Equal(t, int64(1), snap.HTTPErrors)
	assert.Equal(t, int64(1), snap.Timeouts)
	assert.Equal(t, int64(2), snap.Failed)
	assert.InDelta(t, 2.0/3.0, snap.ErrorRate, 1e-9)
	assert.False(t, snap.Latency.Empty)
}

func TestKindSnapshotErrorRateZeroWhenNoIssued(t *testing.T) {
	km := newKindMetrics("mode_s", catalog.IdentifierLookup)
	snap := km.Snapshot()
	assert.Equal(t, int64(0), snap.Issued)
	assert.Equal(t, 0.0, snap.ErrorRate)
	assert.True(t, snap.Latency.Empty)
}

func TestCollectorFoldCreatesKindLazily(t *testing.T) {
	c := NewCollector(SessionMetadata{PatternName: "balanced-60"})
	c.Fold(Observation{KindID: "mode_s", LatencyNanos: 1_000_000, Outcome: OK}, catalog.IdentifierLookup)
	c.Fold(Observation{KindID: "mmsi", LatencyNanos: 2_000_000, Outcome: OK}, catalog.IdentifierLookup)

	snap := c.Snapshot()
	assert.Len(t, snap.Kinds, 2)
	assert.Contains(t, snap.Kinds, "mode_s")
	assert.Contains(t, snap.Kinds, "mmsi")
}

func TestCollectorSetInterruptedAndSyntheticFlags(t *testing.T) {
	c := NewCollector(SessionMetadata{})
	c.SetInterrupted()
	c.SetSyntheticDataUsed()

	snap := c.Snapshot()
	assert.True(t, snap.Meta.Interrupted)
	assert.True(t, snap.Meta.SyntheticDataUsed)
}

func TestSessionSnapshotTotalIssued(t *testing.T) {
	c := NewCollector(SessionMetadata{})
	c.Fold(Observation{KindID: "mode_s", LatencyNanos: 1, Outcome: OK}, catalog.IdentifierLookup)
	c.Fold(Observation{KindID: "mode_s", LatencyNanos: 1, Outcome: HTTPError}, catalog.IdentifierLookup)
	c.Fold(Observation{KindID: "mmsi", LatencyNanos: 1, Outcome: OK}, catalog.IdentifierLookup)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalIssued())
}

func TestSumInvariantCheckPassesAndFails(t *testing.T) {
	c := NewCollector(SessionMetadata{})
	c.Fold(Observation{KindID: "mode_s", LatencyNanos: 1, Outcome: OK}, catalog.IdentifierLookup)
	c.Fold(Observation{KindID: "mode_s", LatencyNanos: 1, Outcome: HTTPError}, catalog.IdentifierLookup)

	snap := c.Snapshot()
	require.NoError(t, snap.SumInvariantCheck(1, 1))
	assert.Error(t, snap.SumInvariantCheck(2, 1))
	assert.Error(t, snap.SumInvariantCheck(1, 0))
}
