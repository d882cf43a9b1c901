package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickIdentifierFallsBackToSyntheticWhenPoolEmpty(t *testing.T) {
	s := New(1)

	v := s.PickIdentifier(TagModeS)
	assert.NotEmpty(t, v)
	assert.True(t, s.SyntheticUsed)
}

func TestLoadPoolsPrefersFileValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mode_s.txt"), []byte("AAA111\n# comment\n\nBBB222\n"), 0o644))

	s := New(1)
	require.NoError(t, s.LoadPools(dir, zerolog.Nop()))

	v := s.PickIdentifier(TagModeS)
	assert.Contains(t, []string{"AAA111", "BBB222"}, v)
	assert.False(t, s.SyntheticUsed)
}

func TestLoadPoolsToleratesMissingFiles(t *testing.T) {
	s := New(1)
	err := s.LoadPools(t.TempDir(), zerolog.Nop())
	assert.NoError(t, err)
}

func TestLoadPoolsWarnsOnMissingFile(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := New(1)
	require.NoError(t, s.LoadPools(t.TempDir(), log))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "pool file missing")
	assert.Contains(t, out, `"pool":"mode_s"`)
}

func TestLoadPoolsWarnsOnEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mmsi.txt"), []byte("# only comments\n\n"), 0o644))

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := New(1)
	require.NoError(t, s.LoadPools(dir, log))

	out := buf.String()
	assert.Contains(t, out, "pool file empty")
	assert.Contains(t, out, `"pool":"mmsi"`)
}

func TestSameSeedProducesSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.PickIdentifier(TagModeS), b.PickIdentifier(TagModeS))
	}
}

func TestPickWritePayloadRelationshipShape(t *testing.T) {
	s := New(7)
	p := s.PickWritePayload("relationship_write")

	assert.Equal(t, "CROSS", p.Domain)
	assert.NotEmpty(t, p.MMSI)
	assert.NotEmpty(t, p.ModeS)
}

func TestPickWritePayloadActivityLogShape(t *testing.T) {
	s := New(7)
	p := s.PickWritePayload("activity_log")

	assert.Equal(t, "AIR", p.Domain)
	assert.NotEmpty(t, p.ModeS)
	assert.Empty(t, p.MMSI)
}
