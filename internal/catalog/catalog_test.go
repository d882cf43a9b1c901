package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasRequiredKinds(t *testing.T) {
	cat := Default()
	for _, id := range requiredIDs {
		_, ok := cat.Lookup(id)
		assert.Truef(t, ok, "missing required kind %q", id)
	}
}

func TestDefaultAddsSixHopAndRelationshipWrite(t *testing.T) {
	cat := Default()

	deep, ok := cat.Lookup("cross_domain_deep")
	require.True(t, ok)
	assert.Equal(t, SixHop, deep.Category)
	assert.Equal(t, "GET", deep.Method)

	rel, ok := cat.Lookup("relationship_write")
	require.True(t, ok)
	assert.Equal(t, RelationshipWrite, rel.Category)
	assert.Equal(t, "POST", rel.Method)
}

func TestNewRejectsMissingRequiredKind(t *testing.T) {
	cat := Default()
	var kept []QueryKind
	for _, k := range cat.Kinds() {
		if k.ID == "mode_s" {
			continue
		}
		kept = append(kept, k)
	}
	_, err := New(kept)
	assert.Error(t, err)
}

func TestNewRejectsDuplicateID(t *testing.T) {
	kinds := Default().Kinds()
	kinds = append(kinds, kinds[0])
	_, err := New(kinds)
	assert.Error(t, err)
}

func TestBuildPathSubstitutesPlaceholderAndPrefix(t *testing.T) {
	k := QueryKind{PathTemplate: "/api/aircraft/mode_s/{v}"}

	assert.Equal(t, "/api/aircraft/mode_s/ABC123", k.BuildPath("", "ABC123"))
	assert.Equal(t, "/pg/api/aircraft/mode_s/ABC123", k.BuildPath("/pg/", "ABC123"))
	assert.Equal(t, "/pg/api/aircraft/mode_s/ABC123", k.BuildPath("pg", "ABC123"))
}

func TestKindsInPartitionsByTopLevel(t *testing.T) {
	cat := Default()
	for _, level := range []TopLevel{Lookup, Analytics, Write} {
		kinds := cat.KindsIn(level)
		assert.NotEmpty(t, kinds)
		for _, k := range kinds {
			assert.Equal(t, level, k.TopLevel)
		}
	}
}
