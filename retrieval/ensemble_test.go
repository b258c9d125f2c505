package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
)

func TestCollectionWeight(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"az_statutes", 0.4},
		{"Regulations", 0.3},
		{"aac_rules", 0.3},
		{"adre_decisions", 0.25},
		{"OAH-2024", 0.25},
		{"misc_docs", 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionWeight(tt.name))
		})
	}
}

func TestNormalizedWeights(t *testing.T) {
	w := NormalizedWeights([]string{"adre_decisions", "misc"})
	require.Len(t, w, 2)
	assert.InDelta(t, 0.25/0.3, w[0], 1e-9)
	assert.InDelta(t, 0.05/0.3, w[1], 1e-9)
	assert.InDelta(t, 1.0, w[0]+w[1], 1e-9)

	assert.Empty(t, NormalizedWeights(nil))
}

func scored(id string) models.ScoredChunk {
	return models.ScoredChunk{Chunk: models.Chunk{ID: id}}
}

func TestFuseRankings(t *testing.T) {
	rankings := [][]models.ScoredChunk{
		{scored("x"), scored("y")},
		{scored("y"), scored("z")},
	}
	fused := FuseRankings(rankings, []float64{0.5, 0.5}, RRFConstant)
	require.Len(t, fused, 3)
	assert.Equal(t, []string{"y", "x", "z"}, []string{fused[0].ID, fused[1].ID, fused[2].ID})
	assert.InDelta(t, 0.5/62+0.5/61, fused[0].Score, 1e-12)
	assert.InDelta(t, 0.5/61, fused[1].Score, 1e-12)
}

func TestFuseRankings_WeightsDecide(t *testing.T) {
	// the heavier collection's top hit outranks the lighter one's
	rankings := [][]models.ScoredChunk{
		{scored("statute")},
		{scored("misc")},
	}
	fused := FuseRankings(rankings, NormalizedWeights([]string{"az_statutes", "misc"}), RRFConstant)
	assert.Equal(t, "statute", fused[0].ID)
	assert.Equal(t, "misc", fused[1].ID)
}
