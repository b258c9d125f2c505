package retrieval

import (
	"sort"
	"strings"

	"legalrag-backend/models"
)

// RRFConstant dampens the contribution of top ranks in reciprocal rank fusion
const RRFConstant = 60

// CollectionWeight is the unnormalized authority weight of a collection, inferred
// from its name: statutes outrank regulations, which outrank agency decisions.
func CollectionWeight(name string) float64 {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "statute"):
		return 0.4
	case strings.Contains(lower, "regulation"), strings.Contains(lower, "aac"):
		return 0.3
	case strings.Contains(lower, "adre"), strings.Contains(lower, "oah"):
		return 0.25
	default:
		return 0.05
	}
}

// NormalizedWeights returns the collection weights scaled to sum to 1
func NormalizedWeights(collections []string) []float64 {
	weights := make([]float64, len(collections))
	var total float64
	for i, c := range collections {
		weights[i] = CollectionWeight(c)
		total += weights[i]
	}
	if total == 0 {
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// FuseRankings merges per-collection rankings with weighted reciprocal rank fusion.
// A chunk's fused score is the sum over rankings of weight/(rank+c) with 1-based rank.
// Chunks are deduplicated by ID; ties keep first-seen order.
func FuseRankings(rankings [][]models.ScoredChunk, weights []float64, c int) []models.ScoredChunk {
	type entry struct {
		chunk models.ScoredChunk
		score float64
	}
	byID := make(map[string]*entry)
	var order []*entry

	for i, ranking := range rankings {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for rank, sc := range ranking {
			contribution := w / float64(rank+1+c)
			if e, ok := byID[sc.ID]; ok {
				e.score += contribution
				continue
			}
			e := &entry{chunk: sc, score: contribution}
			byID[sc.ID] = e
			order = append(order, e)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})

	out := make([]models.ScoredChunk, len(order))
	for i, e := range order {
		out[i] = e.chunk
		out[i].Score = e.score
	}
	return out
}
