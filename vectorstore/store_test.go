package vectorstore

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
)

const testDim = 4

func testChunk(id, source string, index int, emb []float32) models.Chunk {
	return models.Chunk{
		ID:      id,
		Index:   index,
		Content: "content of " + id,
		Tier:    models.TierNormal,
		Type:    models.ChunkTypeGeneric,
		Metadata: map[string]string{
			models.MetaSource:        source,
			models.MetaCaseNumber:    "24F-H036-REL",
			models.MetaChunkIndex:    strconv.Itoa(index),
			models.MetaChunkPriority: "3",
			models.MetaTier:          string(models.TierNormal),
			models.MetaChunkType:     string(models.ChunkTypeGeneric),
		},
		Embedding: emb,
	}
}

// exerciseStore runs the behaviour every Store implementation shares
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Search(ctx, "missing", []float32{1, 0, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.ErrorIs(t, store.EnsureCollection(ctx, "../etc"), ErrInvalidCollectionName)

	chunks := []models.Chunk{
		testChunk("b-1", "b.pdf", 1, []float32{0, 1, 0, 0}),
		testChunk("a-0", "a.pdf", 0, []float32{1, 0, 0, 0}),
		testChunk("b-0", "b.pdf", 0, []float32{0.7, 0.7, 0, 0}),
	}
	chunks[2].Metadata[models.MetaCaseNumber] = "23A-B123"
	require.NoError(t, store.Upsert(ctx, "adre_decisions", chunks))

	has, err := store.HasCollection(ctx, "adre_decisions")
	require.NoError(t, err)
	assert.True(t, has)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"adre_decisions"}, names)

	results, err := store.Search(ctx, "adre_decisions", []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a-0", results[0].ID)
	assert.Equal(t, "b-0", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, "content of a-0", results[0].Content)
	assert.Equal(t, "a.pdf", results[0].Source())

	// k larger than the collection is capped
	results, err = store.Search(ctx, "adre_decisions", []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// re-upserting an ID replaces it
	replaced := testChunk("a-0", "a.pdf", 0, []float32{0, 0, 1, 0})
	replaced.Content = "replaced"
	require.NoError(t, store.Upsert(ctx, "adre_decisions", []models.Chunk{replaced}))

	var seen []string
	require.NoError(t, store.Scan(ctx, "adre_decisions", func(c models.Chunk) bool {
		seen = append(seen, c.ID)
		if c.ID == "a-0" {
			assert.Equal(t, "replaced", c.Content)
		}
		return true
	}))
	assert.ElementsMatch(t, []string{"a-0", "b-0", "b-1"}, seen)

	var first int
	require.NoError(t, store.Scan(ctx, "adre_decisions", func(models.Chunk) bool {
		first++
		return false
	}))
	assert.Equal(t, 1, first)

	err = store.Upsert(ctx, "adre_decisions", []models.Chunk{testChunk("x", "x.pdf", 0, []float32{1, 0})})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	err = store.Upsert(ctx, "adre_decisions", []models.Chunk{testChunk("y", "y.pdf", 0, nil)})
	assert.ErrorIs(t, err, ErrMissingEmbedding)

	if ms, ok := store.(MetadataSearcher); ok {
		found, err := ms.FindByMetadata(ctx, "adre_decisions", models.MetaCaseNumber, "24F-H036-REL", 0)
		require.NoError(t, err)
		ids := make([]string, len(found))
		for i, c := range found {
			ids[i] = c.ID
		}
		assert.ElementsMatch(t, []string{"a-0", "b-1"}, ids)

		found, err = ms.FindByMetadata(ctx, "adre_decisions", models.MetaCaseNumber, "24F-H036-REL", 1)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(testDim))
}

func TestChromemStore_InMemory(t *testing.T) {
	store, err := NewChromemStore("", testDim)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestChromemStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewChromemStore(dir, testDim)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), "oah_decisions",
		[]models.Chunk{testChunk("a-0", "a.pdf", 0, []float32{1, 0, 0, 0})}))

	reopened, err := NewChromemStore(dir, testDim)
	require.NoError(t, err)
	has, err := reopened.HasCollection(context.Background(), "oah_decisions")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestChromemStore_ScanIsOrderedByDocument(t *testing.T) {
	store, err := NewChromemStore("", testDim)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "c", []models.Chunk{
		testChunk("b-1", "b.pdf", 1, []float32{0, 1, 0, 0}),
		testChunk("a-0", "a.pdf", 0, []float32{0, 0, 1, 0}),
		testChunk("b-0", "b.pdf", 0, []float32{0, 0, 0, 1}),
	}))

	var ids []string
	require.NoError(t, store.Scan(ctx, "c", func(c models.Chunk) bool {
		ids = append(ids, c.ID)
		return true
	}))
	assert.Equal(t, []string{"a-0", "b-0", "b-1"}, ids)
}

func TestNewChromemStore_RejectsZeroDimension(t *testing.T) {
	_, err := NewChromemStore("", 0)
	assert.Error(t, err)
}

func TestMemoryStore_ScanInsertionOrder(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "c", []models.Chunk{
		testChunk("2", "b.pdf", 0, []float32{1}),
		testChunk("1", "a.pdf", 0, []float32{1}),
	}))
	var ids []string
	require.NoError(t, store.Scan(ctx, "c", func(c models.Chunk) bool {
		ids = append(ids, c.ID)
		return true
	}))
	assert.Equal(t, []string{"2", "1"}, ids)
	assert.ErrorIs(t, store.Scan(ctx, "nope", func(models.Chunk) bool { return true }), ErrCollectionNotFound)
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"simple", "adre_decisions", true},
		{"dashes", "az-statutes", true},
		{"empty", "", false},
		{"path traversal", "../x", false},
		{"leading underscore", "_x", false},
		{"space", "a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCollectionName)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestChunkFromMetadata_TierFallsBackToPriority(t *testing.T) {
	c := ChunkFromMetadata("col", "id", "text", map[string]string{
		models.MetaChunkPriority: "1",
		models.MetaChunkIndex:    "4",
	})
	assert.Equal(t, models.TierHigh, c.Tier)
	assert.Equal(t, 4, c.Index)
	assert.Equal(t, "col", c.Collection)

	c = ChunkFromMetadata("col", "id", "text", map[string]string{})
	assert.Equal(t, models.TierNormal, c.Tier)
}
