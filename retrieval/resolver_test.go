package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/embedding"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/vectorstore"
)

// countingRecords counts List calls so tests can observe cache hits
type countingRecords struct {
	repository.CaseRecordStore
	lists atomic.Int32
}

func (c *countingRecords) List(ctx context.Context, collections []string) ([]models.CaseRecord, error) {
	c.lists.Add(1)
	return c.CaseRecordStore.List(ctx, collections)
}

// brokenScanStore fails every scan and hides the metadata pushdown
type brokenScanStore struct {
	vectorstore.Store
}

func (brokenScanStore) Scan(context.Context, string, func(models.Chunk) bool) error {
	return errors.New("connection reset")
}

func newRecord(collection, source, caseNumber, hash string, weight float64, statutes ...string) *models.CaseRecord {
	rec := &models.CaseRecord{
		ContentHash:     hash,
		Collection:      collection,
		SourceFilename:  source,
		CaseNumber:      caseNumber,
		DocumentType:    models.DocTypeFinalOrder,
		AuthorityWeight: weight,
		Violations:      models.Violations{},
	}
	for _, s := range statutes {
		rec.Violations.Add(models.ViolationStatute, s)
	}
	return rec
}

func newResolverFixture(t *testing.T) (*countingRecords, *vectorstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	base := repository.NewMemoryCaseRecordStore()
	adre := newRecord("adre_decisions", "24F-H036-REL.pdf", "24F-H036-REL", "h1", 1.0, "A.R.S. § 32-2153")
	oah := newRecord("oah_decisions", "oah-24F-H036-REL-final.pdf", "24F-H036-REL", "h2", 3.0, "A.R.S. § 32-2153")
	oah.Violations.Add(models.ViolationRegulation, "A.A.C. R4-28-1101")
	quiet := newRecord("adre_decisions", "23A-B123.pdf", "23A-B123", "h3", 1.0)
	for _, rec := range []*models.CaseRecord{oah, adre, quiet} {
		require.NoError(t, base.Create(ctx, rec))
	}

	store := vectorstore.NewMemoryStore(0)
	require.NoError(t, store.Upsert(ctx, "oah_decisions", []models.Chunk{
		{ID: "h2-0", Index: 0, Content: "Caption text.", Embedding: []float32{1, 0},
			Metadata: map[string]string{models.MetaContentHash: "h2"}},
		{ID: "h2-1", Index: 1, Content: "The Respondent violated A.R.S. § 32-2153 by failing to disclose.", Embedding: []float32{0, 1},
			Metadata: map[string]string{models.MetaContentHash: "h2"}},
	}))
	return &countingRecords{CaseRecordStore: base}, store
}

func TestResolver_ExactPrefersHighestAuthority(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "A.R.S. §32–2153", nil)
	require.NoError(t, err)
	assert.Equal(t, MethodExact, res.Method)
	assert.Equal(t, "A.R.S. § 32-2153", res.Citation)
	assert.Equal(t, "oah_decisions", res.Collection)
	assert.Equal(t, "oah-24F-H036-REL-final.pdf", res.Source)
	assert.Equal(t, "24F-H036-REL", res.CaseNumber)
	assert.Equal(t, 3.0, res.AuthorityWeight)
	assert.Equal(t, "h2", res.ContentHash)
	assert.Equal(t, "The Respondent violated A.R.S. § 32-2153 by failing to disclose.", res.Excerpt)

	// scoped to one collection the lower-authority record is the only candidate
	res, err = r.Resolve(context.Background(), "A.R.S. § 32-2153", []string{"adre_decisions"})
	require.NoError(t, err)
	assert.Equal(t, "24F-H036-REL.pdf", res.Source)
	assert.Empty(t, res.Excerpt)
}

func TestResolver_CachesHitsAndMisses(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "A.R.S. § 32-2153", nil)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "a.r.s. §§ 32 - 2153.", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), records.lists.Load())

	// callers get copies
	second.Source = "mutated"
	third, err := r.Resolve(ctx, "A.R.S. § 32-2153", nil)
	require.NoError(t, err)
	assert.Equal(t, "oah-24F-H036-REL-final.pdf", third.Source)

	_, err = r.Resolve(ctx, "A.R.S. § 99-9999", nil)
	assert.ErrorIs(t, err, ErrCitationNotFound)
	_, err = r.Resolve(ctx, "A.R.S. § 99-9999", nil)
	assert.ErrorIs(t, err, ErrCitationNotFound)
	assert.Equal(t, int32(2), records.lists.Load())
}

func TestResolver_StoreErrorsAreNotCached(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, brokenScanStore{Store: store}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		res, err := r.Resolve(ctx, "A.R.S. § 32-2153", nil)
		require.NoError(t, err)
		assert.Equal(t, MethodExact, res.Method)
		assert.Empty(t, res.Excerpt)
	}
	assert.Equal(t, int32(2), records.lists.Load())
}

func TestResolver_EmptyCitation(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrCitationNotFound)
	assert.Equal(t, int32(0), records.lists.Load())
}

func TestResolver_SimilarityFallback(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewHashingEmbedder(testDim)
	store := vectorstore.NewMemoryStore(testDim)
	chunks := []models.Chunk{{
		ID:      "s-0",
		Content: "A.R.S. § 33-1803 limits late fees.",
		Metadata: map[string]string{
			models.MetaSource:          "title33.txt",
			models.MetaContentHash:     "s1",
			models.MetaAuthorityWeight: "1.0",
		},
	}}
	require.NoError(t, embedding.EmbedChunks(ctx, e, chunks))
	require.NoError(t, store.Upsert(ctx, "statutes", chunks))

	r, err := NewResolver(repository.NewMemoryCaseRecordStore(), store, e)
	require.NoError(t, err)

	res, err := r.Resolve(ctx, "A.R.S. § 33-1803", []string{"statutes", "missing"})
	require.NoError(t, err)
	assert.Equal(t, MethodSimilarity, res.Method)
	assert.Equal(t, "statutes", res.Collection)
	assert.Equal(t, "title33.txt", res.Source)
	assert.Equal(t, "A.R.S. § 33-1803 limits late fees.", res.Excerpt)

	// the nearest chunk does not contain this citation, so it is rejected
	_, err = r.Resolve(ctx, "A.R.S. § 33-1804", []string{"statutes"})
	assert.ErrorIs(t, err, ErrCitationNotFound)
}

func TestResolver_FindCitingDocuments(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)
	ctx := context.Background()

	edges, err := r.FindCitingDocuments(ctx, "A.R.S. § 32–2153", nil)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, models.CitationEdge{
		Collection:  "adre_decisions",
		Source:      "24F-H036-REL.pdf",
		CaseNumber:  "24F-H036-REL",
		ContentHash: "h1",
		Citation:    "A.R.S. § 32-2153",
	}, edges[0])
	assert.Equal(t, "oah_decisions", edges[1].Collection)

	edges, err = r.FindCitingDocuments(ctx, "A.R.S. § 32-2153", []string{"oah_decisions"})
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	edges, err = r.FindCitingDocuments(ctx, "", nil)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestResolver_CitationGraph(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)

	graph, err := r.CitationGraph(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"adre_decisions:24F-H036-REL.pdf":          {"A.R.S. § 32-2153"},
		"oah_decisions:oah-24F-H036-REL-final.pdf": {"A.R.S. § 32-2153", "A.A.C. R4-28-1101"},
	}, graph)
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		citation string
		context  int
		want     string
	}{
		{
			name:     "truncated both ends",
			text:     "aaaa A.R.S. § 32-2153 bbbb",
			citation: "A.R.S. § 32-2153",
			context:  3,
			want:     "...aa A.R.S. § 32-2153 bb...",
		},
		{
			name:     "case insensitive whole text",
			text:     "see a.r.s. § 32-2153.",
			citation: "A.R.S. § 32-2153",
			context:  100,
			want:     "see a.r.s. § 32-2153.",
		},
		{
			name:     "normalized form",
			text:     "under A.R.S. § 32-2153 here",
			citation: "A.R.S. §32–2153",
			context:  100,
			want:     "under A.R.S. § 32-2153 here",
		},
		{
			name:     "no occurrence",
			text:     "nothing relevant",
			citation: "A.R.S. § 1-2",
			context:  10,
			want:     "...",
		},
		{
			name:     "never splits a rune",
			text:     "ééé A.R.S. § 1-2",
			citation: "A.R.S. § 1-2",
			context:  2,
			want:     "...é A.R.S. § 1-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(tt.text, tt.citation, tt.context))
		})
	}
}

func TestResolver_EnhanceAnswer(t *testing.T) {
	records, store := newResolverFixture(t)
	r, err := NewResolver(records, store, nil)
	require.NoError(t, err)
	ctx := context.Background()

	answer := "Under A.R.S. § 32-2153 the seller must disclose. See also A.R.S. § 99-9999."

	got := r.EnhanceAnswer(ctx, answer, nil, false)
	assert.Equal(t, "Under A.R.S. § 32-2153[1] the seller must disclose. See also A.R.S. § 99-9999."+
		"\n\nCitation References:\n[1] A.R.S. § 32-2153 (Case No. 24F-H036-REL)", got)

	got = r.EnhanceAnswer(ctx, answer, nil, true)
	assert.Contains(t, got, "\n    Excerpt: The Respondent violated A.R.S. § 32-2153 by failing to disclose.")

	repeated := "A.R.S. § 32-2153 and again A.R.S. §32-2153."
	got = r.EnhanceAnswer(ctx, repeated, nil, false)
	assert.Equal(t, "A.R.S. § 32-2153[1] and again A.R.S. §32-2153[1]."+
		"\n\nCitation References:\n[1] A.R.S. § 32-2153 (Case No. 24F-H036-REL)", got)

	assert.Equal(t, "No citations here.", r.EnhanceAnswer(ctx, "No citations here.", nil, false))
	assert.Equal(t, "Only A.R.S. § 99-9999 here.", r.EnhanceAnswer(ctx, "Only A.R.S. § 99-9999 here.", nil, false))
}
