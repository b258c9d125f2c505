package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/embedding"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/storage"
	"legalrag-backend/vectorstore"
)

const testDim = 64

const sampleDecision = `OFFICE OF ADMINISTRATIVE HEARINGS
Case No. 24F-H036-REL

John Doe,
Petitioner,
v.
Sunset Hills Homeowners Association,
Respondent.

The hearing was held on March 5, 2024 before Jane A. Smith, Administrative Law Judge.

Mary Jones, Esq. appeared on behalf of Respondent.
Petitioner appeared on his own behalf.

FINDINGS OF FACT

1. Respondent failed to comply with A.R.S. § 32-2153.
2. The Association violated A.R.S.  §  32 – 2153 by refusing records.

CONCLUSIONS OF LAW

1. Respondent violated CC&Rs Section 3.1.

ORDER

IT IS ORDERED that Respondent shall pay a civil penalty of $500.00 and comply with A.R.S. § 32-2153.

Dated this 1st day of April, 2024.
`

const sampleDismissal = `ARIZONA DEPARTMENT OF REAL ESTATE
Case No. 23A-B123

ORDER OF DISMISSAL

The petition filed by Robert Green against Desert Vista Community Association is dismissed.
`

type failingEmbedder struct {
	embedding.Embedder
}

func (failingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedding.ErrEmbeddingFailed
}

type ingestFixture struct {
	svc     *IngestService
	store   *vectorstore.MemoryStore
	records *repository.MemoryCaseRecordStore
	jobs    *repository.MemoryJobStore
}

func newIngestFixture(t *testing.T, opts ...IngestServiceOption) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		store:   vectorstore.NewMemoryStore(testDim),
		records: repository.NewMemoryCaseRecordStore(),
		jobs:    repository.NewMemoryJobStore(),
	}
	opts = append([]IngestServiceOption{IngestWithJobStore(f.jobs), IngestWithWorkers(2)}, opts...)
	f.svc = NewIngestService(embedding.NewHashingEmbedder(testDim), f.store, f.records, opts...)
	return f
}

func countChunks(t *testing.T, store vectorstore.Store, collection string) int {
	t.Helper()
	n := 0
	require.NoError(t, store.Scan(context.Background(), collection, func(models.Chunk) bool {
		n++
		return true
	}))
	return n
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(""))
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
}

func TestIngestService_IngestDocument(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)

	res, err := f.svc.IngestDocument(ctx, "adre_decisions", Document{Filename: "24F-H036-REL.txt", Text: sampleDecision})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, ContentHash(sampleDecision), res.ContentHash)
	assert.Positive(t, res.Chunks)
	require.NotNil(t, res.Record)
	assert.Equal(t, "24F-H036-REL", res.Record.CaseNumber)
	assert.Equal(t, "adre_decisions", res.Record.Collection)
	assert.NotEqual(t, uuid.Nil, res.Record.ID)

	stored, err := f.records.GetByHash(ctx, res.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, res.Record.CaseNumber, stored.CaseNumber)
	assert.Equal(t, res.Chunks, countChunks(t, f.store, "adre_decisions"))
}

func TestIngestService_IngestDocument_IdempotentSkip(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	doc := Document{Filename: "24F-H036-REL.txt", Text: sampleDecision}

	first, err := f.svc.IngestDocument(ctx, "adre_decisions", doc)
	require.NoError(t, err)
	before := countChunks(t, f.store, "adre_decisions")

	doc.Filename = "renamed copy.txt"
	second, err := f.svc.IngestDocument(ctx, "adre_decisions", doc)
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Nil(t, second.Record)
	assert.Equal(t, before, countChunks(t, f.store, "adre_decisions"))

	records, err := f.records.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "24F-H036-REL.txt", records[0].SourceFilename)
}

func TestIngestService_IngestDocument_Rejects(t *testing.T) {
	f := newIngestFixture(t)

	tests := []struct {
		name       string
		collection string
		text       string
		wantErr    error
	}{
		{name: "empty text", collection: "adre", text: "", wantErr: ErrEmptyDocument},
		{name: "whitespace text", collection: "adre", text: " \n\t ", wantErr: ErrEmptyDocument},
		{name: "bad collection", collection: "../etc", text: sampleDecision, wantErr: vectorstore.ErrInvalidCollectionName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.IngestDocument(context.Background(), tt.collection, Document{Filename: "x.txt", Text: tt.text})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIngestService_IngestDocument_EmbeddingFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore(testDim)
	records := repository.NewMemoryCaseRecordStore()
	doc := Document{Filename: "24F-H036-REL.txt", Text: sampleDecision}

	failing := NewIngestService(failingEmbedder{}, store, records)
	_, err := failing.IngestDocument(ctx, "adre", doc)
	require.ErrorIs(t, err, embedding.ErrEmbeddingFailed)

	exists, err := records.ExistsByHash(ctx, ContentHash(sampleDecision))
	require.NoError(t, err)
	assert.False(t, exists)

	working := NewIngestService(embedding.NewHashingEmbedder(testDim), store, records)
	res, err := working.IngestDocument(ctx, "adre", doc)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, res.Status)
}

func TestIngestService_IngestDocument_ArchiveAndCallback(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	docs := repository.NewMemorySourceDocumentStore()
	calls := 0

	f := newIngestFixture(t,
		IngestWithArchive(local, docs),
		IngestWithOnIngested(func() { calls++ }),
	)

	_, err = f.svc.IngestDocument(ctx, "adre", Document{Filename: "24F-H036-REL.txt", Text: sampleDecision})
	require.NoError(t, err)
	_, err = f.svc.IngestDocument(ctx, "adre", Document{Filename: "24F-H036-REL.txt", Text: sampleDecision})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	archived, err := docs.ListByCollection(ctx, "adre")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, ContentHash(sampleDecision), archived[0].ContentHash)
	assert.Equal(t, "text/plain", archived[0].MimeType)

	rc, err := local.Download(ctx, archived[0].StoragePath)
	require.NoError(t, err)
	defer rc.Close()
}

func TestIngestService_IngestBatch(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)

	report, err := f.svc.IngestBatch(ctx, "adre", []Document{
		{Filename: "a.txt", Text: sampleDecision},
		{Filename: "b.txt", Text: sampleDismissal},
		{Filename: "a-copy.txt", Text: sampleDecision},
		{Filename: "empty.txt", Text: ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "adre", report.Collection)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Errors, "empty.txt")
	assert.Equal(t, countChunks(t, f.store, "adre"), report.TotalChunks)
	assert.Equal(t, 1, report.DocumentTypes[string(models.DocTypeFindingsOfFact)])
	assert.Equal(t, 1, report.DocumentTypes[string(models.DocTypeDismissal)])
}

func TestIngestService_IngestBatch_InvalidCollection(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.svc.IngestBatch(context.Background(), "no spaces allowed", nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName)
}

func TestReadDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.txt":    "second",
		"a.md":     "first",
		"c.TEXT":   "third",
		"skip.pdf": "binary",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	docs, err := ReadDirectory(dir)
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.Filename)
	}
	assert.Equal(t, []string{"a.md", "b.txt", "c.TEXT"}, names)
	assert.Equal(t, "first", docs[0].Text)

	_, err = ReadDirectory(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestIngestService_IngestDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "24F-H036-REL.txt"), []byte(sampleDecision), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "23A-B123.txt"), []byte(sampleDismissal), 0o644))

	f := newIngestFixture(t)
	report, err := f.svc.IngestDirectory(context.Background(), "oah", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Failed)
}

func TestIngestService_BatchJob(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	docs := []Document{
		{Filename: "a.txt", Text: sampleDecision},
		{Filename: "empty.txt", Text: ""},
	}

	job, err := f.svc.StartBatchJob(ctx, "adre", docs)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.Len(t, job.Steps, 2)
	assert.Equal(t, models.StepPending, job.Steps[0].Status)

	require.NoError(t, f.svc.ProcessBatchJob(ctx, job.ID, docs))

	done, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	require.NotNil(t, done.Report)
	assert.Equal(t, 1, done.Report.Processed)
	assert.Equal(t, 1, done.Report.Failed)
	require.Len(t, done.Steps, 2)
	assert.Equal(t, models.StepCompleted, done.Steps[0].Status)
	assert.Equal(t, models.StepFailed, done.Steps[1].Status)
	assert.Equal(t, ErrEmptyDocument.Error(), done.Steps[1].Description)
	assert.NotNil(t, done.CompletedAt)
}

func TestIngestService_BatchJob_Errors(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)

	_, err := f.svc.StartBatchJob(ctx, "adre", nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = f.svc.GetJob(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)

	err = f.svc.ProcessBatchJob(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrJobNotFound)

	noJobs := NewIngestService(embedding.NewHashingEmbedder(testDim), vectorstore.NewMemoryStore(testDim), repository.NewMemoryCaseRecordStore())
	_, err = noJobs.StartBatchJob(ctx, "adre", []Document{{Filename: "a.txt", Text: "x"}})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoDocuments))
}
