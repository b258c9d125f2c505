package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"legalrag-backend/chunking"
	"legalrag-backend/embedding"
	"legalrag-backend/extraction"
	"legalrag-backend/metrics"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/storage"
	"legalrag-backend/vectorstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyDocument     = errors.New("document text is empty")
	ErrJobNotFound       = errors.New("ingestion job not found")
	ErrJobCreationFailed = errors.New("failed to create ingestion job")
	ErrNoDocuments       = errors.New("no documents to ingest")
)

// Ingest outcomes, also used as metric labels
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const DefaultIngestWorkers = 4

// TextExtensions lists the file extensions IngestDirectory reads
var TextExtensions = []string{".txt", ".text", ".md"}

// Document is one converted text document to ingest
type Document struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// IngestResult describes what happened to one document
type IngestResult struct {
	Status      string             `json:"status"`
	Filename    string             `json:"filename"`
	ContentHash string             `json:"content_hash"`
	Chunks      int                `json:"chunks"`
	Record      *models.CaseRecord `json:"record,omitempty"`
}

// IngestService runs documents through extraction, chunking, embedding and storage
type IngestService struct {
	extractor   *extraction.Extractor
	prioritizer *chunking.Prioritizer
	embedder    embedding.Embedder
	store       vectorstore.Store
	records     repository.CaseRecordStore
	jobs        repository.JobStore
	documents   repository.SourceDocumentStore
	archive     storage.Storage
	onIngested  func()
	workers     int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// IngestServiceOption is a functional option for IngestService
type IngestServiceOption func(*IngestService)

// IngestWithExtractor sets the case record extractor
func IngestWithExtractor(e *extraction.Extractor) IngestServiceOption {
	return func(s *IngestService) {
		s.extractor = e
	}
}

// IngestWithPrioritizer sets the chunk prioritizer
func IngestWithPrioritizer(p *chunking.Prioritizer) IngestServiceOption {
	return func(s *IngestService) {
		s.prioritizer = p
	}
}

// IngestWithJobStore enables asynchronous batch jobs
func IngestWithJobStore(jobs repository.JobStore) IngestServiceOption {
	return func(s *IngestService) {
		s.jobs = jobs
	}
}

// IngestWithArchive keeps the raw text of every processed document
func IngestWithArchive(st storage.Storage, docs repository.SourceDocumentStore) IngestServiceOption {
	return func(s *IngestService) {
		s.archive = st
		s.documents = docs
	}
}

// IngestWithOnIngested registers a callback run after each newly stored document
func IngestWithOnIngested(fn func()) IngestServiceOption {
	return func(s *IngestService) {
		s.onIngested = fn
	}
}

// IngestWithWorkers bounds how many documents of a batch are processed at once
func IngestWithWorkers(n int) IngestServiceOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// IngestWithLogger sets the logger
func IngestWithLogger(logger *zap.Logger) IngestServiceOption {
	return func(s *IngestService) {
		s.logger = logger
	}
}

// IngestWithMetrics sets the metrics sink
func IngestWithMetrics(m *metrics.Metrics) IngestServiceOption {
	return func(s *IngestService) {
		s.metrics = m
	}
}

// NewIngestService creates an ingest service over the given index and record store
func NewIngestService(embedder embedding.Embedder, store vectorstore.Store, records repository.CaseRecordStore, opts ...IngestServiceOption) *IngestService {
	s := &IngestService{
		embedder: embedder,
		store:    store,
		records:  records,
		workers:  DefaultIngestWorkers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extraction.NewExtractor(extraction.NewPatternLibrary(), extraction.WithExtractorLogger(s.logger))
	}
	if s.prioritizer == nil {
		s.prioritizer = chunking.NewPrioritizer(chunking.WithPrioritizerLogger(s.logger))
	}
	return s
}

// ContentHash is the sha256 hex digest that identifies a document
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IngestDocument extracts, chunks, embeds and stores one document. Content already
// indexed under the same hash is skipped without touching the index. The case record
// is written last so a failed embedding or upsert leaves the document retryable.
func (s *IngestService) IngestDocument(ctx context.Context, collection string, doc Document) (*IngestResult, error) {
	start := time.Now()
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}

	hash := ContentHash(doc.Text)
	result := &IngestResult{Filename: doc.Filename, ContentHash: hash}

	exists, err := s.records.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("checking content hash: %w", err)
	}
	if exists {
		s.logger.Info("document already ingested, skipping",
			zap.String("source", doc.Filename),
			zap.String("content_hash", hash))
		s.metrics.RecordDocument(StatusSkipped, 0, 0)
		result.Status = StatusSkipped
		return result, nil
	}

	rec := s.extractor.Extract(doc.Text, doc.Filename)
	rec.ID = uuid.New()
	rec.ContentHash = hash
	rec.Collection = collection

	chunks := s.prioritizer.Prioritize(doc.Text, rec)
	if err := embedding.EmbedChunks(ctx, s.embedder, chunks); err != nil {
		s.metrics.RecordDocument(StatusFailed, 0, 0)
		return nil, fmt.Errorf("embedding %s: %w", doc.Filename, err)
	}
	if err := s.store.EnsureCollection(ctx, collection); err != nil {
		s.metrics.RecordDocument(StatusFailed, 0, 0)
		return nil, fmt.Errorf("creating collection %s: %w", collection, err)
	}
	if err := s.store.Upsert(ctx, collection, chunks); err != nil {
		s.metrics.RecordDocument(StatusFailed, 0, 0)
		return nil, fmt.Errorf("storing chunks of %s: %w", doc.Filename, err)
	}

	if err := s.records.Create(ctx, &rec); err != nil {
		if errors.Is(err, repository.ErrCaseRecordExists) {
			// a concurrent ingest of the same content won; its chunks carry the same IDs
			s.metrics.RecordDocument(StatusSkipped, 0, 0)
			result.Status = StatusSkipped
			return result, nil
		}
		s.metrics.RecordDocument(StatusFailed, 0, 0)
		return nil, fmt.Errorf("saving case record: %w", err)
	}

	if s.archive != nil {
		s.archiveDocument(ctx, collection, hash, doc)
	}
	if s.onIngested != nil {
		s.onIngested()
	}

	s.logger.Info("document ingested",
		zap.String("collection", collection),
		zap.String("source", doc.Filename),
		zap.String("case_number", rec.CaseNumber),
		zap.String("document_type", string(rec.DocumentType)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	s.metrics.RecordDocument(StatusProcessed, len(chunks), time.Since(start).Seconds())

	result.Status = StatusProcessed
	result.Chunks = len(chunks)
	result.Record = &rec
	return result, nil
}

// archiveDocument failures are logged only; the index is the system of record
func (s *IngestService) archiveDocument(ctx context.Context, collection, hash string, doc Document) {
	id := uuid.New()
	data := []byte(doc.Text)
	path, err := s.archive.Upload(ctx, id, collection, doc.Filename, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("failed to archive source document",
			zap.String("source", doc.Filename),
			zap.Error(err))
		return
	}
	if s.documents == nil {
		return
	}
	src := &models.SourceDocument{
		ID:          id,
		ContentHash: hash,
		Collection:  collection,
		Filename:    doc.Filename,
		MimeType:    storage.ContentTypeFor(doc.Filename),
		Size:        int64(len(data)),
		StoragePath: path,
	}
	if err := s.documents.Create(ctx, src); err != nil {
		s.logger.Warn("failed to record source document, removing archived file",
			zap.String("source", doc.Filename),
			zap.Error(err))
		_ = s.archive.Delete(ctx, path)
	}
}

// IngestBatch ingests documents concurrently and summarizes the run. Per-document
// failures are recorded in the report, not returned.
func (s *IngestService) IngestBatch(ctx context.Context, collection string, docs []Document) (*models.IngestionReport, error) {
	return s.ingestBatch(ctx, collection, docs, nil)
}

// ingestBatch calls progress after every document with its index and outcome
func (s *IngestService) ingestBatch(ctx context.Context, collection string, docs []Document, progress func(i int, status string, err error)) (*models.IngestionReport, error) {
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	report := models.NewIngestionReport(collection)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.IngestDocument(gctx, collection, doc)

			mu.Lock()
			defer mu.Unlock()
			status := StatusFailed
			switch {
			case err != nil:
				report.RecordFailure(doc.Filename, err)
				s.logger.Warn("document ingestion failed",
					zap.String("collection", collection),
					zap.String("source", doc.Filename),
					zap.Error(err))
			case res.Status == StatusSkipped:
				status = StatusSkipped
				report.Skipped++
			default:
				status = StatusProcessed
				report.Processed++
				report.TotalChunks += res.Chunks
				report.DocumentTypes[string(res.Record.DocumentType)]++
			}
			if progress != nil {
				progress(i, status, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

// ReadDirectory loads every text document directly under dir, sorted by name
func ReadDirectory(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !IsTextFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		docs = append(docs, Document{Filename: entry.Name(), Text: string(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// IsTextFile reports whether name has one of TextExtensions
func IsTextFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range TextExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IngestDirectory ingests every text document of dir into collection
func (s *IngestService) IngestDirectory(ctx context.Context, collection, dir string) (*models.IngestionReport, error) {
	docs, err := ReadDirectory(dir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingesting directory",
		zap.String("collection", collection),
		zap.String("dir", dir),
		zap.Int("documents", len(docs)))
	return s.IngestBatch(ctx, collection, docs)
}

// StartBatchJob records a pending job with one step per document and returns
// immediately. The caller runs ProcessBatchJob in the background.
func (s *IngestService) StartBatchJob(ctx context.Context, collection string, docs []Document) (*models.IngestionJob, error) {
	if s.jobs == nil {
		return nil, errors.New("ingestion job store not set")
	}
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	steps := make(models.IngestionSteps, len(docs))
	for i, doc := range docs {
		steps[i] = models.IngestionStep{Name: doc.Filename, Status: models.StepPending}
	}
	job := &models.IngestionJob{
		ID:         uuid.New(),
		Collection: collection,
		Status:     models.JobStatusPending,
		Steps:      steps,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error("failed to create ingestion job", zap.Error(err))
		return nil, ErrJobCreationFailed
	}
	return job, nil
}

// ProcessBatchJob ingests the documents of a job created by StartBatchJob, updating
// per-document steps as they finish
func (s *IngestService) ProcessBatchJob(ctx context.Context, jobID uuid.UUID, docs []Document) error {
	if s.jobs == nil {
		return errors.New("ingestion job store not set")
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return ErrJobNotFound
	}
	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("marking job in progress: %w", err)
	}

	steps := append(models.IngestionSteps(nil), job.Steps...)
	var mu sync.Mutex
	progress := func(i int, status string, docErr error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(steps) {
			return
		}
		steps[i].Status = stepStatus(status)
		if docErr != nil {
			steps[i].Description = docErr.Error()
		}
		if err := s.jobs.UpdateProgress(ctx, jobID, steps[i].Name, steps); err != nil {
			s.logger.Warn("failed to update job progress",
				zap.String("job_id", jobID.String()),
				zap.Error(err))
		}
	}

	report, err := s.ingestBatch(ctx, job.Collection, docs, progress)
	if err != nil {
		s.markJobFailed(ctx, jobID, err)
		return err
	}
	if err := s.jobs.Complete(ctx, jobID, report); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	s.logger.Info("ingestion job completed",
		zap.String("job_id", jobID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return nil
}

func stepStatus(status string) string {
	switch status {
	case StatusProcessed:
		return models.StepCompleted
	case StatusSkipped:
		return models.StepSkipped
	default:
		return models.StepFailed
	}
}

func (s *IngestService) markJobFailed(ctx context.Context, jobID uuid.UUID, cause error) {
	// the job context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		s.logger.Error("failed to mark job as failed",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
	}
}

// GetJob returns an ingestion job by ID
func (s *IngestService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.IngestionJob, error) {
	if s.jobs == nil {
		return nil, errors.New("ingestion job store not set")
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}
