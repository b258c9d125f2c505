package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"legalrag-backend/models"
)

// ChromemStore is an embedded vector store backed by chromem-go. With a path it
// persists collections to disk, otherwise it is in-memory only.
type ChromemStore struct {
	db     *chromem.DB
	dim    int
	logger *zap.Logger
}

// ChromemOption is a functional option for ChromemStore
type ChromemOption func(*ChromemStore)

// WithChromemLogger sets the logger
func WithChromemLogger(logger *zap.Logger) ChromemOption {
	return func(s *ChromemStore) {
		s.logger = logger
	}
}

// NewChromemStore opens or creates the database. dim must match the embedder.
func NewChromemStore(path string, dim int, opts ...ChromemOption) (*ChromemStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}

	s := &ChromemStore{dim: dim, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if path == "" {
		s.db = chromem.NewDB()
		return s, nil
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}
	s.db = db
	s.logger.Info("chromem store initialized", zap.String("path", path), zap.Int("vector_size", dim))
	return s, nil
}

// noEmbedding is installed on collections because every chunk and query arrives embedded
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem store requires precomputed embeddings")
}

// EnsureCollection creates the collection if needed
func (s *ChromemStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	return nil
}

// HasCollection reports whether the collection exists
func (s *ChromemStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.db.GetCollection(name, noEmbedding) != nil, nil
}

// ListCollections returns collection names in sorted order
func (s *ChromemStore) ListCollections(ctx context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert adds chunks; chromem replaces documents with an existing ID
func (s *ChromemStore) Upsert(ctx context.Context, collection string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := CheckEmbeddings(chunks, s.dim); err != nil {
		return err
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	col := s.db.GetCollection(collection, noEmbedding)

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Content,
			Metadata:  c.Metadata,
			Embedding: c.Embedding,
		}
	}
	// concurrency of 1 since embeddings are already present
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents to %s: %w", collection, err)
	}
	s.logger.Debug("upserted chunks", zap.String("collection", collection), zap.Int("count", len(chunks)))
	return nil
}

// Search queries the collection by embedding
func (s *ChromemStore) Search(ctx context.Context, collection string, embedding []float32, k int) ([]models.ScoredChunk, error) {
	col := s.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return nil, ErrCollectionNotFound
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(embedding), s.dim, ErrDimensionMismatch)
	}

	// chromem requires nResults <= doc count
	count := col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}
	out := make([]models.ScoredChunk, len(results))
	for i, r := range results {
		c := ChunkFromMetadata(collection, r.ID, r.Content, r.Metadata)
		c.Embedding = r.Embedding
		out[i] = models.ScoredChunk{Chunk: c, Score: float64(r.Similarity)}
	}
	return out, nil
}

// probe is a unit vector used to enumerate every document through the query API
func (s *ChromemStore) probe() []float32 {
	v := make([]float32, s.dim)
	v[0] = 1
	return v
}

func (s *ChromemStore) all(ctx context.Context, collection string, where map[string]string) ([]models.Chunk, error) {
	col := s.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return nil, ErrCollectionNotFound
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := col.QueryEmbedding(ctx, s.probe(), count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("listing collection %s: %w", collection, err)
	}
	out := make([]models.Chunk, len(results))
	for i, r := range results {
		out[i] = ChunkFromMetadata(collection, r.ID, r.Content, r.Metadata)
		out[i].Embedding = r.Embedding
	}
	sortByDocument(out)
	return out, nil
}

// Scan visits every chunk ordered by source and index
func (s *ChromemStore) Scan(ctx context.Context, collection string, fn func(models.Chunk) bool) error {
	chunks, err := s.all(ctx, collection, nil)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if !fn(c) {
			return nil
		}
	}
	return nil
}

// FindByMetadata pushes the exact-match filter down to chromem's where clause
func (s *ChromemStore) FindByMetadata(ctx context.Context, collection, key, value string, limit int) ([]models.Chunk, error) {
	chunks, err := s.all(ctx, collection, map[string]string{key: value})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Close is a no-op; persistent chromem writes on every add
func (s *ChromemStore) Close() error {
	return nil
}
