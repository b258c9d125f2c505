package vectorstore

import (
	"context"
	"sort"
	"sync"

	"legalrag-backend/models"
)

// MemoryStore is an in-process vector store guarded by a RWMutex
type MemoryStore struct {
	mu          sync.RWMutex
	dim         int
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	order  []string
	chunks map[string]models.Chunk
}

// NewMemoryStore creates an empty store; dim of zero accepts any vector size
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		dim:         dim,
		collections: make(map[string]*memoryCollection),
	}
}

// EnsureCollection creates the collection if needed
func (s *MemoryStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &memoryCollection{chunks: make(map[string]models.Chunk)}
	}
	return nil
}

// HasCollection reports whether the collection exists
func (s *MemoryStore) HasCollection(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// ListCollections returns collection names in sorted order
func (s *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert stores chunks, replacing any with the same ID
func (s *MemoryStore) Upsert(ctx context.Context, collection string, chunks []models.Chunk) error {
	if err := CheckEmbeddings(chunks, s.dim); err != nil {
		return err
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	for _, c := range chunks {
		c.Collection = collection
		if _, exists := col.chunks[c.ID]; !exists {
			col.order = append(col.order, c.ID)
		}
		col.chunks[c.ID] = c
	}
	return nil
}

// Search ranks every chunk of the collection by cosine similarity
func (s *MemoryStore) Search(ctx context.Context, collection string, embedding []float32, k int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]models.ScoredChunk, 0, len(col.order))
	for _, id := range col.order {
		c := col.chunks[id]
		results = append(results, models.ScoredChunk{Chunk: c, Score: CosineSimilarity(embedding, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Scan visits chunks in insertion order
func (s *MemoryStore) Scan(ctx context.Context, collection string, fn func(models.Chunk) bool) error {
	s.mu.RLock()
	col, ok := s.collections[collection]
	if !ok {
		s.mu.RUnlock()
		return ErrCollectionNotFound
	}
	snapshot := make([]models.Chunk, 0, len(col.order))
	for _, id := range col.order {
		snapshot = append(snapshot, col.chunks[id])
	}
	s.mu.RUnlock()

	for _, c := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(c) {
			return nil
		}
	}
	return nil
}

// FindByMetadata returns chunks whose metadata value equals value exactly
func (s *MemoryStore) FindByMetadata(ctx context.Context, collection, key, value string, limit int) ([]models.Chunk, error) {
	var out []models.Chunk
	err := s.Scan(ctx, collection, func(c models.Chunk) bool {
		if c.Metadata[key] == value {
			out = append(out, c)
		}
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
