package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"legalrag-backend/models"
)

var (
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrInvalidCollectionName = errors.New("invalid collection name")
	ErrDimensionMismatch     = errors.New("embedding dimension mismatch")
	ErrMissingEmbedding      = errors.New("chunk has no embedding")
)

// Payload keys used by stores that keep content next to the metadata
const (
	PayloadContent = "content"
	PayloadChunkID = "chunk_id"
)

// Store is a collection-scoped vector index of chunks
type Store interface {
	// EnsureCollection creates the collection if it does not exist
	EnsureCollection(ctx context.Context, name string) error
	HasCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	// Upsert writes chunks by ID; writing the same ID twice replaces the chunk
	Upsert(ctx context.Context, collection string, chunks []models.Chunk) error
	// Search returns up to k chunks ordered by descending similarity.
	// A missing collection returns ErrCollectionNotFound.
	Search(ctx context.Context, collection string, embedding []float32, k int) ([]models.ScoredChunk, error)
	// Scan calls fn for every chunk of the collection until fn returns false
	Scan(ctx context.Context, collection string, fn func(models.Chunk) bool) error
	Close() error
}

// MetadataSearcher is implemented by stores that can filter on an exact metadata value
// without a full scan
type MetadataSearcher interface {
	FindByMetadata(ctx context.Context, collection, key, value string, limit int) ([]models.Chunk, error)
}

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,62}$`)

// ValidateCollectionName rejects names that are unsafe as directory or table identifiers
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// ChunkFromMetadata rebuilds a chunk from its stored id, content and flat metadata
func ChunkFromMetadata(collection, id, content string, meta map[string]string) models.Chunk {
	c := models.Chunk{
		ID:         id,
		Collection: collection,
		Content:    content,
		Tier:       models.Tier(meta[models.MetaTier]),
		Type:       models.ChunkType(meta[models.MetaChunkType]),
		Metadata:   meta,
	}
	if idx, err := strconv.Atoi(meta[models.MetaChunkIndex]); err == nil {
		c.Index = idx
	}
	if c.Tier == "" {
		if rank, err := strconv.Atoi(meta[models.MetaChunkPriority]); err == nil {
			c.Tier = models.TierFromRank(rank)
		} else {
			c.Tier = models.TierNormal
		}
	}
	return c
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when the
// lengths differ or either vector is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// sortByDocument orders chunks by source then index so scans are deterministic
func sortByDocument(chunks []models.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if si, sj := chunks[i].Source(), chunks[j].Source(); si != sj {
			return si < sj
		}
		return chunks[i].Index < chunks[j].Index
	})
}

// CheckEmbeddings rejects chunks without an embedding or with the wrong dimension
func CheckEmbeddings(chunks []models.Chunk, dim int) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w", c.ID, ErrMissingEmbedding)
		}
		if dim > 0 && len(c.Embedding) != dim {
			return fmt.Errorf("chunk %s has %d dimensions, want %d: %w", c.ID, len(c.Embedding), dim, ErrDimensionMismatch)
		}
	}
	return nil
}
