package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"legalrag-backend/models"
	"legalrag-backend/vectorstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository is a pgvector-backed vector store. Collections are rows of the
// chunk_collections table and chunks share one legal_chunks table.
type ChunkRepository struct {
	db  *pgxpool.Pool
	dim int
}

// NewChunkRepository creates a new chunk repository for embeddings of dim dimensions
func NewChunkRepository(db *pgxpool.Pool, dim int) *ChunkRepository {
	return &ChunkRepository{db: db, dim: dim}
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// EnsureCollection registers the collection
func (r *ChunkRepository) EnsureCollection(ctx context.Context, name string) error {
	if err := vectorstore.ValidateCollectionName(name); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunk_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// HasCollection reports whether the collection is registered
func (r *ChunkRepository) HasCollection(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chunk_collections WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return exists, nil
}

// ListCollections returns collection names in sorted order
func (r *ChunkRepository) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM chunk_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan collections: %w", err)
	}
	return names, nil
}

// Upsert inserts chunks in one batch, replacing rows with the same ID
func (r *ChunkRepository) Upsert(ctx context.Context, collection string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorstore.CheckEmbeddings(chunks, r.dim); err != nil {
		return err
	}
	if err := r.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	query := `
		INSERT INTO legal_chunks (
			id, collection, source_document, chunk_index, chunk_text, metadata, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (id) DO UPDATE SET
			chunk_text = EXCLUDED.chunk_text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(query, c.ID, collection, c.Source(), c.Index, c.Content, c.Metadata, formatVector(c.Embedding))
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert chunks into %s: %w", collection, err)
	}
	return nil
}

// Search performs a cosine similarity search inside one collection
func (r *ChunkRepository) Search(ctx context.Context, collection string, embedding []float32, k int) ([]models.ScoredChunk, error) {
	exists, err := r.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, vectorstore.ErrCollectionNotFound
	}
	if r.dim > 0 && len(embedding) != r.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(embedding), r.dim, vectorstore.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	query := `
		SELECT
			id,
			chunk_text,
			metadata,
			1 - (embedding <=> $1::vector) AS similarity
		FROM legal_chunks
		WHERE collection = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), collection, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var (
			id, text string
			meta     map[string]string
			score    float64
		)
		if err := rows.Scan(&id, &text, &meta, &score); err != nil {
			return nil, fmt.Errorf("failed to scan legal chunk: %w", err)
		}
		results = append(results, models.ScoredChunk{
			Chunk: vectorstore.ChunkFromMetadata(collection, id, text, meta),
			Score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legal chunks: %w", err)
	}
	return results, nil
}

func (r *ChunkRepository) queryChunks(ctx context.Context, collection, query string, args ...any) ([]models.Chunk, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			id, text string
			meta     map[string]string
		)
		if err := rows.Scan(&id, &text, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan legal chunk: %w", err)
		}
		chunks = append(chunks, vectorstore.ChunkFromMetadata(collection, id, text, meta))
	}
	return chunks, rows.Err()
}

// Scan visits every chunk ordered by source document and index
func (r *ChunkRepository) Scan(ctx context.Context, collection string, fn func(models.Chunk) bool) error {
	exists, err := r.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return vectorstore.ErrCollectionNotFound
	}

	query := `
		SELECT id, chunk_text, metadata
		FROM legal_chunks
		WHERE collection = $1
		ORDER BY source_document, chunk_index`

	chunks, err := r.queryChunks(ctx, collection, query, collection)
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

// FindByMetadata uses JSONB containment so the GIN index on metadata applies
func (r *ChunkRepository) FindByMetadata(ctx context.Context, collection, key, value string, limit int) ([]models.Chunk, error) {
	query := `
		SELECT id, chunk_text, metadata
		FROM legal_chunks
		WHERE collection = $1 AND metadata @> jsonb_build_object($2::text, $3::text)
		ORDER BY source_document, chunk_index`

	args := []any{collection, key, value}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}
	return r.queryChunks(ctx, collection, query, args...)
}

// Close is a no-op; the pool is owned by the caller
func (r *ChunkRepository) Close() error {
	return nil
}

var (
	_ vectorstore.Store            = (*ChunkRepository)(nil)
	_ vectorstore.MetadataSearcher = (*ChunkRepository)(nil)
)
