package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"legalrag-backend/models"
)

// Embedder turns text into vectors. Document and query embeddings may differ
// (task-typed models), so callers pick the matching method.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

var (
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
	ErrEmptyInput      = errors.New("embedding input is empty")
)

// Normalize scales v to unit L2 length in place. Zero vectors are left untouched.
func Normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// BuildInput prefixes the chunk text with tagged metadata so the embedding carries the
// case context, e.g. "[CASE: 24F-H036-REL]".
func BuildInput(c models.Chunk) string {
	var b strings.Builder
	tag := func(name, key string) {
		if v := c.Metadata[key]; v != "" {
			fmt.Fprintf(&b, "[%s: %s]\n", name, v)
		}
	}
	tag("CASE", models.MetaCaseNumber)
	tag("DOCUMENT_TYPE", models.MetaDocumentType)
	tag("STATUTES", models.MetaStatutesCited)
	tag("REGULATIONS", models.MetaRegulationsCited)
	tag("RESPONDENT", models.MetaRespondent)
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(c.Content)
	return b.String()
}

// EmbedChunks embeds every chunk with its tagged input and attaches the vectors
func EmbedChunks(ctx context.Context, e Embedder, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = BuildInput(c)
	}
	vectors, err := e.EmbedDocuments(ctx, inputs)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("mismatch: got %d embeddings for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}
