package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashingEmbedder is a deterministic bag-of-words embedder that needs no network.
// Tokens are hashed into a fixed number of buckets and the vector is L2 normalized.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder; non-positive dimensions default to 256
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

// Dimension returns the vector size
func (h *HashingEmbedder) Dimension() int {
	return h.dim
}

// EmbedDocuments embeds each text
func (h *HashingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

// EmbedQuery embeds a single query
func (h *HashingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *HashingEmbedder) embed(text string) []float32 {
	v := make([]float32, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		f := fnv.New32a()
		f.Write([]byte(tok))
		sum := f.Sum32()
		idx := int(sum % uint32(h.dim))
		// the high bit picks the sign so unrelated tokens tend to cancel
		if sum&0x80000000 != 0 {
			v[idx] -= 1
		} else {
			v[idx] += 1
		}
	}
	Normalize(v)
	return v
}
