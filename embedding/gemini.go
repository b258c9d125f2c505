package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"legalrag-backend/metrics"
)

const (
	DefaultGeminiModel     = "text-embedding-004"
	DefaultGeminiDimension = 768

	// Google's batch API limit
	batchSize      = 100
	maxRetries     = 3
	initialBackoff = time.Second
)

// GeminiEmbedder embeds text with a Gemini embedding model
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	backoff   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// GeminiOption is a functional option for GeminiEmbedder
type GeminiOption func(*GeminiEmbedder)

// WithModel sets the embedding model name
func WithModel(model string) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.model = model
	}
}

// WithDimension sets the expected vector size
func WithDimension(dim int) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.dimension = dim
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.metrics = m
	}
}

// NewGeminiEmbedder wraps an existing genai client
func NewGeminiEmbedder(client *genai.Client, opts ...GeminiOption) *GeminiEmbedder {
	g := &GeminiEmbedder{
		client:    client,
		model:     DefaultGeminiModel,
		dimension: DefaultGeminiDimension,
		backoff:   initialBackoff,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimension returns the configured vector size
func (g *GeminiEmbedder) Dimension() int {
	return g.dimension
}

// EmbedDocuments embeds texts in batches of 100 with the retrieval-document task type
func (g *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		var resp *genai.BatchEmbedContentsResponse
		err := g.retry(ctx, func() error {
			var err error
			resp, err = em.BatchEmbedContents(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("mismatch: got %d embeddings for %d inputs in batch", len(resp.Embeddings), end-start)
		}
		for i, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("empty embedding for input %d: %w", start+i, ErrEmbeddingFailed)
			}
			Normalize(e.Values)
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// EmbedQuery embeds a retrieval query
func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	var resp *genai.EmbedContentResponse
	err := g.retry(ctx, func() error {
		var err error
		resp, err = em.EmbedContent(ctx, genai.Text(text))
		return err
	})
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrEmbeddingFailed
	}
	Normalize(resp.Embedding.Values)
	return resp.Embedding.Values, nil
}

// retry runs fn up to maxRetries times with exponential backoff
func (g *GeminiEmbedder) retry(ctx context.Context, fn func() error) error {
	var err error
	backoff := g.backoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err = fn()
		g.metrics.RecordEmbedding(err)
		if err == nil {
			return nil
		}
		g.logger.Warn("embedding request failed",
			zap.String("model", g.model),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, maxRetries, err)
}
