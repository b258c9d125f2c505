package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"legalrag-backend/models"
)

// QdrantConfig holds the gRPC connection settings
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// ApplyDefaults fills zero values
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
}

// QdrantStore keeps each corpus in its own Qdrant collection. Chunk content and the
// flat metadata travel in the point payload.
type QdrantStore struct {
	client *qdrant.Client
	dim    int
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant over gRPC
func NewQdrantStore(cfg QdrantConfig, dim int, logger *zap.Logger) (*QdrantStore, error) {
	cfg.ApplyDefaults()
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.UseTLS {
		logger.Warn("qdrant gRPC using plaintext, TLS disabled")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return &QdrantStore{client: client, dim: dim, logger: logger}, nil
}

// wrapNotFound maps the gRPC NotFound status onto ErrCollectionNotFound
func wrapNotFound(err error, collection string) error {
	if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
		return fmt.Errorf("%s: %w", collection, ErrCollectionNotFound)
	}
	return err
}

// EnsureCollection creates a cosine collection sized to the store dimension
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.logger.Info("created qdrant collection", zap.String("collection", name), zap.Int("vector_size", s.dim))
	return nil
}

// HasCollection reports whether the collection exists
func (s *QdrantStore) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return exists, nil
}

// ListCollections returns collection names in sorted order
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert writes chunks as points keyed by chunk ID
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := CheckEmbeddings(chunks, s.dim); err != nil {
		return err
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(c.Metadata)+2)
		for k, v := range c.Metadata {
			payload[k] = v
		}
		payload[PayloadContent] = c.Content
		payload[PayloadChunkID] = c.ID
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting to %s: %w", collection, err)
	}
	return nil
}

// chunkFromPayload splits the payload back into content, ID and string metadata
func chunkFromPayload(collection string, id *qdrant.PointId, payload map[string]*qdrant.Value) models.Chunk {
	meta := make(map[string]string, len(payload))
	var content, chunkID string
	for k, v := range payload {
		sv, ok := v.GetKind().(*qdrant.Value_StringValue)
		if !ok {
			continue
		}
		switch k {
		case PayloadContent:
			content = sv.StringValue
		case PayloadChunkID:
			chunkID = sv.StringValue
		default:
			meta[k] = sv.StringValue
		}
	}
	if chunkID == "" && id != nil {
		chunkID = id.GetUuid()
	}
	return ChunkFromMetadata(collection, chunkID, content, meta)
}

// Search runs a nearest-neighbour query
func (s *QdrantStore) Search(ctx context.Context, collection string, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(embedding), s.dim, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", collection, wrapNotFound(err, collection))
	}
	out := make([]models.ScoredChunk, len(points))
	for i, p := range points {
		out[i] = models.ScoredChunk{
			Chunk: chunkFromPayload(collection, p.GetId(), p.GetPayload()),
			Score: float64(p.GetScore()),
		}
	}
	return out, nil
}

const scrollPageSize = 256

// scroll pages through the collection, optionally filtered by one keyword match.
// Each page asks for one extra point whose ID becomes the next offset.
func (s *QdrantStore) scroll(ctx context.Context, collection string, filter *qdrant.Filter, limit int, fn func(models.Chunk) bool) error {
	var offset *qdrant.PointId
	seen := 0
	for {
		page := scrollPageSize
		if limit > 0 && limit-seen < page {
			page = limit - seen
		}
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(page + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return fmt.Errorf("scrolling %s: %w", collection, wrapNotFound(err, collection))
		}

		more := len(points) > page
		if more {
			offset = points[page].GetId()
			points = points[:page]
		}
		for _, p := range points {
			seen++
			if !fn(chunkFromPayload(collection, p.GetId(), p.GetPayload())) {
				return nil
			}
		}
		if !more || (limit > 0 && seen >= limit) {
			return nil
		}
	}
}

// Scan visits every chunk ordered by source and index
func (s *QdrantStore) Scan(ctx context.Context, collection string, fn func(models.Chunk) bool) error {
	var chunks []models.Chunk
	err := s.scroll(ctx, collection, nil, 0, func(c models.Chunk) bool {
		chunks = append(chunks, c)
		return true
	})
	if err != nil {
		return err
	}
	sortByDocument(chunks)
	for _, c := range chunks {
		if !fn(c) {
			return nil
		}
	}
	return nil
}

// FindByMetadata filters server-side on an exact payload keyword
func (s *QdrantStore) FindByMetadata(ctx context.Context, collection, key, value string, limit int) ([]models.Chunk, error) {
	filter := &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(key, value)}}
	var chunks []models.Chunk
	err := s.scroll(ctx, collection, filter, limit, func(c models.Chunk) bool {
		chunks = append(chunks, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	sortByDocument(chunks)
	return chunks, nil
}

// Close releases the gRPC connection
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
