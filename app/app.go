// Package app wires configuration into the services shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"legalrag-backend/chunking"
	"legalrag-backend/config"
	"legalrag-backend/embedding"
	"legalrag-backend/extraction"
	"legalrag-backend/metrics"
	"legalrag-backend/repository"
	"legalrag-backend/retrieval"
	"legalrag-backend/service"
	"legalrag-backend/storage"
	"legalrag-backend/vectorstore"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// App holds the constructed services and the resources they own
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	DB       *pgxpool.Pool
	Gemini   *genai.Client
	Embedder embedding.Embedder
	Store    vectorstore.Store
	Records  repository.CaseRecordStore
	Jobs     repository.JobStore

	Resolver *retrieval.Resolver
	Router   *retrieval.Router
	Ingest   *service.IngestService
	Query    *service.QueryService
}

// New builds every component named by cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	if cfg.Database.URL != "" {
		db, err := initPostgres(ctx, cfg.Database.URL, a.Logger)
		if err != nil {
			return fmt.Errorf("initializing postgres: %w", err)
		}
		a.DB = db
	}

	if cfg.Embedding.APIKey != "" {
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Embedding.APIKey))
		if err != nil {
			return fmt.Errorf("initializing gemini: %w", err)
		}
		a.Gemini = client
		a.Logger.Info("Gemini client initialized")
	}

	embedder, err := a.newEmbedder()
	if err != nil {
		return err
	}
	a.Embedder = embedder

	store, err := a.newStore()
	if err != nil {
		return err
	}
	a.Store = store

	if err := a.newRepositories(); err != nil {
		return err
	}

	patterns := extraction.NewPatternLibrary()
	resolver, err := retrieval.NewResolver(a.Records, a.Store, a.Embedder,
		retrieval.WithResolverLogger(a.Logger),
		retrieval.WithResolverMetrics(a.Metrics),
		retrieval.WithResolverPatterns(patterns),
		retrieval.WithCacheSize(cfg.Retrieval.CacheSize),
		retrieval.WithExcerptChars(cfg.Retrieval.ExcerptChars),
	)
	if err != nil {
		return fmt.Errorf("creating citation resolver: %w", err)
	}
	a.Resolver = resolver

	a.Router = retrieval.NewRouter(a.Store, a.Embedder,
		retrieval.WithRouterLogger(a.Logger),
		retrieval.WithRouterMetrics(a.Metrics),
		retrieval.WithAnalyzer(retrieval.NewAnalyzer(patterns)),
		retrieval.WithParallelism(cfg.Retrieval.Parallelism),
	)

	ingestOpts := []service.IngestServiceOption{
		service.IngestWithExtractor(extraction.NewExtractor(patterns, extraction.WithExtractorLogger(a.Logger))),
		service.IngestWithPrioritizer(chunking.NewPrioritizer(
			chunking.WithSplitter(chunking.NewRecursiveSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)),
			chunking.WithSummaryChunks(cfg.Ingest.SummaryChunks),
			chunking.WithPrioritizerLogger(a.Logger),
		)),
		service.IngestWithJobStore(a.Jobs),
		service.IngestWithOnIngested(resolver.Purge),
		service.IngestWithWorkers(cfg.Ingest.Workers),
		service.IngestWithLogger(a.Logger),
		service.IngestWithMetrics(a.Metrics),
	}
	archive, docs, err := a.newArchive(ctx)
	if err != nil {
		return err
	}
	ingestOpts = append(ingestOpts, service.IngestWithArchive(archive, docs))
	a.Ingest = service.NewIngestService(a.Embedder, a.Store, a.Records, ingestOpts...)

	queryOpts := []service.QueryServiceOption{
		service.QueryWithPatterns(patterns),
		service.QueryWithDefaultK(cfg.Retrieval.K),
		service.QueryWithMaxK(cfg.Retrieval.MaxK),
		service.QueryWithLogger(a.Logger),
	}
	if a.Gemini != nil {
		queryOpts = append(queryOpts, service.QueryWithAnswerer(service.NewGeminiAnswerer(a.Gemini,
			service.AnswerWithModel(cfg.Generation.Model),
			service.AnswerWithTemperature(cfg.Generation.Temperature),
			service.AnswerWithMaxContextChars(cfg.Generation.MaxContextChars),
			service.AnswerWithJurisdiction(cfg.Generation.Jurisdiction),
			service.AnswerWithLogger(a.Logger),
		)))
	} else {
		a.Logger.Warn("GEMINI_API_KEY not set, answer generation disabled")
	}
	a.Query = service.NewQueryService(a.Router, a.Resolver, a.Records, a.Store, queryOpts...)
	return nil
}

func (a *App) newEmbedder() (embedding.Embedder, error) {
	cfg := a.Config.Embedding
	switch cfg.Provider {
	case config.EmbeddingGemini:
		if a.Gemini == nil {
			return nil, errors.New("embedding.provider gemini requires an API key")
		}
		return embedding.NewGeminiEmbedder(a.Gemini,
			embedding.WithModel(cfg.Model),
			embedding.WithDimension(cfg.Dimension),
			embedding.WithLogger(a.Logger),
			embedding.WithMetrics(a.Metrics),
		), nil
	case config.EmbeddingHashing:
		a.Logger.Warn("using the hashing embedder; retrieval quality is lexical only")
		return embedding.NewHashingEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func (a *App) newStore() (vectorstore.Store, error) {
	cfg := a.Config.VectorStore
	dim := a.Embedder.Dimension()
	switch cfg.Backend {
	case config.BackendChromem:
		s, err := vectorstore.NewChromemStore(cfg.Path, dim, vectorstore.WithChromemLogger(a.Logger))
		if err != nil {
			return nil, fmt.Errorf("opening chromem store: %w", err)
		}
		return s, nil
	case config.BackendQdrant:
		s, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantKey,
			UseTLS: cfg.QdrantTLS,
		}, dim, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return s, nil
	case config.BackendPgvector:
		if a.DB == nil {
			return nil, errors.New("pgvector backend requires database.url")
		}
		return repository.NewChunkRepository(a.DB, dim), nil
	case config.BackendMemory:
		return vectorstore.NewMemoryStore(dim), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}

func (a *App) newRepositories() error {
	if a.DB != nil {
		a.Records = repository.NewCaseRecordRepository(a.DB)
		a.Jobs = repository.NewIngestionJobRepository(a.DB)
		return nil
	}
	records, err := repository.OpenJSONCaseRecordStore(a.Config.Ingest.RecordsPath)
	if err != nil {
		return err
	}
	a.Records = records
	a.Jobs = repository.NewMemoryJobStore()
	a.Logger.Info("no database configured, keeping case records in a file",
		zap.String("path", a.Config.Ingest.RecordsPath))
	return nil
}

// newArchive pairs the configured storage with the database or in-process source document store
func (a *App) newArchive(ctx context.Context) (storage.Storage, repository.SourceDocumentStore, error) {
	st, err := storage.NewStorage(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.Logger.Info("Storage initialized", zap.String("type", a.Config.Storage.Type))
	if a.DB != nil {
		return st, repository.NewSourceDocumentRepository(a.DB), nil
	}
	return st, repository.NewMemorySourceDocumentStore(), nil
}

// Close releases the store, the Gemini client and the database pool
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if a.Gemini != nil {
		if err := a.Gemini.Close(); err != nil {
			a.Logger.Warn("closing gemini client", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func initPostgres(ctx context.Context, url string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		logger.Warn("failed to create pgvector extension; it may already exist or need superuser privileges",
			zap.Error(err))
	}
	logger.Info("Postgres connection established")
	return pool, nil
}
