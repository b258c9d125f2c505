// Package config loads service configuration from defaults, an optional YAML file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// Vector store backends
const (
	BackendChromem  = "chromem"
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Embedding providers
const (
	EmbeddingGemini  = "gemini"
	EmbeddingHashing = "hashing"
)

// Config is the full service configuration
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	VectorStore VectorStoreConfig `koanf:"vector_store"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	Generation  GenerationConfig  `koanf:"generation"`
	Storage     StorageConfig     `koanf:"storage"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Log         LogConfig         `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	Mode            string        `koanf:"mode"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// IngestAPIKeyHash is the bcrypt hash of the key required by the ingest routes.
	// Empty leaves ingestion open.
	IngestAPIKeyHash string `koanf:"ingest_api_key_hash"`
	MaxUploadBytes   int64  `koanf:"max_upload_bytes"`
}

type DatabaseConfig struct {
	// URL is a postgres connection string. Empty keeps case records in a JSON file.
	URL string `koanf:"url"`
}

type VectorStoreConfig struct {
	Backend    string `koanf:"backend"`
	Path       string `koanf:"path"`
	QdrantHost string `koanf:"qdrant_host"`
	QdrantPort int    `koanf:"qdrant_port"`
	QdrantKey  string `koanf:"qdrant_api_key"`
	QdrantTLS  bool   `koanf:"qdrant_tls"`
}

type EmbeddingConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	Dimension int    `koanf:"dimension"`
	APIKey    string `koanf:"api_key"`
}

type GenerationConfig struct {
	Model       string  `koanf:"model"`
	Temperature float32 `koanf:"temperature"`
	// MaxContextChars bounds the retrieved text placed in the prompt
	MaxContextChars int    `koanf:"max_context_chars"`
	Jurisdiction    string `koanf:"jurisdiction"`
}

type StorageConfig struct {
	Type         string `koanf:"type"`
	LocalPath    string `koanf:"local_path"`
	S3Bucket     string `koanf:"s3_bucket"`
	S3Region     string `koanf:"s3_region"`
	AWSAccessKey string `koanf:"aws_access_key"`
	AWSSecretKey string `koanf:"aws_secret_key"`
}

type IngestConfig struct {
	ChunkSize     int  `koanf:"chunk_size"`
	ChunkOverlap  int  `koanf:"chunk_overlap"`
	SummaryChunks bool `koanf:"summary_chunks"`
	Workers       int  `koanf:"workers"`
	// RecordsPath is the JSON case-record file used when no database is configured
	RecordsPath string `koanf:"records_path"`
}

type RetrievalConfig struct {
	K int `koanf:"k"`
	// MaxK caps the k a request may ask for
	MaxK         int `koanf:"max_k"`
	Parallelism  int `koanf:"parallelism"`
	CacheSize    int `koanf:"cache_size"`
	ExcerptChars int `koanf:"excerpt_chars"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// sections lists the top-level keys; environment variables are matched against them
// longest first so VECTOR_STORE_PATH maps to vector_store.path
var sections = []string{"vector_store", "generation", "retrieval", "embedding", "database", "storage", "server", "ingest", "log"}

// aliases keep the variable names of earlier deployments working
var aliases = map[string]string{
	"PORT":                  "server.port",
	"GEMINI_API_KEY":        "embedding.api_key",
	"STORAGE_TYPE":          "storage.type",
	"STORAGE_LOCAL_PATH":    "storage.local_path",
	"AWS_S3_BUCKET":         "storage.s3_bucket",
	"AWS_REGION":            "storage.s3_region",
	"AWS_ACCESS_KEY_ID":     "storage.aws_access_key",
	"AWS_SECRET_ACCESS_KEY": "storage.aws_secret_key",
}

// EnvKey maps an environment variable to its config key, or "" when it is not ours.
//
//	DATABASE_URL         -> database.url
//	VECTOR_STORE_BACKEND -> vector_store.backend
//	SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
func EnvKey(name string) string {
	if key, ok := aliases[name]; ok {
		return key
	}
	lower := strings.ToLower(name)
	for _, section := range sections {
		if field, ok := strings.CutPrefix(lower, section+"_"); ok && field != "" {
			return section + "." + field
		}
	}
	return ""
}

// Load reads .env (if present), the YAML file at path (if non-empty) and the
// environment, in increasing precedence, then applies defaults and validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg, k)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

// applyDefaults fills zero values. Booleans that default to true are only
// defaulted when no source set them.
func applyDefaults(cfg *Config, k *koanf.Koanf) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 * 1024 * 1024
	}

	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = BackendChromem
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./data/index"
	}
	if cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = 6334
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingGemini
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 768
	}

	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gemini-1.5-pro"
	}
	if cfg.Generation.MaxContextChars == 0 {
		cfg.Generation.MaxContextChars = 30000
	}
	if cfg.Generation.Jurisdiction == "" {
		cfg.Generation.Jurisdiction = "Arizona"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/files"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}

	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if !k.Exists("ingest.summary_chunks") {
		cfg.Ingest.SummaryChunks = true
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.RecordsPath == "" {
		cfg.Ingest.RecordsPath = "./data/case_records.json"
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 6
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	if cfg.Retrieval.Parallelism == 0 {
		cfg.Retrieval.Parallelism = 4
	}
	if cfg.Retrieval.CacheSize == 0 {
		cfg.Retrieval.CacheSize = 1024
	}
	if cfg.Retrieval.ExcerptChars == 0 {
		cfg.Retrieval.ExcerptChars = 200
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks enumerations and ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.VectorStore.Backend {
	case BackendChromem, BackendQdrant, BackendMemory:
	case BackendPgvector:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("vector_store.backend pgvector requires database.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector_store.backend %q", c.VectorStore.Backend))
	}
	switch c.Embedding.Provider {
	case EmbeddingGemini, EmbeddingHashing:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension must be positive"))
	}
	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("storage.s3_bucket is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, errors.New("ingest.chunk_overlap must be smaller than ingest.chunk_size"))
	}
	if c.Retrieval.K <= 0 {
		errs = append(errs, errors.New("retrieval.k must be positive"))
	}
	if c.Retrieval.MaxK < c.Retrieval.K {
		errs = append(errs, errors.New("retrieval.max_k must not be smaller than retrieval.k"))
	}
	return errors.Join(errs...)
}
