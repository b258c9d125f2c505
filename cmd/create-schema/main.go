package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"legalrag-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// table is one statement of the schema, applied in order
type table struct {
	name string
	sql  string
}

func schema(dim int) []table {
	return []table{
		{
			name: "case_records",
			sql: `
CREATE TABLE IF NOT EXISTS case_records (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    content_hash CHAR(64) NOT NULL UNIQUE,
    collection VARCHAR(63) NOT NULL,
    source_filename VARCHAR(255) NOT NULL,
    case_number VARCHAR(64),
    document_type VARCHAR(32) NOT NULL,
    authority_weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,

    -- Full extracted metadata
    record JSONB NOT NULL,

    created_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "chunk_collections",
			sql: `
CREATE TABLE IF NOT EXISTS chunk_collections (
    name VARCHAR(63) PRIMARY KEY,
    created_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "legal_chunks",
			sql: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS legal_chunks (
    -- Deterministic id derived from content hash and chunk index
    id TEXT PRIMARY KEY,
    collection VARCHAR(63) NOT NULL REFERENCES chunk_collections(name) ON DELETE CASCADE,
    source_document VARCHAR(255) NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_text TEXT NOT NULL,

    -- Flattened case metadata (case_number, document_type, tier, ...)
    metadata JSONB DEFAULT '{}'::jsonb,

    embedding vector(%d),

    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`, dim),
		},
		{
			name: "ingestion_jobs",
			sql: `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    collection VARCHAR(63) NOT NULL,
    status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'failed')),
    current_step VARCHAR(255),
    steps JSONB DEFAULT '[]'::jsonb,
    report JSONB,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    completed_at TIMESTAMP
);`,
		},
		{
			name: "source_documents",
			sql: `
CREATE TABLE IF NOT EXISTS source_documents (
    id UUID PRIMARY KEY,
    content_hash CHAR(64) NOT NULL,
    collection VARCHAR(63) NOT NULL,
    filename VARCHAR(255) NOT NULL,
    mime_type VARCHAR(100),
    size BIGINT,
    storage_path TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);`,
		},
	}
}

var indexes = []table{
	{
		name: "Vector similarity search (HNSW)",
		sql: `CREATE INDEX IF NOT EXISTS idx_embedding_hnsw ON legal_chunks
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
	},
	{
		name: "Chunk collection and order",
		sql:  "CREATE INDEX IF NOT EXISTS idx_chunks_collection_order ON legal_chunks(collection, source_document, chunk_index);",
	},
	{
		name: "Metadata JSONB filtering",
		sql:  "CREATE INDEX IF NOT EXISTS idx_metadata_gin ON legal_chunks USING gin (metadata);",
	},
	{
		name: "Case records by collection",
		sql:  "CREATE INDEX IF NOT EXISTS idx_case_records_collection ON case_records(collection, source_filename);",
	},
	{
		name: "Case records by case number",
		sql:  "CREATE INDEX IF NOT EXISTS idx_case_records_case_number ON case_records(case_number) WHERE case_number IS NOT NULL;",
	},
	{
		name: "Case record JSONB filtering",
		sql:  "CREATE INDEX IF NOT EXISTS idx_case_records_gin ON case_records USING gin (record);",
	},
	{
		name: "Source documents by collection",
		sql:  "CREATE INDEX IF NOT EXISTS idx_source_documents_collection ON source_documents(collection, created_at DESC);",
	},
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	drop := flag.Bool("drop", false, "drop existing tables first (development only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database.url (DATABASE_URL) is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Enable pgvector extension
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
	} else {
		log.Println("✓ pgvector extension enabled")
	}

	tables := schema(cfg.Embedding.Dimension)
	if *drop {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables[i].name+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop table %s: %v", tables[i].name, err)
			}
		}
		log.Println("✓ Dropped existing tables")
	}

	for _, t := range tables {
		if _, err := pool.Exec(ctx, t.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", t.name, err)
		}
		log.Printf("✓ Created %s table", t.name)
	}

	created := 0
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
			continue
		}
		created++
		log.Printf("✓ Created index: %s", idx.name)
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d, vector dimension %d\n", len(tables), cfg.Embedding.Dimension)
	fmt.Printf("   Indexes: %d of %d created\n", created, len(indexes))
}
