package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// quoteIdent validates and double-quotes a table name derived from
// CollectionName, refusing anything that isn't already a safe identifier
// rather than attempting to escape it.
func quoteIdent(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid collection identifier: %q", name)
	}
	return `"` + name + `"`, nil
}

// defaultIVFFlatLists is the neighbor-list count EnsureSchema builds the
// index with before any Reindex(profile) call has had a chance to tune it
// to the collection's actual size (see incremental.go's listsFor).
const defaultIVFFlatLists = 100

// EnsureSchema creates the chunk table for one collection plus the shared
// reindex checkpoint table, generalized from the teacher's fixed
// rag_chunks table to the metadata-rich Chunk model.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	table, err := quoteIdent(collection)
	if err != nil {
		return err
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			oversized BOOLEAN NOT NULL DEFAULT FALSE,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			structural_titles_count INT GENERATED ALWAYS AS ((metadata->>'structural_info_titles_count')::int) STORED,
			structural_tables_count INT GENERATED ALWAYS AS ((metadata->>'structural_info_tables_count')::int) STORED,
			structural_lists_count INT GENERATED ALWAYS AS ((metadata->>'structural_info_lists_count')::int) STORED,
			source TEXT GENERATED ALWAYS AS (metadata->>'source') STORED,
			file_type TEXT GENERATED ALWAYS AS (metadata->>'file_type') STORED,
			processing_method TEXT GENERATED ALWAYS AS (metadata->>'processing_method') STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, indexName(collection, "embedding"), table, defaultIVFFlatLists),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source)`, indexName(collection, "source"), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (file_type)`, indexName(collection, "file_type"), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (processing_method)`, indexName(collection, "processing_method"), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (metadata)`, indexName(collection, "metadata"), table),
		`CREATE TABLE IF NOT EXISTS reindex_checkpoints (
			collection TEXT PRIMARY KEY,
			processed_count INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// rebuildVectorIndex drops and recreates the ivfflat index with a new lists
// value. pgvector's ivfflat lists count is fixed at build time (unlike a
// btree, ALTER INDEX cannot retune it), so changing it means rebuilding the
// index outright — the same reason Store.Reindex already exists as a
// distinct, checkpointed operation from Optimize's ANALYZE pass.
func rebuildVectorIndex(ctx context.Context, pool *pgxpool.Pool, collection string, lists int) error {
	table, err := quoteIdent(collection)
	if err != nil {
		return err
	}
	name := indexName(collection, "embedding")
	stmts := []string{
		fmt.Sprintf(`DROP INDEX IF EXISTS %s`, name),
		fmt.Sprintf(`CREATE INDEX %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, name, table, lists),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild vector index: %w", err)
		}
	}
	return nil
}

func indexName(collection, suffix string) string {
	name := "idx_" + collection + "_" + suffix
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}
