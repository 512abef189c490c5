package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// Store is the Postgres+pgvector backed Vector Store for one collection.
type Store struct {
	pool       *pgxpool.Pool
	collection string
	table      string
	dimension  int
}

// Open ensures the collection's schema exists and returns a Store bound to
// it.
func Open(ctx context.Context, pool *pgxpool.Pool, collection string, dimension int) (*Store, error) {
	if err := EnsureSchema(ctx, pool, collection, dimension); err != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", err)
	}
	table, err := quoteIdent(collection)
	if err != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", err)
	}
	return &Store{pool: pool, collection: collection, table: table, dimension: dimension}, nil
}

func encodeMetadata(m ChunkMetadata) ([]byte, error) {
	return json.Marshal(map[string]any{
		"source":                          m.Source,
		"file_path":                       m.FilePath,
		"file_type":                       m.FileType,
		"processed_date":                  m.ProcessedDate,
		"processing_method":               m.ProcessingMethod,
		"chunk_index":                     m.ChunkIndex,
		"chunk_total":                     m.ChunkTotal,
		"structural_info_titles_count":    m.StructuralTitlesCount,
		"structural_info_tables_count":    m.StructuralTablesCount,
		"structural_info_lists_count":     m.StructuralListsCount,
	})
}

func decodeMetadata(raw []byte) (ChunkMetadata, error) {
	var m ChunkMetadata
	var fields struct {
		Source            string  `json:"source"`
		FilePath          string  `json:"file_path"`
		FileType          string  `json:"file_type"`
		ProcessedDate     string  `json:"processed_date"`
		ProcessingMethod  string  `json:"processing_method"`
		ChunkIndex        int     `json:"chunk_index"`
		ChunkTotal        int     `json:"chunk_total"`
		TitlesCount       int     `json:"structural_info_titles_count"`
		TablesCount       int     `json:"structural_info_tables_count"`
		ListsCount        int     `json:"structural_info_lists_count"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return m, err
	}
	m.Source = fields.Source
	m.FilePath = fields.FilePath
	m.FileType = fields.FileType
	if fields.ProcessedDate != "" {
		if t, err := time.Parse(time.RFC3339, fields.ProcessedDate); err == nil {
			m.ProcessedDate = t
		}
	}
	m.ProcessingMethod = fields.ProcessingMethod
	m.ChunkIndex = fields.ChunkIndex
	m.ChunkTotal = fields.ChunkTotal
	m.StructuralTitlesCount = fields.TitlesCount
	m.StructuralTablesCount = fields.TablesCount
	m.StructuralListsCount = fields.ListsCount
	return m, nil
}

// Upsert writes chunks in a single transaction, deduping on the chunk
// fingerprint id (spec.md §3, Chunk.id invariant).
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("begin upsert tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := s.upsertTx(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("commit upsert tx: %w", err))
	}
	return nil
}

// upsertTx runs the per-row insert/update within an already-open
// transaction, shared by Upsert and ReplaceSource.
func (s *Store) upsertTx(ctx context.Context, tx pgx.Tx, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (id, text, embedding, oversized, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			oversized = EXCLUDED.oversized,
			metadata = EXCLUDED.metadata`, s.table)

	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("%w: chunk %s has dimension %d, collection expects %d", ragerr.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimension))
		}
		metaJSON, err := encodeMetadata(c.Metadata)
		if err != nil {
			return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("encode metadata for chunk %s: %w", c.ID, err))
		}
		if _, err := tx.Exec(ctx, stmt, c.ID, c.Text, pgvector.NewVector(c.Embedding), c.Oversized, metaJSON); err != nil {
			return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("upsert chunk %s: %w", c.ID, err))
		}
	}
	return nil
}

// ReplaceSource deletes every existing chunk for source and inserts chunks
// in a single transaction, so a concurrent Search never observes source with
// zero chunks (spec.md §5, upserts from one document are atomic) and a
// failed write leaves the previously-stored chunks untouched instead of
// dropping them (spec.md §8 invariant: a failed learn_document leaves
// store.count() unchanged).
func (s *Store) ReplaceSource(ctx context.Context, source string, chunks []Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("begin replace-source tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = $1", s.table), source); err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("delete by source: %w", err))
	}

	if err := s.upsertTx(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("commit replace-source tx: %w", err))
	}
	return nil
}

// Search returns the k nearest chunks to queryEmbedding under cosine
// distance, optionally narrowed by filter.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]ScoredChunk, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("%w: query has dimension %d, collection expects %d", ragerr.ErrDimensionMismatch, len(queryEmbedding), s.dimension))
	}
	if k <= 0 {
		k = 5
	}

	where, args, err := compileFilter(filter, 1)
	if err != nil {
		return nil, ragerr.New(ragerr.KindInput, "", err)
	}
	whereClause := ""
	if where != "" {
		whereClause = "WHERE " + where
	}

	query := fmt.Sprintf(`SELECT id, text, embedding, oversized, metadata, (embedding <=> $1::vector) AS distance
		FROM %s
		%s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, s.table, whereClause, len(args)+2)

	queryArgs := append([]any{pgvector.NewVector(queryEmbedding)}, args...)
	queryArgs = append(queryArgs, k)

	rows, err := s.pool.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("search query: %w", err))
	}
	defer rows.Close()

	return scanScoredChunks(rows)
}

// SearchWithThreshold is Search filtered to results within maxDistance,
// used by the query orchestrator's hallucination guard.
func (s *Store) SearchWithThreshold(ctx context.Context, queryEmbedding []float32, k int, filter Filter, maxDistance float64) ([]ScoredChunk, error) {
	results, err := s.Search(ctx, queryEmbedding, k, filter)
	if err != nil {
		return nil, err
	}
	kept := results[:0]
	for _, r := range results {
		if r.Distance <= maxDistance {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func scanScoredChunks(rows pgx.Rows) ([]ScoredChunk, error) {
	var results []ScoredChunk
	for rows.Next() {
		var (
			id        string
			text      string
			vec       pgvector.Vector
			oversized bool
			metaRaw   []byte
			distance  float64
		)
		if err := rows.Scan(&id, &text, &vec, &oversized, &metaRaw, &distance); err != nil {
			return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("scan search row: %w", err))
		}
		metadata, err := decodeMetadata(metaRaw)
		if err != nil {
			return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("decode metadata: %w", err))
		}
		results = append(results, ScoredChunk{
			Chunk: Chunk{
				ID:        id,
				Text:      text,
				Embedding: vec.Slice(),
				Oversized: oversized,
				Metadata:  metadata,
			},
			Distance: distance,
			Score:    1 / (1 + distance),
		})
	}
	if rows.Err() != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", rows.Err())
	}
	return results, nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	if err != nil {
		return 0, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("count chunks: %w", err))
	}
	return n, nil
}

// Stats reports collection-level counters for the maintenance API, matching
// spec.md §4.5's stats() shape: totals, per-file-type and per-processing-
// method breakdowns, and titles/tables totals and per-document averages.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	var docs int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(DISTINCT source) FROM %s", s.table)).Scan(&docs); err != nil {
		return Stats{}, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("count documents: %w", err))
	}

	byFileType, err := s.groupedCounts(ctx, "file_type")
	if err != nil {
		return Stats{}, err
	}
	byMethod, err := s.groupedCounts(ctx, "processing_method")
	if err != nil {
		return Stats{}, err
	}

	var totalTitles, totalTables int
	err = s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COALESCE(SUM(structural_titles_count), 0), COALESCE(SUM(structural_tables_count), 0) FROM %s`,
		s.table,
	)).Scan(&totalTitles, &totalTables)
	if err != nil {
		return Stats{}, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("sum structural counts: %w", err))
	}

	stats := Stats{
		TotalChunks:        total,
		TotalDocuments:     docs,
		Dimension:          s.dimension,
		CollectionName:     s.collection,
		ByFileType:         byFileType,
		ByProcessingMethod: byMethod,
		TotalTitles:        totalTitles,
		TotalTables:        totalTables,
	}
	if docs > 0 {
		stats.AvgTitlesPerDoc = float64(totalTitles) / float64(docs)
		stats.AvgTablesPerDoc = float64(totalTables) / float64(docs)
	}
	return stats, nil
}

// groupedCounts runs SELECT column, COUNT(*) ... GROUP BY column for one of
// the fixed generated columns schema.go declares. column is never
// user-supplied — it's always one of the two literals Stats calls this
// with — but the allowlist keeps that invariant enforced at the call site
// rather than assumed.
func (s *Store) groupedCounts(ctx context.Context, column string) (map[string]int, error) {
	if column != "file_type" && column != "processing_method" {
		return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("groupedCounts: unsupported column %q", column))
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT COALESCE(%s, ''), COUNT(*) FROM %s GROUP BY %s`, column, s.table, column,
	))
	if err != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("group by %s: %w", column, err))
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, ragerr.New(ragerr.KindStorage, "", fmt.Errorf("scan grouped count: %w", err))
		}
		if key == "" {
			continue
		}
		counts[key] = n
	}
	if rows.Err() != nil {
		return nil, ragerr.New(ragerr.KindStorage, "", rows.Err())
	}
	return counts, nil
}

// Clear removes every chunk in the collection, used by the `clear` CLI
// command and the /v1/clear HTTP handler.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", s.table))
	if err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("truncate collection: %w", err))
	}
	return nil
}
