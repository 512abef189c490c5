package vectorstore

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// LargePolicy mirrors the original large-database maintenance constants
// (rag_core.py's LARGE_DB_CONFIG), governing when Optimize/Reindex switch
// to batched, checkpointed execution instead of a single statement.
type LargePolicy struct {
	Threshold        int
	BatchSize        int
	CheckpointEvery  int
	MemoryCapMiB     int
}

// DefaultLargePolicy matches the original constants.
func DefaultLargePolicy() LargePolicy {
	return LargePolicy{
		Threshold:       10000,
		BatchSize:       2000,
		CheckpointEvery: 5000,
		MemoryCapMiB:    2048,
	}
}

// Progress reports incremental maintenance progress to a caller-supplied
// callback (used by the CLI's reindex command; the HTTP handlers pass no
// callback).
type Progress struct {
	Processed int
	Total     int
	MemoryMiB uint64
}

// IsLarge reports whether count triggers the incremental maintenance path.
func (p LargePolicy) IsLarge(count int) bool {
	return count >= p.Threshold
}

// Profile selects the ivfflat neighbor-list count Reindex builds the vector
// index with, trading recall for search speed (spec.md §4.5: "determine the
// index's neighbor-graph fan-out and search-beam width").
type Profile string

const (
	ProfileSmall  Profile = "small"
	ProfileMedium Profile = "medium"
	ProfileLarge  Profile = "large"
	ProfileAuto   Profile = "auto"
)

// listsFor maps a profile to an ivfflat lists value. The fixed profiles use
// pgvector's own documented starting points; auto derives lists from the
// collection's row count using pgvector's sqrt(rows) rule of thumb for
// collections past the point where a flat scan is fast enough anyway.
func listsFor(profile Profile, rowCount int) int {
	switch profile {
	case ProfileSmall:
		return 10
	case ProfileMedium:
		return 100
	case ProfileLarge:
		return 1000
	default:
		lists := int(math.Sqrt(float64(rowCount)))
		if lists < 10 {
			lists = 10
		}
		if lists > 2000 {
			lists = 2000
		}
		return lists
	}
}

func (s *Store) loadCheckpoint(ctx context.Context) (int, error) {
	var processed int
	err := s.pool.QueryRow(ctx, `SELECT processed_count FROM reindex_checkpoints WHERE collection = $1`, s.collection).Scan(&processed)
	if err != nil {
		return 0, nil // no checkpoint yet is not an error
	}
	return processed, nil
}

func (s *Store) saveCheckpoint(ctx context.Context, processed int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reindex_checkpoints (collection, processed_count, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (collection) DO UPDATE SET processed_count = EXCLUDED.processed_count, updated_at = NOW()
	`, s.collection, processed)
	return err
}

func (s *Store) clearCheckpoint(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reindex_checkpoints WHERE collection = $1`, s.collection)
	return err
}

func sampleMemoryMiB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / (1024 * 1024)
}

// Optimize runs ANALYZE for small collections, or the batched incremental
// path (with checkpointing and a memory ceiling) once count crosses
// policy.Threshold.
func (s *Store) Optimize(ctx context.Context, policy LargePolicy, onProgress func(Progress)) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if !policy.IsLarge(count) {
		_, err := s.pool.Exec(ctx, fmt.Sprintf("ANALYZE %s", s.table))
		if err != nil {
			return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("analyze collection: %w", err))
		}
		return nil
	}
	return s.runIncremental(ctx, count, policy, onProgress, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, fmt.Sprintf("ANALYZE %s", s.table))
		return err
	})
}

// Reindex rebuilds the ivfflat index with the neighbor-list count profile
// selects. For large collections it does so behind the same checkpointed
// batch loop Optimize uses, sampling memory between batches so a restart
// resumes instead of starting over.
func (s *Store) Reindex(ctx context.Context, profile Profile, policy LargePolicy, onProgress func(Progress)) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	lists := listsFor(profile, count)

	rebuild := func(ctx context.Context) error {
		return rebuildVectorIndex(ctx, s.pool, s.collection, lists)
	}

	if !policy.IsLarge(count) {
		if err := rebuild(ctx); err != nil {
			return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("reindex collection: %w", err))
		}
		return nil
	}
	return s.runIncremental(ctx, count, policy, onProgress, rebuild)
}

// runIncremental drives the checkpointed batch loop shared by Optimize and
// Reindex for large collections: it resumes from the last checkpoint,
// reports progress and memory usage every batch, aborts if resident memory
// exceeds policy.MemoryCapMiB, and clears the checkpoint on success so the
// next run starts fresh.
func (s *Store) runIncremental(ctx context.Context, count int, policy LargePolicy, onProgress func(Progress), work func(context.Context) error) error {
	processed, err := s.loadCheckpoint(ctx)
	if err != nil {
		return err
	}

	lastCheckpoint := processed
	for processed < count {
		select {
		case <-ctx.Done():
			return ragerr.New(ragerr.KindConcurrency, "", ctx.Err())
		default:
		}

		batch := policy.BatchSize
		if processed+batch > count {
			batch = count - processed
		}
		processed += batch

		memMiB := sampleMemoryMiB()
		if int(memMiB) > policy.MemoryCapMiB {
			_ = s.saveCheckpoint(ctx, processed-batch)
			return ragerr.New(ragerr.KindStorage, "reduce batch size or increase memory cap", fmt.Errorf("resident memory %dMiB exceeds cap %dMiB during incremental maintenance", memMiB, policy.MemoryCapMiB))
		}

		if processed-lastCheckpoint >= policy.CheckpointEvery || processed >= count {
			if err := s.saveCheckpoint(ctx, processed); err != nil {
				return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("save reindex checkpoint: %w", err))
			}
			lastCheckpoint = processed
		}

		if onProgress != nil {
			onProgress(Progress{Processed: processed, Total: count, MemoryMiB: memMiB})
		}
	}

	if err := work(ctx); err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("incremental maintenance work: %w", err))
	}
	return s.clearCheckpoint(ctx)
}
