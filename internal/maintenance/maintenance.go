// Package maintenance implements the maintenance operations (C8): cache
// and store inspection, and the reindex/optimize entry points with
// progress reporting for an external UI.
package maintenance

import (
	"context"

	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

// CacheReport is the before/after shape returned by cache operations,
// grounded on the teacher's clearCmd before/after logging pattern.
type CacheReport struct {
	Stats embedding.Stats
}

// StoreReport wraps vectorstore.Stats for the maintenance surface.
type StoreReport struct {
	Stats vectorstore.Stats
}

// ReindexProgress is reported to the caller's callback as reindex/optimize
// advance through checkpointed batches (spec.md §4.8).
type ReindexProgress struct {
	Processed int
	Total     int
	MemoryMiB float64
}

// Ops bundles the cache and store handles maintenance operates on.
type Ops struct {
	cache *embedding.Service
	store *vectorstore.Store
}

func New(cache *embedding.Service, store *vectorstore.Store) *Ops {
	return &Ops{cache: cache, store: store}
}

// CacheStats reports the embedding cache's current hit/miss/size counters.
func (o *Ops) CacheStats() CacheReport {
	return CacheReport{Stats: o.cache.Stats()}
}

// ClearCache reports the cache state before clearing, then clears it.
func (o *Ops) ClearCache() (before CacheReport, err error) {
	before = o.CacheStats()
	if err := o.cache.Clear(); err != nil {
		return before, err
	}
	return before, nil
}

// StoreStats reports the vector store's current chunk/document counts.
func (o *Ops) StoreStats(ctx context.Context) (StoreReport, error) {
	stats, err := o.store.Stats(ctx)
	if err != nil {
		return StoreReport{}, err
	}
	return StoreReport{Stats: stats}, nil
}

// OptimizeStore runs an ANALYZE (small collections) or an incremental,
// checkpointed optimize pass (large collections), reporting before/after
// store stats and streaming progress through onProgress.
func (o *Ops) OptimizeStore(ctx context.Context, policy vectorstore.LargePolicy, onProgress func(ReindexProgress)) (before, after StoreReport, err error) {
	before, err = o.StoreStats(ctx)
	if err != nil {
		return before, StoreReport{}, err
	}

	if err := o.store.Optimize(ctx, policy, adaptProgress(onProgress)); err != nil {
		return before, StoreReport{}, err
	}

	after, err = o.StoreStats(ctx)
	if err != nil {
		return before, StoreReport{}, err
	}
	return before, after, nil
}

// ReindexStore rebuilds the collection's vector index at the requested
// profile (small/medium/large/auto — spec.md §4.5), checkpointed for
// resumability on large collections, reporting before/after store stats.
func (o *Ops) ReindexStore(ctx context.Context, profile vectorstore.Profile, policy vectorstore.LargePolicy, onProgress func(ReindexProgress)) (before, after StoreReport, err error) {
	before, err = o.StoreStats(ctx)
	if err != nil {
		return before, StoreReport{}, err
	}

	if err := o.store.Reindex(ctx, profile, policy, adaptProgress(onProgress)); err != nil {
		return before, StoreReport{}, err
	}

	after, err = o.StoreStats(ctx)
	if err != nil {
		return before, StoreReport{}, err
	}
	return before, after, nil
}

func adaptProgress(onProgress func(ReindexProgress)) func(vectorstore.Progress) {
	if onProgress == nil {
		return nil
	}
	return func(p vectorstore.Progress) {
		onProgress(ReindexProgress{Processed: p.Processed, Total: p.Total, MemoryMiB: float64(p.MemoryMiB)})
	}
}
