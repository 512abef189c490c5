package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

// Stats mirrors the counters the original EmbeddingCache tracked, renamed
// to Go field conventions.
type Stats struct {
	Hits       int64
	Misses     int64
	DiskHits   int64
	MemorySize int
	DiskSize   int
}

// Service fronts a Provider with a memory LRU, a disk tier, and
// singleflight-coalesced provider calls. Coalescing is keyed on the whole
// set of missing keys in a call, so concurrent calls missing the same set
// (e.g. concurrent Embed calls for one text) share one provider round-trip;
// calls whose missing sets only partly overlap are not coalesced.
type Service struct {
	provider Provider
	memory   *shardedLRU
	disk     *diskCache
	group    singleflight.Group
	logger   *log.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	diskHits atomic.Int64

	mu sync.Mutex
}

// NewService builds a Service. memoryCapacity bounds the total number of
// entries held across all memory shards. logger receives cache degradation
// warnings, e.g. a failed disk write (spec.md §7: CacheError degrades to
// memory-only and logs); a nil logger falls back to a logger writing to
// stderr.
func NewService(provider Provider, cacheDir string, memoryCapacity int, logger *log.Logger) (*Service, error) {
	disk, err := newDiskCache(cacheDir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Service{
		provider: provider,
		memory:   newShardedLRU(memoryCapacity),
		disk:     disk,
		logger:   logger,
	}, nil
}

func (s *Service) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(s.provider.Identity()))
	h.Write([]byte{0})
	h.Write([]byte(normalize.Normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Embed returns the embedding for one text, consulting memory then disk
// before falling through to the provider.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch partitions texts into cached and uncached, issues a single
// provider call for the uncached partition, and reassembles results in the
// caller's original order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := s.cacheKey(text)
		keys[i] = key

		if vec, ok := s.memory.Get(key); ok {
			s.hits.Add(1)
			results[i] = vec
			continue
		}
		if vec, ok := s.disk.Get(key); ok {
			s.diskHits.Add(1)
			s.memory.Set(key, vec)
			results[i] = vec
			continue
		}
		s.misses.Add(1)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fetched, err := s.fetchCoalesced(ctx, missTexts, keys, missIdx)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		results[i] = fetched[j]
	}
	return results, nil
}

// fetchCoalesced batches missing texts through a single provider call,
// coalescing duplicate in-flight requests for identical keys via
// singleflight so a burst of requests for the same text costs one call.
func (s *Service) fetchCoalesced(ctx context.Context, texts []string, allKeys []string, missIdx []int) ([][]float32, error) {
	type slot struct {
		vec []float32
		err error
	}

	uniqueOrder := make([]string, 0, len(texts))
	uniqueText := make(map[string]string, len(texts))
	seen := make(map[string]bool, len(texts))
	for j, text := range texts {
		key := allKeys[missIdx[j]]
		if seen[key] {
			continue
		}
		seen[key] = true
		uniqueOrder = append(uniqueOrder, key)
		uniqueText[key] = text
	}

	batchTexts := make([]string, len(uniqueOrder))
	for i, key := range uniqueOrder {
		batchTexts[i] = uniqueText[key]
	}

	fetchOnce := func() (interface{}, error) {
		vecs, err := s.provider.EmbedBatch(ctx, batchTexts)
		if err != nil {
			return nil, err
		}
		out := make(map[string]slot, len(uniqueOrder))
		for i, key := range uniqueOrder {
			out[key] = slot{vec: vecs[i]}
			s.memory.Set(key, vecs[i])
			if err := s.disk.Set(key, vecs[i]); err != nil {
				s.logger.Printf("embedding: disk cache write failed, degrading to memory-only for key %s: %v", key, err)
			}
		}
		return out, nil
	}

	groupKey := ""
	for _, k := range uniqueOrder {
		groupKey += k
	}
	raw, err, _ := s.group.Do(groupKey, fetchOnce)
	if err != nil {
		return nil, err
	}
	byKey := raw.(map[string]slot)

	results := make([][]float32, len(texts))
	for j := range texts {
		key := allKeys[missIdx[j]]
		results[j] = byKey[key].vec
	}
	return results, nil
}

func (s *Service) Stats() Stats {
	return Stats{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		DiskHits:   s.diskHits.Load(),
		MemorySize: s.memory.Len(),
		DiskSize:   s.disk.Count(),
	}
}

// Clear empties both cache tiers and resets counters.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.Clear()
	if err := s.disk.Clear(); err != nil {
		return err
	}
	s.hits.Store(0)
	s.misses.Store(0)
	s.diskHits.Store(0)
	return nil
}

func (s *Service) Identity() string { return s.provider.Identity() }
func (s *Service) Dimension() int   { return s.provider.Dimension() }
