package embedding

import (
	"container/list"
	"hash/fnv"
	"sync"
)

const shardCount = 16

// shardedLRU is a fixed-capacity, sharded in-memory cache. Sharding keeps
// the hot path lock-scoped to one shard's mutex instead of a single global
// lock guarding every lookup.
type shardedLRU struct {
	shards     [shardCount]*lruShard
	perShardCap int
}

type lruShard struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
}

type lruEntry struct {
	key   string
	value []float32
}

func newShardedLRU(totalCapacity int) *shardedLRU {
	if totalCapacity < shardCount {
		totalCapacity = shardCount
	}
	perShard := totalCapacity / shardCount
	s := &shardedLRU{perShardCap: perShard}
	for i := range s.shards {
		s.shards[i] = &lruShard{
			items:    make(map[string]*list.Element),
			order:    list.New(),
			capacity: perShard,
		}
	}
	return s
}

func (s *shardedLRU) shardFor(key string) *lruShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *shardedLRU) Get(key string) ([]float32, bool) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	el, ok := shard.items[key]
	if !ok {
		return nil, false
	}
	shard.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (s *shardedLRU) Set(key string, value []float32) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if el, ok := shard.items[key]; ok {
		shard.order.MoveToFront(el)
		el.Value.(*lruEntry).value = value
		return
	}

	el := shard.order.PushFront(&lruEntry{key: key, value: value})
	shard.items[key] = el

	for shard.order.Len() > shard.capacity {
		oldest := shard.order.Back()
		if oldest == nil {
			break
		}
		shard.order.Remove(oldest)
		delete(shard.items, oldest.Value.(*lruEntry).key)
	}
}

func (s *shardedLRU) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += shard.order.Len()
		shard.mu.Unlock()
	}
	return total
}

func (s *shardedLRU) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.items = make(map[string]*list.Element)
		shard.order.Init()
		shard.mu.Unlock()
	}
}
