package embedding

import (
	"fmt"
	"testing"
)

func TestShardedLRUEvictsOldestPerShard(t *testing.T) {
	lru := newShardedLRU(shardCount) // 1 slot per shard
	lru.Set("a", []float32{1})
	if _, ok := lru.Get("a"); !ok {
		t.Fatal("expected key 'a' to be present immediately after Set")
	}

	victim := lru.shardFor("a")
	for i := 0; ; i++ {
		k := fmt.Sprintf("k%d", i)
		if lru.shardFor(k) != victim {
			continue
		}
		lru.Set(k, []float32{2})
		if _, ok := lru.Get("a"); ok {
			t.Fatal("expected 'a' to be evicted once another key filled its one-slot shard")
		}
		if _, ok := lru.Get(k); !ok {
			t.Fatalf("expected newest key %q to be present", k)
		}
		break
	}
}

func TestShardedLRUGetMissingKey(t *testing.T) {
	lru := newShardedLRU(32)
	if _, ok := lru.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestShardedLRUClear(t *testing.T) {
	lru := newShardedLRU(32)
	lru.Set("x", []float32{1, 2})
	lru.Clear()
	if lru.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got len %d", lru.Len())
	}
}
