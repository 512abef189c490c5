package embedding

import (
	"bytes"
	"context"
	"log"
	"os"
	"sync/atomic"
	"testing"
)

type fakeProvider struct {
	calls     atomic.Int64
	dimension int
}

func (f *fakeProvider) Identity() string { return "fake:test" }
func (f *fakeProvider) Dimension() int   { return f.dimension }

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 2}
	}
	return out, nil
}

func newTestService(t *testing.T, provider Provider) *Service {
	t.Helper()
	svc, err := NewService(provider, t.TempDir(), 64, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestEmbedCachesAcrossCalls(t *testing.T) {
	provider := &fakeProvider{dimension: 3}
	svc := newTestService(t, provider)
	ctx := context.Background()

	v1, err := svc.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := svc.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v1) != 3 || len(v2) != 3 {
		t.Fatalf("expected 3-dim vectors, got %v %v", v1, v2)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", provider.calls.Load())
	}
	stats := svc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %+v", stats)
	}
}

func TestEmbedBatchPartitionsCachedAndUncached(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(t, provider)
	ctx := context.Background()

	if _, err := svc.Embed(ctx, "alpha"); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	results, err := svc.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
	}
	if provider.calls.Load() != 2 {
		t.Fatalf("expected 2 total provider calls (1 warmup + 1 batch), got %d", provider.calls.Load())
	}
}

func TestEmbeddingSurvivesDiskAfterMemoryClear(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(t, provider)
	ctx := context.Background()

	if _, err := svc.Embed(ctx, "persisted text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	svc.memory.Clear()

	if _, err := svc.Embed(ctx, "persisted text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected disk hit to avoid a second provider call, got %d calls", provider.calls.Load())
	}
	if svc.Stats().DiskHits != 1 {
		t.Fatalf("expected 1 disk hit, got %+v", svc.Stats())
	}
}

func TestClearResetsCountersAndCache(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(t, provider)
	ctx := context.Background()

	if _, err := svc.Embed(ctx, "some text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if err := svc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats := svc.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.MemorySize != 0 || stats.DiskSize != 0 {
		t.Fatalf("expected fully reset stats, got %+v", stats)
	}

	if _, err := svc.Embed(ctx, "some text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if provider.calls.Load() != 2 {
		t.Fatalf("expected a fresh provider call after Clear, got %d", provider.calls.Load())
	}
}

func TestEmbedLogsAndDegradesOnDiskCacheWriteFailure(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{dimension: 3}

	var logBuf bytes.Buffer
	logger := log.New(&logBuf, "", 0)
	svc, err := NewService(provider, dir, 64, logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod cache dir read-only: %v", err)
	}
	defer os.Chmod(dir, 0o755)

	vec, err := svc.Embed(context.Background(), "unwritable")
	if err != nil {
		t.Fatalf("Embed should degrade to memory-only, not fail: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected embedding to still be returned, got %v", vec)
	}
	if logBuf.Len() == 0 {
		t.Fatal("expected a log line for the failed disk cache write")
	}
}
