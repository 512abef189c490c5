package knowledgebase

import (
	"context"
	"errors"
	"testing"

	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

// stubVectorStore is a hand-written stub implementing the narrow Store
// interface, standing in for a live Postgres-backed vectorstore.Store so
// ingest's atomicity behavior can be exercised without a database.
type stubVectorStore struct {
	chunks      map[string]vectorstore.Chunk
	replaceErr  error
	replaceCall int
}

func newStubVectorStore() *stubVectorStore {
	return &stubVectorStore{chunks: make(map[string]vectorstore.Chunk)}
}

func (s *stubVectorStore) ReplaceSource(_ context.Context, source string, chunks []vectorstore.Chunk) error {
	s.replaceCall++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	for id, c := range s.chunks {
		if c.Metadata.Source == source {
			delete(s.chunks, id)
		}
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *stubVectorStore) Stats(context.Context) (vectorstore.Stats, error) {
	sources := make(map[string]bool)
	for _, c := range s.chunks {
		sources[c.Metadata.Source] = true
	}
	return vectorstore.Stats{TotalChunks: len(s.chunks), TotalDocuments: len(sources)}, nil
}

// stubProvider is a deterministic embedding.Provider that never touches the
// network, so tests can build a real embedding.Service without a backend.
type stubProvider struct {
	dimension int
	failAfter int // fail once EmbedBatch has been called this many times, 0 = never
	calls     int
}

func (p *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.failAfter > 0 && p.calls > p.failAfter {
		return nil, errors.New("stub provider: simulated embedding failure")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, p.dimension)
		vec[0] = float32(len(texts[i]))
		out[i] = vec
	}
	return out, nil
}

func (p *stubProvider) Identity() string { return "stub" }
func (p *stubProvider) Dimension() int   { return p.dimension }

func newTestKnowledgeBase(t *testing.T, provider embedding.Provider) (*KnowledgeBase, *stubVectorStore) {
	t.Helper()
	svc, err := embedding.NewService(provider, t.TempDir(), 64, nil)
	if err != nil {
		t.Fatalf("embedding.NewService: %v", err)
	}
	store := newStubVectorStore()
	return New(store, svc, nil), store
}

func TestLearnTextIdempotentReingestReplacesRatherThanDuplicates(t *testing.T) {
	kb, store := newTestKnowledgeBase(t, &stubProvider{dimension: 4})

	text := "The quick brown fox jumps over the lazy dog. It repeats itself for length."
	if _, err := kb.LearnText(context.Background(), text, "doc-a"); err != nil {
		t.Fatalf("first learn: %v", err)
	}
	firstCount := len(store.chunks)
	if firstCount == 0 {
		t.Fatal("expected chunks after first ingest")
	}

	if _, err := kb.LearnText(context.Background(), text, "doc-a"); err != nil {
		t.Fatalf("second learn: %v", err)
	}
	if len(store.chunks) != firstCount {
		t.Fatalf("re-ingesting the same document should replace, not grow: got %d chunks, want %d", len(store.chunks), firstCount)
	}
}

func TestLearnTextFailedIngestLeavesStoreUnchanged(t *testing.T) {
	kb, store := newTestKnowledgeBase(t, &stubProvider{dimension: 4})

	if _, err := kb.LearnText(context.Background(), "first document contents here", "doc-a"); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}
	before := len(store.chunks)

	store.replaceErr = errors.New("simulated store failure")
	if _, err := kb.LearnText(context.Background(), "second document, different source", "doc-b"); err == nil {
		t.Fatal("expected ingest to fail")
	}

	if len(store.chunks) != before {
		t.Fatalf("failed ingest must leave store unchanged: got %d chunks, want %d", len(store.chunks), before)
	}
}

func TestFingerprintIsStableAndDistinguishesInputs(t *testing.T) {
	a := fingerprint("doc.md", 0, "hello")
	b := fingerprint("doc.md", 0, "hello")
	if a != b {
		t.Fatal("fingerprint must be deterministic for identical inputs")
	}
	c := fingerprint("doc.md", 1, "hello")
	if a == c {
		t.Fatal("fingerprint must differ across chunk indices")
	}
	d := fingerprint("other.md", 0, "hello")
	if a == d {
		t.Fatal("fingerprint must differ across sources")
	}
}

func TestParentFolder(t *testing.T) {
	cases := map[string]string{
		"/a/b/c.md": "/a/b",
		"c.md":      "",
		"/c.md":     "",
	}
	for in, want := range cases {
		if got := parentFolder(in); got != want {
			t.Fatalf("parentFolder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSectionIDIncludesDocAndOrder(t *testing.T) {
	id := sectionID("doc123", 3)
	if id != "doc123-section-3" {
		t.Fatalf("unexpected section id: %s", id)
	}
}

func TestIsSupportedNonHTML(t *testing.T) {
	if isSupportedNonHTML(".html") || isSupportedNonHTML(".htm") || isSupportedNonHTML("") {
		t.Fatal("html/empty extensions must not be treated as downloadable")
	}
	if !isSupportedNonHTML(".pdf") {
		t.Fatal(".pdf should be a supported downloadable extension")
	}
	if isSupportedNonHTML(".zip") {
		t.Fatal(".zip is not in the supported registry")
	}
}

func TestDownloadableExtensionPrefersContentType(t *testing.T) {
	ext := downloadableExtension("application/pdf; charset=binary", "https://example.com/report")
	if ext != ".pdf" {
		t.Fatalf("expected .pdf from content-type, got %q", ext)
	}
}

func TestDownloadableExtensionFallsBackToPathSuffix(t *testing.T) {
	ext := downloadableExtension("", "https://example.com/files/notes.csv")
	if ext != ".csv" {
		t.Fatalf("expected .csv from path suffix, got %q", ext)
	}
}

func TestDownloadableExtensionEmptyForHTMLPage(t *testing.T) {
	ext := downloadableExtension("text/html; charset=utf-8", "https://example.com/blog/post")
	if ext != "" {
		t.Fatalf("expected empty extension for an HTML page, got %q", ext)
	}
}
