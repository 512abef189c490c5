package query

import (
	"context"
	"testing"
	"time"

	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/llm"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

type fakeReader struct {
	chunks []vectorstore.ScoredChunk
	err    error
	calls  int
}

func (f *fakeReader) SearchWithThreshold(ctx context.Context, queryEmbedding []float32, k int, filter vectorstore.Filter, maxDistance float64) ([]vectorstore.ScoredChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeEmbedProvider struct{ dim int }

func (p *fakeEmbedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, p.dim)
	}
	return out, nil
}
func (p *fakeEmbedProvider) Identity() string { return "fake:test" }
func (p *fakeEmbedProvider) Dimension() int   { return p.dim }

type fakeLLM struct {
	calls   int
	reply   string
	lastMsg []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	f.lastMsg = messages
	return f.reply, nil
}

func newTestEmbedder(t *testing.T) *embedding.Service {
	t.Helper()
	svc, err := embedding.NewService(&fakeEmbedProvider{dim: 4}, t.TempDir(), 16, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAskHallucinationGuardSkipsLLMOnZeroChunks(t *testing.T) {
	reader := &fakeReader{chunks: nil}
	model := &fakeLLM{reply: "should not appear"}
	orch := New(reader, newTestEmbedder(t), nil, model, DefaultConfig())

	answer, err := orch.Ask(context.Background(), "what is the boiling point?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("expected LLM not to be invoked, got %d calls", model.calls)
	}
	if answer.Text != noInformationText {
		t.Fatalf("expected canned no-information text, got %q", answer.Text)
	}
	if answer.Confidence != ConfidenceNone {
		t.Fatalf("expected ConfidenceNone, got %q", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", answer.Sources)
	}
}

func TestAskEmptyQueryShortCircuitsWithoutSearch(t *testing.T) {
	reader := &fakeReader{}
	model := &fakeLLM{}
	orch := New(reader, newTestEmbedder(t), nil, model, DefaultConfig())

	answer, err := orch.Ask(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if reader.calls != 0 {
		t.Fatalf("expected no search for an empty query, got %d calls", reader.calls)
	}
	if answer.Confidence != ConfidenceNone {
		t.Fatalf("expected ConfidenceNone, got %q", answer.Confidence)
	}
}

func chunkFrom(source string, index, total int, distance float64, text string) vectorstore.ScoredChunk {
	return vectorstore.ScoredChunk{
		Chunk: vectorstore.Chunk{
			Text: text,
			Metadata: vectorstore.ChunkMetadata{
				Source:        source,
				ChunkIndex:    index,
				ChunkTotal:    total,
				ProcessedDate: time.Unix(0, 0).UTC(),
			},
		},
		Distance: distance,
		Score:    1 / (1 + distance),
	}
}

func TestAskInvokesLLMAndReturnsConfidenceLimitedForOneSource(t *testing.T) {
	reader := &fakeReader{chunks: []vectorstore.ScoredChunk{
		chunkFrom("material_properties", 0, 1, 0.1, "gold melts at 1064 degrees celsius"),
	}}
	model := &fakeLLM{reply: "Gold melts at 1064°C [Source 1]."}
	orch := New(reader, newTestEmbedder(t), nil, model, DefaultConfig())

	answer, err := orch.Ask(context.Background(), "when does gold melt?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", model.calls)
	}
	if answer.Confidence != ConfidenceLimited {
		t.Fatalf("expected ConfidenceLimited, got %q", answer.Confidence)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Source != "material_properties" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
}

func TestMergeSourcesCollapsesBySourceAndOrdersByBestDistance(t *testing.T) {
	chunks := []vectorstore.ScoredChunk{
		chunkFrom("b.md", 2, 3, 0.25, "far chunk from b"),
		chunkFrom("a.md", 0, 2, 0.05, "closest chunk overall"),
		chunkFrom("b.md", 0, 3, 0.10, "closer chunk from b"),
	}

	sources := mergeSources(chunks, 5)
	if len(sources) != 2 {
		t.Fatalf("expected 2 collapsed sources, got %d", len(sources))
	}
	if sources[0].Source != "a.md" {
		t.Fatalf("expected a.md ordered first (lowest distance), got %s", sources[0].Source)
	}
	if sources[1].Source != "b.md" || sources[1].ChunkIndex != 0 {
		t.Fatalf("expected b.md represented by its lowest-distance chunk (index 0), got %+v", sources[1])
	}
}

func TestMergeSourcesTruncatesToLimit(t *testing.T) {
	chunks := []vectorstore.ScoredChunk{
		chunkFrom("a.md", 0, 1, 0.01, "a"),
		chunkFrom("b.md", 0, 1, 0.02, "b"),
		chunkFrom("c.md", 0, 1, 0.03, "c"),
	}
	sources := mergeSources(chunks, 2)
	if len(sources) != 2 {
		t.Fatalf("expected sources truncated to 2, got %d", len(sources))
	}
}

func TestConfidenceForThresholds(t *testing.T) {
	cases := map[int]string{0: ConfidenceNone, 1: ConfidenceLimited, 2: ConfidenceMedium, 3: ConfidenceHigh, 7: ConfidenceHigh}
	for n, want := range cases {
		if got := confidenceFor(n); got != want {
			t.Fatalf("confidenceFor(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestAskFilteredEchoesFilter(t *testing.T) {
	reader := &fakeReader{chunks: []vectorstore.ScoredChunk{chunkFrom("a.md", 0, 1, 0.1, "text")}}
	model := &fakeLLM{reply: "answer"}
	orch := New(reader, newTestEmbedder(t), nil, model, DefaultConfig())

	filter := vectorstore.Filter{Equals: map[string]string{"file_type": ".md"}}
	answer, err := orch.AskFiltered(context.Background(), "question", filter)
	if err != nil {
		t.Fatalf("AskFiltered returned error: %v", err)
	}
	if answer.FiltersApplied == nil {
		t.Fatal("expected FiltersApplied to be set")
	}
}

func TestTruncateExcerptAddsEllipsisPastLimit(t *testing.T) {
	long := make([]byte, excerptLimit+50)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateExcerpt(string(long))
	if len(got) != excerptLimit+len("...") {
		t.Fatalf("unexpected truncated length: %d", len(got))
	}
}
