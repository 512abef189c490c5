// Package query implements the query orchestrator (C7): retrieval,
// hallucination guard, LLM composition, and source rendering.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/graphindex"
	"github.com/inkwell-labs/ragkit/internal/llm"
	"github.com/inkwell-labs/ragkit/internal/normalize"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

// sourceID mirrors the knowledge base's document id derivation so graph
// insight lookups line up with what ingestion stored under (spec.md §3
// treats "source" as the shared join key between the vector store and the
// structural graph index).
func sourceID(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}

// Reader is the read-only subset of vectorstore.Store the orchestrator is
// allowed to hold; ingestion keeps the only handle capable of writes.
type Reader interface {
	SearchWithThreshold(ctx context.Context, queryEmbedding []float32, k int, filter vectorstore.Filter, maxDistance float64) ([]vectorstore.ScoredChunk, error)
}

const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLimited = "limited"
	ConfidenceNone    = "none"
)

const noInformationText = "I don't have enough information in the knowledge base to answer that question."

const excerptLimit = 500

// Config tunes retrieval (spec.md §4.7 step 3 defaults).
type Config struct {
	TopK        int
	FetchK      int
	MaxDistance float64
}

// DefaultConfig matches the documented defaults: k=5, fetch_k=10,
// max cosine distance 0.3 (similarity >= 0.7).
func DefaultConfig() Config {
	return Config{TopK: 5, FetchK: 10, MaxDistance: 0.3}
}

// Source is one rendered attribution entry in an Answer.
type Source struct {
	Source           string
	FilePath         string
	FileType         string
	ProcessingMethod string
	ChunkIndex       int
	ChunkTotal       int
	ProcessedDate    time.Time
	Excerpt          string
	Structural       *Structural
}

// Structural mirrors the graph-derived enrichment for one source document,
// present only when the structural graph index is configured.
type Structural struct {
	Folders          []string
	Sections         []graphindex.SectionInfo
	Topics           []string
	RelatedDocuments []graphindex.RelatedDocument
}

// Answer is the result of Ask/AskFiltered (spec.md §4.7).
type Answer struct {
	Text           string
	Sources        []Source
	Confidence     string
	FiltersApplied *vectorstore.Filter
}

// Orchestrator answers questions against retrieved, grounded chunks. It
// never invokes the LLM without at least one retrieved chunk.
type Orchestrator struct {
	store    Reader
	embedder *embedding.Service
	graph    *graphindex.Index
	llm      llm.Client
	config   Config
}

func New(store Reader, embedder *embedding.Service, graph *graphindex.Index, client llm.Client, config Config) *Orchestrator {
	return &Orchestrator{store: store, embedder: embedder, graph: graph, llm: client, config: config}
}

// Ask runs the unfiltered retrieval pipeline.
func (o *Orchestrator) Ask(ctx context.Context, query string) (Answer, error) {
	return o.ask(ctx, query, vectorstore.Filter{}, nil)
}

// AskFiltered runs retrieval constrained by filter and echoes it back on
// the Answer as FiltersApplied.
func (o *Orchestrator) AskFiltered(ctx context.Context, query string, filter vectorstore.Filter) (Answer, error) {
	return o.ask(ctx, query, filter, &filter)
}

func (o *Orchestrator) ask(ctx context.Context, query string, filter vectorstore.Filter, applied *vectorstore.Filter) (Answer, error) {
	normalized := normalize.Normalize(query)
	if normalized == "" {
		return Answer{Text: noInformationText, Confidence: ConfidenceNone, FiltersApplied: applied}, nil
	}

	vectors, err := o.embedder.EmbedBatch(ctx, []string{normalized})
	if err != nil {
		return Answer{}, err
	}

	fetchK := o.config.FetchK
	if fetchK < o.config.TopK {
		fetchK = o.config.TopK
	}

	chunks, err := o.store.SearchWithThreshold(ctx, vectors[0], fetchK, filter, o.config.MaxDistance)
	if err != nil {
		return Answer{}, err
	}

	if len(chunks) == 0 {
		return Answer{Text: noInformationText, Confidence: ConfidenceNone, FiltersApplied: applied}, nil
	}

	sources := mergeSources(chunks, o.config.TopK)
	o.attachStructural(ctx, sources)

	text, err := o.compose(ctx, normalized, sources)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:           text,
		Sources:        sources,
		Confidence:     confidenceFor(len(sources)),
		FiltersApplied: applied,
	}, nil
}

// mergeSources collapses chunks sharing the same Metadata.Source into one
// entry, picking the lowest-distance chunk as the representative excerpt,
// then orders sources by that best distance ascending and truncates to
// limit entries (spec.md §4.7 step 6 and tie-breaking rule).
func mergeSources(chunks []vectorstore.ScoredChunk, limit int) []Source {
	bySource := make(map[string]*Source)
	bestDistance := make(map[string]float64)
	var order []string

	for _, c := range chunks {
		key := c.Metadata.Source
		if _, seen := bySource[key]; !seen {
			order = append(order, key)
			bestDistance[key] = c.Distance
			bySource[key] = &Source{
				Source:           c.Metadata.Source,
				FilePath:         c.Metadata.FilePath,
				FileType:         c.Metadata.FileType,
				ProcessingMethod: c.Metadata.ProcessingMethod,
				ChunkIndex:       c.Metadata.ChunkIndex,
				ChunkTotal:       c.Metadata.ChunkTotal,
				ProcessedDate:    c.Metadata.ProcessedDate,
				Excerpt:          truncateExcerpt(c.Text),
			}
			continue
		}
		if c.Distance < bestDistance[key] {
			bestDistance[key] = c.Distance
			s := bySource[key]
			s.ChunkIndex = c.Metadata.ChunkIndex
			s.Excerpt = truncateExcerpt(c.Text)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return bestDistance[order[i]] < bestDistance[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}

	sources := make([]Source, 0, len(order))
	for _, key := range order {
		sources = append(sources, *bySource[key])
	}
	return sources
}

func truncateExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLimit {
		return text
	}
	return text[:excerptLimit] + "..."
}

func confidenceFor(distinctSources int) string {
	switch {
	case distinctSources >= 3:
		return ConfidenceHigh
	case distinctSources == 2:
		return ConfidenceMedium
	case distinctSources == 1:
		return ConfidenceLimited
	default:
		return ConfidenceNone
	}
}

// attachStructural enriches sources with graph insights, best-effort: a
// failed or unconfigured graph leaves Structural nil on every source.
func (o *Orchestrator) attachStructural(ctx context.Context, sources []Source) {
	if o.graph == nil || len(sources) == 0 {
		return
	}

	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = sourceID(s.Source)
	}

	insights, err := o.graph.DocumentInsights(ctx, ids)
	if err != nil || len(insights) == 0 {
		return
	}

	for i := range sources {
		insight, ok := insights[sourceID(sources[i].Source)]
		if !ok {
			continue
		}
		sources[i].Structural = &Structural{
			Folders:          insight.Folders,
			Sections:         insight.Sections,
			Topics:           insight.Topics,
			RelatedDocuments: insight.RelatedDocuments,
		}
	}
}

func (o *Orchestrator) compose(ctx context.Context, question string, sources []Source) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt()},
		{Role: llm.RoleUser, Content: formatUserPrompt(question, buildContextPrompt(sources))},
	}
	return o.llm.Generate(ctx, messages)
}

func systemPrompt() string {
	return "You are a knowledge base assistant. Answer strictly from the numbered sources in the provided context, " +
		"citing them as [Source N]. If the context does not contain the answer, say so plainly instead of guessing."
}

func formatUserPrompt(question, context string) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	b.WriteString(context)
	b.WriteString("\n\nProvide your answer in markdown, citing sources as [Source N].")
	return b.String()
}

func buildContextPrompt(sources []Source) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "Source %d: %s", i+1, s.Source)
		if s.FilePath != "" {
			fmt.Fprintf(&b, " (%s)", s.FilePath)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Chunk %d of %d\n", s.ChunkIndex+1, s.ChunkTotal)
		if s.Structural != nil {
			if len(s.Structural.Sections) > 0 {
				fmt.Fprintf(&b, "Sections: %s\n", joinSectionTitles(s.Structural.Sections))
			}
			if len(s.Structural.Topics) > 0 {
				fmt.Fprintf(&b, "Topics: %s\n", strings.Join(s.Structural.Topics, ", "))
			}
			if len(s.Structural.Folders) > 0 {
				fmt.Fprintf(&b, "Folders: %s\n", strings.Join(s.Structural.Folders, ", "))
			}
			if len(s.Structural.RelatedDocuments) > 0 {
				fmt.Fprintf(&b, "Related documents: %s\n", joinRelatedTitles(s.Structural.RelatedDocuments))
			}
		}
		b.WriteString(s.Excerpt)
		b.WriteString("\n\n")
	}
	return b.String()
}

func joinSectionTitles(sections []graphindex.SectionInfo) string {
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}
	return strings.Join(titles, ", ")
}

func joinRelatedTitles(docs []graphindex.RelatedDocument) string {
	titles := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.Title
	}
	return strings.Join(titles, ", ")
}
