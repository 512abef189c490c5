// Package knowledgebase is the single entry point for ingestion (C6): it
// wires normalize -> load -> chunk -> embed -> vector store upsert -> graph
// sync into one logical unit of work per document.
package knowledgebase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/inkwell-labs/ragkit/internal/chunker"
	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/graphindex"
	"github.com/inkwell-labs/ragkit/internal/loader"
	"github.com/inkwell-labs/ragkit/internal/normalize"
	"github.com/inkwell-labs/ragkit/internal/ragerr"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

// IngestSummary is returned from every Learn* operation (spec.md §4.6).
type IngestSummary struct {
	Source           string
	FileType         string
	ProcessingMethod string
	ChunkCount       int
	Structural       loader.StructuralInfo
}

// KBStats is the façade's passthrough onto the vector store's Stats.
type KBStats struct {
	vectorstore.Stats
}

// Store is the write subset of vectorstore.Store ingestion needs, mirroring
// query.Reader's read-only counterpart onto the same underlying store so
// each side depends on only what it uses. It lets tests exercise ingest's
// atomic-rollback and idempotent-reingest behavior against a stub instead of
// a live Postgres connection.
type Store interface {
	ReplaceSource(ctx context.Context, source string, chunks []vectorstore.Chunk) error
	Stats(ctx context.Context) (vectorstore.Stats, error)
}

// KnowledgeBase owns ingestion writes to the Vector Store; the query
// orchestrator only ever holds a read-only handle onto the same Store.
type KnowledgeBase struct {
	Chunking chunker.Config
	store    Store
	embedder *embedding.Service
	graph    *graphindex.Index
}

func New(store Store, embedder *embedding.Service, graph *graphindex.Index) *KnowledgeBase {
	return &KnowledgeBase{
		Chunking: chunker.DefaultConfig(),
		store:    store,
		embedder: embedder,
		graph:    graph,
	}
}

// LearnText treats text as one synthetic document (spec.md §4.6).
func (kb *KnowledgeBase) LearnText(ctx context.Context, text, sourceName string) (IngestSummary, error) {
	normalized := normalize.Normalize(text)
	if normalized == "" {
		return IngestSummary{}, ragerr.New(ragerr.KindInput, "", ragerr.ErrEmptyDocument)
	}

	elements := []loader.Element{{Kind: loader.KindNarrativeText, Text: normalized, Order: 0}}
	info := loader.ComputeStructuralInfo(elements)

	return kb.ingest(ctx, ingestionInput{
		source:           sourceName,
		filePath:         "",
		fileType:         "manual_input",
		processingMethod: "manual_text",
		elements:         elements,
		structural:       info,
		folder:           "",
	})
}

// LearnDocument runs a file through Loader -> Chunker -> Embedding Service
// -> Vector Store -> graph sync.
func (kb *KnowledgeBase) LearnDocument(ctx context.Context, path string) (IngestSummary, error) {
	result, err := loader.Load(ctx, path)
	if err != nil {
		return IngestSummary{}, err
	}

	return kb.ingest(ctx, ingestionInput{
		source:           path,
		filePath:         path,
		fileType:         result.Ext,
		processingMethod: result.Method,
		elements:         result.Elements,
		structural:       result.Info,
		folder:           parentFolder(path),
	})
}

type ingestionInput struct {
	source           string
	filePath         string
	fileType         string
	processingMethod string
	elements         []loader.Element
	structural       loader.StructuralInfo
	folder           string
}

// ingest is the single atomic-per-document pipeline shared by every Learn*
// entry point: chunks are staged and embedded before any vector store
// write, and the write itself is one ReplaceSource transaction, so a
// failure during it leaves the source's prior chunks in place (§8 invariant
// on document-level atomicity). A graph sync failure after that commit
// keeps the stored chunks and is returned as an error with the summary.
func (kb *KnowledgeBase) ingest(ctx context.Context, in ingestionInput) (IngestSummary, error) {
	rawChunks := chunker.Chunk(in.elements, kb.Chunking)
	if len(rawChunks) == 0 {
		return IngestSummary{}, ragerr.New(ragerr.KindInput, "", ragerr.ErrEmptyDocument)
	}

	texts := make([]string, len(rawChunks))
	for i, c := range rawChunks {
		texts[i] = c.Text
	}

	vectors, err := kb.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IngestSummary{}, err
	}

	processedAt := time.Now().UTC()
	storeChunks := make([]vectorstore.Chunk, len(rawChunks))
	for i, c := range rawChunks {
		storeChunks[i] = vectorstore.Chunk{
			ID:        fingerprint(in.source, i, c.Text),
			Text:      c.Text,
			Embedding: vectors[i],
			Oversized: c.Oversized,
			Metadata: vectorstore.ChunkMetadata{
				Source:                 in.source,
				FilePath:               in.filePath,
				FileType:               in.fileType,
				ProcessedDate:          processedAt,
				ProcessingMethod:       in.processingMethod,
				ChunkIndex:             i,
				ChunkTotal:             len(rawChunks),
				StructuralTitlesCount:  in.structural.TitlesCount,
				StructuralTablesCount:  in.structural.TablesCount,
				StructuralListsCount:   in.structural.ListsCount,
			},
		}
	}

	if err := kb.store.ReplaceSource(ctx, in.source, storeChunks); err != nil {
		// ReplaceSource deletes the source's old chunks and inserts the new
		// ones inside one transaction, so a mid-write failure rolls back to
		// the pre-call state instead of leaving the source half-deleted.
		return IngestSummary{}, err
	}

	if err := kb.syncGraph(ctx, in, storeChunks); err != nil {
		// Graph enrichment is additive; do not fail ingestion over it, but
		// surface it so callers can log the degradation.
		return IngestSummary{
			Source:           in.source,
			FileType:         in.fileType,
			ProcessingMethod: in.processingMethod,
			ChunkCount:       len(rawChunks),
			Structural:       in.structural,
		}, fmt.Errorf("chunks stored, graph sync failed: %w", err)
	}

	return IngestSummary{
		Source:           in.source,
		FileType:         in.fileType,
		ProcessingMethod: in.processingMethod,
		ChunkCount:       len(rawChunks),
		Structural:       in.structural,
	}, nil
}

func (kb *KnowledgeBase) syncGraph(ctx context.Context, in ingestionInput, chunks []vectorstore.Chunk) error {
	docID := sourceID(in.source)

	var sections []graphindex.Section
	order := 0
	for _, el := range in.elements {
		if el.Kind != loader.KindTitle {
			continue
		}
		sections = append(sections, graphindex.Section{
			ID:    sectionID(docID, order),
			Title: el.Text,
			Level: 1,
			Order: order,
		})
		order++
	}

	nodes := make([]graphindex.ChunkNode, len(chunks))
	for i, c := range chunks {
		nodes[i] = graphindex.ChunkNode{ID: c.ID, Index: i, Text: c.Text}
	}

	doc := graphindex.Document{
		ID:       docID,
		Path:     in.filePath,
		Title:    in.source,
		SHA:      fingerprint(in.source, 0, in.source),
		Folder:   in.folder,
		Chunks:   nodes,
		Sections: sections,
	}
	return kb.graph.SyncDocument(ctx, doc)
}

// Stats delegates to the vector store.
func (kb *KnowledgeBase) Stats(ctx context.Context) (KBStats, error) {
	stats, err := kb.store.Stats(ctx)
	if err != nil {
		return KBStats{}, err
	}
	return KBStats{Stats: stats}, nil
}

func fingerprint(source string, chunkIndex int, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(fmt.Sprintf("%d", chunkIndex)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func sourceID(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}

func sectionID(docID string, order int) string {
	return fmt.Sprintf("%s-section-%d", docID, order)
}

func parentFolder(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
