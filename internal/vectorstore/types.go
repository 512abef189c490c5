// Package vectorstore implements the Postgres+pgvector backed Vector Store
// (C5): chunk persistence, similarity search with metadata filtering, and
// large-collection maintenance.
package vectorstore

import "time"

// ChunkMetadata is stored alongside every chunk (spec.md §3).
type ChunkMetadata struct {
	Source                     string
	FilePath                   string
	FileType                   string
	ProcessedDate              time.Time
	ProcessingMethod           string
	ChunkIndex                 int
	ChunkTotal                 int
	StructuralTitlesCount      int
	StructuralTablesCount      int
	StructuralListsCount       int
}

// Chunk is the unit handed from the knowledge base façade to the store.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Oversized bool
	Metadata  ChunkMetadata
}

// ScoredChunk is one Search result.
type ScoredChunk struct {
	Chunk
	Score    float64
	Distance float64
}

// Stats summarizes the collection for maintenance and API reporting
// (spec.md §4.5).
type Stats struct {
	TotalChunks        int
	TotalDocuments     int
	Dimension          int
	CollectionName     string
	ByFileType         map[string]int
	ByProcessingMethod map[string]int
	TotalTitles        int
	TotalTables        int
	AvgTitlesPerDoc    float64
	AvgTablesPerDoc    float64
}

// Filter is a metadata predicate compiled to SQL by filter.go. A zero-value
// Filter matches everything.
type Filter struct {
	Equals   map[string]string
	Gte      map[string]float64
	Lte      map[string]float64
	Contains map[string]string
	And      []Filter
}
