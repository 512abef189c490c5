// Package graphindex maintains a supplemental structural graph over ingested
// documents (Document/Section/Topic/Folder/Chunk nodes) so the query
// orchestrator can enrich sources beyond a flat chunk hit list. It degrades
// gracefully: a nil *Index turns every call into a no-op, matching the
// teacher's `if s.graph != nil` guard around optional graph enrichment.
package graphindex

// Document is one ingested document's graph-facing view, derived from the
// loader's StructuralInfo and the chunker's Title-bounded sections instead
// of the teacher's markdown-heading-only extraction.
type Document struct {
	ID       string
	Path     string
	Title    string
	SHA      string
	Folder   string
	Chunks   []ChunkNode
	Sections []Section
	Topics   []Topic
}

// ChunkNode is the graph-facing projection of a stored chunk.
type ChunkNode struct {
	ID        string
	Index     int
	Text      string
	SectionID string
}

// Section corresponds to one Title-element boundary in the source document.
type Section struct {
	ID    string
	Title string
	Level int
	Order int
}

// Topic is a coarse, document-level tag (e.g. a folder-derived or
// user-supplied label); the knowledge base façade does not fill Topics when
// it builds a Document.
type Topic struct {
	Name string
}

// Insight is what DocumentInsights returns per document id, feeding the
// query orchestrator's source rendering (spec.md §3's Source, extended).
type Insight struct {
	ChunkCount       int
	Folders          []string
	RelatedDocuments []RelatedDocument
	Sections         []SectionInfo
	Topics           []string
}

type RelatedDocument struct {
	ID    string
	Title string
	Path  string
}

type SectionInfo struct {
	Title string
	Level int
	Order int
}
