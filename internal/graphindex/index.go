package graphindex

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// Index wraps a Neo4j driver. A nil *Index is valid and every method
// becomes a no-op / empty result, so callers never need a separate
// "graph enabled" branch.
type Index struct {
	driver neo4j.DriverWithContext
}

func New(driver neo4j.DriverWithContext) *Index {
	return &Index{driver: driver}
}

// SyncDocument idempotently replaces one document's Section/Topic/Chunk
// subgraph and folder membership, mirroring the teacher's
// MERGE-then-prune transaction shape.
func (idx *Index) SyncDocument(ctx context.Context, doc Document) error {
	if idx == nil || idx.driver == nil {
		return nil
	}

	session := idx.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params := map[string]any{
		"id":     doc.ID,
		"path":   doc.Path,
		"title":  doc.Title,
		"sha":    doc.SHA,
		"folder": doc.Folder,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (d:Document {id: $id})
			SET d.path = $path,
			    d.title = $title,
			    d.sha256 = $sha,
			    d.updated_at = datetime()
		`, params); err != nil {
			return nil, fmt.Errorf("upsert document node: %w", err)
		}

		if doc.Folder != "" {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $id})-[r:IN_FOLDER]->(:Folder)
				DELETE r
			`, params); err != nil {
				return nil, fmt.Errorf("remove stale folder relation: %w", err)
			}
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $id})
				MERGE (f:Folder {name: $folder})
				MERGE (d)-[:IN_FOLDER]->(f)
			`, params); err != nil {
				return nil, fmt.Errorf("upsert folder relation: %w", err)
			}
		} else {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $id})-[r:IN_FOLDER]->(f:Folder)
				DELETE r
				WITH f
				WHERE NOT (f)<-[:IN_FOLDER]-(:Document)
				DETACH DELETE f
			`, params); err != nil {
				return nil, fmt.Errorf("cleanup folder relation: %w", err)
			}
		}

		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $id})-[:HAS_SECTION]->(s:Section)
			DETACH DELETE s
		`, map[string]any{"id": doc.ID}); err != nil {
			return nil, fmt.Errorf("clear existing sections: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $id})-[r:HAS_TOPIC]->(t:Topic)
			DELETE r
		`, map[string]any{"id": doc.ID}); err != nil {
			return nil, fmt.Errorf("clear existing topics: %w", err)
		}

		for _, section := range doc.Sections {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $doc_id})
				MERGE (s:Section {id: $section_id})
				SET s.title = $section_title,
				    s.level = $section_level,
				    s.order = $section_order
				MERGE (d)-[:HAS_SECTION {order: $section_order}]->(s)
			`, map[string]any{
				"doc_id":        doc.ID,
				"section_id":    section.ID,
				"section_title": section.Title,
				"section_level": section.Level,
				"section_order": section.Order,
			}); err != nil {
				return nil, fmt.Errorf("upsert section: %w", err)
			}
		}

		for _, topic := range doc.Topics {
			if topic.Name == "" {
				continue
			}
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $doc_id})
				MERGE (t:Topic {name: $topic_name})
				MERGE (d)-[:HAS_TOPIC]->(t)
			`, map[string]any{
				"doc_id":     doc.ID,
				"topic_name": topic.Name,
			}); err != nil {
				return nil, fmt.Errorf("upsert topic: %w", err)
			}
		}

		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $id})-[:HAS_CHUNK]->(c:Chunk)
			DETACH DELETE c
		`, map[string]any{"id": doc.ID}); err != nil {
			return nil, fmt.Errorf("clear existing chunk nodes: %w", err)
		}

		for _, chunk := range doc.Chunks {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $doc_id})
				MERGE (c:Chunk {id: $chunk_id})
				SET c.index = $chunk_index,
				    c.text = $chunk_text
				MERGE (d)-[:HAS_CHUNK {order: $chunk_index}]->(c)
			`, map[string]any{
				"doc_id":      doc.ID,
				"chunk_id":    chunk.ID,
				"chunk_index": chunk.Index,
				"chunk_text":  chunk.Text,
			}); err != nil {
				return nil, fmt.Errorf("upsert chunk node: %w", err)
			}

			if chunk.SectionID != "" {
				if _, err := tx.Run(ctx, `
					MATCH (s:Section {id: $section_id}), (c:Chunk {id: $chunk_id})
					MERGE (s)-[:HAS_CHUNK {order: $chunk_index}]->(c)
				`, map[string]any{
					"section_id":  chunk.SectionID,
					"chunk_id":    chunk.ID,
					"chunk_index": chunk.Index,
				}); err != nil {
					return nil, fmt.Errorf("link chunk to section: %w", err)
				}
			}
		}

		return nil, nil
	})
	if err != nil {
		return ragerr.New(ragerr.KindStorage, "", err)
	}

	if _, err := session.Run(ctx, `
		MATCH (t:Topic)
		WHERE NOT (t)<-[:HAS_TOPIC]-(:Document)
		DELETE t
	`, nil); err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("prune orphan topics: %w", err))
	}

	return nil
}

// DeleteDocument removes a document node and everything reachable only
// through it (sections, chunk nodes). No ingestion or maintenance path in
// this module calls it.
func (idx *Index) DeleteDocument(ctx context.Context, docID string) error {
	if idx == nil || idx.driver == nil {
		return nil
	}
	session := idx.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (d:Document {id: $id})
		OPTIONAL MATCH (d)-[:HAS_SECTION]->(s:Section)
		OPTIONAL MATCH (d)-[:HAS_CHUNK]->(c:Chunk)
		DETACH DELETE d, s, c
	`, map[string]any{"id": docID})
	if err != nil {
		return ragerr.New(ragerr.KindStorage, "", fmt.Errorf("delete document node: %w", err))
	}
	return nil
}

// Clear removes every Document, Chunk, and Folder node, used by the
// `clear` CLI command and the /v1/clear HTTP handler.
func (idx *Index) Clear(ctx context.Context) error {
	if idx == nil || idx.driver == nil {
		return nil
	}
	session := idx.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		"MATCH (d:Document) DETACH DELETE d",
		"MATCH (c:Chunk) DETACH DELETE c",
		"MATCH (f:Folder) DETACH DELETE f",
	}
	for _, q := range queries {
		result, err := session.Run(ctx, q, nil)
		if err != nil {
			return ragerr.New(ragerr.KindStorage, "", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return ragerr.New(ragerr.KindStorage, "", err)
		}
	}
	return nil
}
