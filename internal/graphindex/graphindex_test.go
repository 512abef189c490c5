package graphindex

import (
	"context"
	"testing"
)

func TestNilIndexDegradesGracefully(t *testing.T) {
	var idx *Index
	ctx := context.Background()

	if err := idx.SyncDocument(ctx, Document{ID: "doc-1"}); err != nil {
		t.Fatalf("expected nil Index SyncDocument to no-op, got %v", err)
	}
	if err := idx.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("expected nil Index DeleteDocument to no-op, got %v", err)
	}
	insights, err := idx.DocumentInsights(ctx, []string{"doc-1"})
	if err != nil {
		t.Fatalf("expected nil Index DocumentInsights to no-op, got %v", err)
	}
	if len(insights) != 0 {
		t.Fatalf("expected empty insights map, got %v", insights)
	}
}

func TestEmptyDriverIndexDegradesGracefully(t *testing.T) {
	idx := New(nil)
	ctx := context.Background()

	insights, err := idx.DocumentInsights(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(insights) != 0 {
		t.Fatalf("expected empty map, got %v", insights)
	}
}

func TestToStringSliceFiltersEmptyAndWrongType(t *testing.T) {
	got := toStringSlice([]any{"a", "", "b", 5, nil})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestToRelatedDocumentsSkipsMissingID(t *testing.T) {
	raw := []any{
		map[string]any{"id": "d1", "title": "One", "path": "/a"},
		map[string]any{"title": "no id"},
	}
	got := toRelatedDocuments(raw)
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestToSectionInfosParsesLevelsAsInt(t *testing.T) {
	raw := []any{
		map[string]any{"title": "Intro", "level": int64(1), "order": float64(0)},
	}
	got := toSectionInfos(raw)
	if len(got) != 1 || got[0].Level != 1 || got[0].Order != 0 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
