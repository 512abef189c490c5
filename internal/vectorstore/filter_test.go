package vectorstore

import "testing"

func TestCompileFilterEquals(t *testing.T) {
	sql, args, err := compileFilter(Filter{Equals: map[string]string{"file_type": ".pdf"}}, 1)
	if err != nil {
		t.Fatalf("compileFilter: %v", err)
	}
	if sql != "metadata->>'file_type' = $2" {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if len(args) != 1 || args[0] != ".pdf" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCompileFilterRejectsBadFieldName(t *testing.T) {
	_, _, err := compileFilter(Filter{Equals: map[string]string{"bad;name": "x"}}, 1)
	if err == nil {
		t.Fatal("expected error for invalid field name")
	}
}

func TestCompileFilterAndConjunction(t *testing.T) {
	f := Filter{
		And: []Filter{
			{Gte: map[string]float64{"chunk_index": 0}},
			{Lte: map[string]float64{"chunk_index": 10}},
		},
	}
	sql, args, err := compileFilter(f, 0)
	if err != nil {
		t.Fatalf("compileFilter: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d: %v", len(args), args)
	}
	if sql == "" {
		t.Fatal("expected non-empty sql for And conjunction")
	}
}

func TestCompileFilterEmptyProducesNoClause(t *testing.T) {
	sql, args, err := compileFilter(Filter{}, 0)
	if err != nil {
		t.Fatalf("compileFilter: %v", err)
	}
	if sql != "" || args != nil {
		t.Fatalf("expected empty sql/args for zero-value filter, got %q %v", sql, args)
	}
}

func TestCollectionNameSanitizesAndIncludesProvider(t *testing.T) {
	name := CollectionName("notes", "remote:text-embedding-3-small")
	if name != "notes_remote_text_embedding_3_small" {
		t.Fatalf("unexpected collection name: %s", name)
	}
}

func TestCollectionNameDiffersAcrossProviders(t *testing.T) {
	a := CollectionName("notes", "local:nomic-embed-text")
	b := CollectionName("notes", "remote:text-embedding-3-small")
	if a == b {
		t.Fatal("expected different collection names for different providers")
	}
}
