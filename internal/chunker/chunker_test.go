package chunker

import (
	"strings"
	"testing"

	"github.com/inkwell-labs/ragkit/internal/loader"
)

func TestChunkShortDocumentProducesOneChunk(t *testing.T) {
	elements := []loader.Element{
		{Kind: loader.KindTitle, Text: "Intro", Order: 0},
		{Kind: loader.KindNarrativeText, Text: "A short paragraph.", Order: 1},
	}
	chunks := Chunk(elements, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Oversized {
		t.Fatal("short chunk should not be flagged oversized")
	}
}

func TestChunkOversizedTableNeverSplit(t *testing.T) {
	bigRow := strings.Repeat("cell data ", 200)
	elements := []loader.Element{
		{Kind: loader.KindTable, Text: bigRow, Order: 0, TableCells: [][]string{{bigRow}}},
	}
	cfg := DefaultConfig()
	chunks := Chunk(elements, cfg)
	if len(chunks) != 1 {
		t.Fatalf("expected table to stay in exactly 1 chunk, got %d", len(chunks))
	}
	if !chunks[0].Oversized {
		t.Fatal("table longer than chunk size must be flagged oversized")
	}
	if chunks[0].Text != strings.TrimSpace(bigRow) {
		t.Fatal("table text must not be truncated or split")
	}
}

func TestChunkLongNarrativeSplitsWithOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("This is sentence number ")
		sb.WriteString(strings.Repeat("x", 20))
		sb.WriteString(". ")
	}
	elements := []loader.Element{
		{Kind: loader.KindNarrativeText, Text: sb.String(), Order: 0},
	}
	cfg := Config{Size: 200, Overlap: 40, SeparatorPriority: DefaultConfig().SeparatorPriority}
	chunks := Chunk(elements, cfg)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long input, got %d", len(chunks))
	}
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
		if c.Order != i {
			t.Fatalf("chunk index not dense: chunk %d has Order %d", i, c.Order)
		}
	}
}

func TestChunkDiscardsBlankElements(t *testing.T) {
	elements := []loader.Element{
		{Kind: loader.KindNarrativeText, Text: "   ", Order: 0},
		{Kind: loader.KindPageBreak, Text: "", Order: 1},
	}
	chunks := Chunk(elements, DefaultConfig())
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks from blank-only input, got %d", len(chunks))
	}
}

func TestChunkTableSeparatesSurroundingText(t *testing.T) {
	elements := []loader.Element{
		{Kind: loader.KindNarrativeText, Text: "before the table", Order: 0},
		{Kind: loader.KindTable, Text: "a | b\n1 | 2", Order: 1, TableCells: [][]string{{"a", "b"}, {"1", "2"}}},
		{Kind: loader.KindNarrativeText, Text: "after the table", Order: 2},
	}
	chunks := Chunk(elements, DefaultConfig())
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks (before, table, after), got %d: %+v", len(chunks), chunks)
	}
	if chunks[1].Text != "a | b\n1 | 2" {
		t.Fatalf("table chunk text mismatch: %q", chunks[1].Text)
	}
}
