package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadMarkdownStructured(t *testing.T) {
	md := "# Title One\n\nSome narrative text here.\n\n- item one\n- item two\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	path := writeTemp(t, "doc.md", md)

	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.Method != TierEnhanced {
		t.Fatalf("expected the enhanced tier to win, got %s", result.Method)
	}
	if result.Info.TitlesCount == 0 {
		t.Fatalf("expected at least one title, got info %+v", result.Info)
	}
	if result.Info.ListsCount != 2 {
		t.Fatalf("expected 2 list items, got %d", result.Info.ListsCount)
	}
	if result.Info.TablesCount != 1 {
		t.Fatalf("expected 1 table, got %d", result.Info.TablesCount)
	}
}

func TestLoadPlainText(t *testing.T) {
	path := writeTemp(t, "notes.txt", "first paragraph\n\nsecond paragraph")
	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(result.Elements))
	}
}

func TestLoadCSV(t *testing.T) {
	path := writeTemp(t, "data.csv", "name,age\nalice,30\nbob,40\n")
	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.Info.TitlesCount != 1 || result.Info.TablesCount != 1 {
		t.Fatalf("expected 1 title + 1 table, got info %+v", result.Info)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{"name": "widget", "tags": ["a", "b"]}`)
	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Elements) == 0 {
		t.Fatalf("expected flattened elements, got none")
	}
}

func TestLoadEML(t *testing.T) {
	raw := "Subject: Hello\r\nFrom: a@example.com\r\nTo: b@example.com\r\n\r\nBody line one.\r\n\r\nBody line two.\r\n"
	path := writeTemp(t, "mail.eml", raw)
	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.Elements[0].Kind != KindTitle {
		t.Fatalf("expected first element to be the subject title, got %+v", result.Elements[0])
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "archive.zip", "not really a zip")
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !ragerr.Is(err, ragerr.KindInput) {
		t.Fatalf("expected KindInput, got %v", err)
	}
}

func TestLoadImageReturnsLoaderErrorWithOCRHint(t *testing.T) {
	path := writeTemp(t, "scan.png", "not a real png but extension routing is what's under test")
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for image without OCR backend")
	}
	if !ragerr.Is(err, ragerr.KindLoader) {
		t.Fatalf("expected KindLoader, got %v", err)
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	path := writeTemp(t, "empty.txt", "   \n\n  ")
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for empty document")
	}
	if !ragerr.Is(err, ragerr.KindInput) {
		t.Fatalf("expected KindInput, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.md"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadPlainTextSplitsElementLargerThanMaxPartition(t *testing.T) {
	word := "supercalifragilisticexpialidocious "
	var b strings.Builder
	for b.Len() < 3*1500 {
		b.WriteString(word)
	}
	path := writeTemp(t, "huge.txt", b.String())

	result, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Elements) < 2 {
		t.Fatalf("expected the oversized paragraph to split into multiple elements, got %d", len(result.Elements))
	}
	for _, el := range result.Elements {
		if len(el.Text) > 1500 {
			t.Fatalf("element exceeds MaxPartition: %d chars", len(el.Text))
		}
	}
}

func TestPartitionOversizedLeavesShortElementsUntouched(t *testing.T) {
	els := []Element{{Kind: KindNarrativeText, Text: "short text"}}
	got := partitionOversized(els, FormatConfig{MaxPartition: 1000, NewAfterNChars: 800})
	if len(got) != 1 || got[0].Text != "short text" {
		t.Fatalf("expected element unchanged, got %+v", got)
	}
}

func TestPartitionOversizedNeverSplitsTables(t *testing.T) {
	long := strings.Repeat("a", 5000)
	els := []Element{{Kind: KindTable, Text: long}}
	got := partitionOversized(els, FormatConfig{MaxPartition: 1000, NewAfterNChars: 800})
	if len(got) != 1 || got[0].Text != long {
		t.Fatalf("expected table element left intact, got %d elements", len(got))
	}
}

func TestPartitionOversizedRespectsSoftBoundaryOnWhitespace(t *testing.T) {
	text := strings.Repeat("word ", 400) // 2000 chars
	els := []Element{{Kind: KindNarrativeText, Text: text}}
	got := partitionOversized(els, FormatConfig{MaxPartition: 1000, NewAfterNChars: 900})
	if len(got) < 2 {
		t.Fatalf("expected split into multiple parts, got %d", len(got))
	}
	for _, el := range got {
		if len(el.Text) > 1000 {
			t.Fatalf("part exceeds MaxPartition: %d chars", len(el.Text))
		}
		if strings.HasPrefix(el.Text, " ") || strings.HasSuffix(el.Text, " ") {
			t.Fatalf("expected trimmed part, got %q", el.Text)
		}
	}
}
