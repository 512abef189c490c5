package normalize

import "testing"

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []string{
		"Hello   world.This  is   a test .",
		"caf´e con leche and a fiancée",
		"El niño juega en el jardín.Vamos!",
		"line one\n\n\n\nline two",
		"",
		"   already   clean   ",
	}

	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: once=%q twice=%q", c, once, twice)
		}
	}
}

func TestNormalizeRepairsFloatingAccent(t *testing.T) {
	got := Normalize("caf´e")
	if got != "café" {
		t.Fatalf("expected café, got %q", got)
	}
}

func TestNormalizeExpandsLigatures(t *testing.T) {
	got := Normalize("ﬁle ﬂow")
	if got != "file flow" {
		t.Fatalf("expected 'file flow', got %q", got)
	}
}

func TestNormalizeCollapsesWhitespacePreservingParagraphs(t *testing.T) {
	got := Normalize("para one   has   spaces\n\npara two")
	want := "para one has spaces\n\npara two"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNormalizePunctuationSpacing(t *testing.T) {
	got := Normalize("Hello ,world.Next sentence!Ready?")
	want := "Hello, world. Next sentence! Ready?"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNormalizeTrims(t *testing.T) {
	if got := Normalize("   hi there   "); got != "hi there" {
		t.Fatalf("expected trimmed string, got %q", got)
	}
}
