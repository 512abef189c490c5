// Package normalize implements the text normalizer (C1): a pure, stateless,
// idempotent cleanup pass applied before chunking and before every cache
// key derivation.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// floatingAccents repairs the common mis-encoding where a combining/floating
// acute or grave accent lands next to the vowel it belongs on instead of
// merging into it, e.g. "a´" -> "á". leadingAccents covers the same repair
// when the acute precedes the vowel, e.g. "´e" -> "é", and is applied first.
var leadingAccents = map[string]string{
	"´a": "á", "´e": "é", "´i": "í", "´o": "ó", "´u": "ú",
	"´A": "Á", "´E": "É", "´I": "Í", "´O": "Ó", "´U": "Ú",
}

var floatingAccents = map[string]string{
	"a´": "á", "e´": "é", "i´": "í", "o´": "ó", "u´": "ú", "n~": "ñ",
	"A´": "Á", "E´": "É", "I´": "Í", "O´": "Ó", "U´": "Ú", "N~": "Ñ",
	"a`": "à", "e`": "è", "i`": "ì", "o`": "ò", "u`": "ù",
}

// ligatures maps common Latin-script ligatures to their expansions.
var ligatures = map[string]string{
	"ﬁ": "fi", "ﬂ": "fl", "ﬃ": "ffi", "ﬄ": "ffl", "œ": "oe", "Œ": "OE", "æ": "ae", "Æ": "AE",
}

var (
	whitespaceRun  = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRun  = regexp.MustCompile(`\n{3,}`)
	spaceBeforePun = regexp.MustCompile(`\s+([.,!?;:])`)
)

// Normalize applies the guaranteed transformation sequence from spec.md
// §4.1, in order: mis-encoding repair, ligature expansion, whitespace
// collapse (preserving paragraph breaks), punctuation spacing, NFC
// normalization, and trim. It is pure and idempotent:
// Normalize(Normalize(x)) == Normalize(x) for all x.
func Normalize(text string) string {
	for broken, fixed := range leadingAccents {
		text = strings.ReplaceAll(text, broken, fixed)
	}
	for broken, fixed := range floatingAccents {
		text = strings.ReplaceAll(text, broken, fixed)
	}
	for lig, expansion := range ligatures {
		text = strings.ReplaceAll(text, lig, expansion)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = collapseWhitespace(text)
	text = normalizePunctuationSpacing(text)
	text = norm.NFC.String(text)

	return strings.TrimSpace(text)
}

// collapseWhitespace reduces runs of horizontal whitespace to a single
// space and runs of 3+ newlines to a paragraph break, without touching a
// deliberate "\n\n" separator.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := whitespaceRun.ReplaceAllString(line, " ")
		lines[i] = strings.TrimRight(trimmed, " ")
	}
	joined := strings.Join(lines, "\n")
	return blankLinesRun.ReplaceAllString(joined, "\n\n")
}

// normalizePunctuationSpacing removes space before .,!?;: and ensures
// exactly one space after, unless the punctuation is at end-of-input or
// already followed by a newline.
func normalizePunctuationSpacing(text string) string {
	text = spaceBeforePun.ReplaceAllString(text, "$1")

	var sb strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		sb.WriteRune(r)
		if !isSentencePunct(r) {
			continue
		}
		if i == len(runes)-1 {
			continue
		}
		next := runes[i+1]
		if next == '\n' || next == ' ' {
			continue
		}
		if unicode.IsSpace(next) {
			continue
		}
		sb.WriteRune(' ')
	}
	return sb.String()
}

func isSentencePunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}
