package loader

import (
	"context"
	"strings"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

// plaintextStrategies split plain text into NarrativeText elements: the
// enhanced tier on blank-line paragraph breaks, the basic tier on every
// line, and the fallback reads the raw bytes.
var plaintextStrategies = []namedStrategy{
	{Name: "plaintext_paragraphs", Tier: TierEnhanced, Fn: plaintextEnhanced},
	{Name: "plaintext_lines", Tier: TierBasic, Fn: plaintextBasic},
	{Name: "plaintext_raw", Tier: TierFallback, Fn: rawBytesFallback},
}

func plaintextEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	var elements []Element
	order := 0
	for _, para := range strings.Split(string(payload.Data), "\n\n") {
		txt := normalize.Normalize(para)
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

func plaintextBasic(_ context.Context, payload Payload) ([]Element, error) {
	var elements []Element
	order := 0
	for _, line := range strings.Split(string(payload.Data), "\n") {
		txt := normalize.Normalize(line)
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}
