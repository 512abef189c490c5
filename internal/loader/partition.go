package loader

import "strings"

// partitionOversized enforces Cfg.MaxPartition (spec.md §4.2: "elements
// longer than this must be split") as a post-processing pass over whatever
// a strategy produced, so no individual strategy needs to duplicate the
// splitting logic. A split point is searched backward from MaxPartition
// down to the soft boundary NewAfterNChars; Table elements are never split, matching the
// chunker's own never-split-a-table rule.
func partitionOversized(elements []Element, cfg FormatConfig) []Element {
	if cfg.MaxPartition <= 0 {
		return elements
	}

	out := make([]Element, 0, len(elements))
	for _, el := range elements {
		if el.Kind == KindTable || len(el.Text) <= cfg.MaxPartition {
			out = append(out, el)
			continue
		}
		out = append(out, splitElement(el, cfg)...)
	}
	return out
}

func splitElement(el Element, cfg FormatConfig) []Element {
	soft := cfg.NewAfterNChars
	if soft <= 0 || soft > cfg.MaxPartition {
		soft = cfg.MaxPartition
	}

	var parts []Element
	text := el.Text
	for len(text) > cfg.MaxPartition {
		cut := splitPoint(text, soft, cfg.MaxPartition)
		if part := strings.TrimSpace(text[:cut]); part != "" {
			parts = append(parts, Element{Kind: el.Kind, Text: part, Page: el.Page})
		}
		text = text[cut:]
	}
	if part := strings.TrimSpace(text); part != "" {
		parts = append(parts, Element{Kind: el.Kind, Text: part, Page: el.Page})
	}

	if len(parts) == 0 {
		return []Element{el}
	}
	return parts
}

// splitPoint searches backward from hard for whitespace, refusing to land
// before soft so a run of non-whitespace text near the boundary doesn't
// starve every partition down to a sliver.
func splitPoint(text string, soft, hard int) int {
	if hard >= len(text) {
		return len(text)
	}
	for i := hard; i > soft; i-- {
		if text[i-1] == ' ' || text[i-1] == '\n' {
			return i
		}
	}
	return hard
}
