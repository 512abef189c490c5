// Package chunker splits a Loader's Element sequence into size-bounded,
// overlap-linked Chunks (C3), generalized from the teacher's paragraph
// accumulation loop to a typed-element stream with a real separator table.
package chunker

import (
	"strings"

	"github.com/inkwell-labs/ragkit/internal/loader"
)

// Config tunes chunk boundaries. SeparatorPriority is searched in order
// when a cut point must be chosen inside the trailing Size/2 window.
type Config struct {
	Size              int
	Overlap           int
	SeparatorPriority []string
}

// DefaultConfig matches the defaults enumerated for the chunker.
func DefaultConfig() Config {
	return Config{
		Size:              1000,
		Overlap:           200,
		SeparatorPriority: []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""},
	}
}

// RawChunk is one emitted unit of chunked text, still missing the metadata the
// knowledge base façade attaches once it knows the source document.
type RawChunk struct {
	Text      string
	Order     int
	Oversized bool
}

// run accumulates consecutive non-Table element text along with the byte
// offsets where a Title element starts, so the cut-point search can prefer
// breaking right before a heading.
type run struct {
	buf          strings.Builder
	titleOffsets []int
}

func (r *run) add(el loader.Element) {
	if el.Kind == loader.KindTitle {
		r.titleOffsets = append(r.titleOffsets, r.buf.Len())
	}
	if r.buf.Len() > 0 {
		r.buf.WriteString("\n\n")
	}
	r.buf.WriteString(renderElementText(el))
}

func (r *run) reset() {
	r.buf.Reset()
	r.titleOffsets = r.titleOffsets[:0]
}

func renderElementText(el loader.Element) string {
	if el.Kind == loader.KindListItem {
		return "- " + el.Text
	}
	return el.Text
}

// Chunk splits elements into Chunks per cfg. Tables are never split: a
// Table becomes its own chunk, flagged Oversized when it alone exceeds
// cfg.Size.
func Chunk(elements []loader.Element, cfg Config) []RawChunk {
	var chunks []RawChunk
	var r run

	flushRun := func() {
		text := r.buf.String()
		titleOffsets := r.titleOffsets
		for {
			trimmed := strings.TrimSpace(text)
			if trimmed == "" {
				break
			}
			if len(text) <= cfg.Size {
				chunks = append(chunks, RawChunk{Text: trimmed, Order: len(chunks)})
				break
			}

			cut := findCutPoint(text, cfg, titleOffsets)
			piece := strings.TrimSpace(text[:cut])
			if piece != "" {
				chunks = append(chunks, RawChunk{Text: piece, Order: len(chunks)})
			}

			overlapStart := cut - cfg.Overlap
			if overlapStart < 0 {
				overlapStart = 0
			}
			overlapStart = alignForward(text, overlapStart, cut, cfg.SeparatorPriority)

			text = text[overlapStart:]
			titleOffsets = shiftOffsets(titleOffsets, overlapStart)
		}
		r.reset()
	}

	for _, el := range elements {
		if el.Kind == loader.KindPageBreak {
			continue
		}
		if el.Kind != loader.KindTable {
			r.add(el)
			continue
		}

		flushRun()

		tableText := strings.TrimSpace(el.Text)
		if tableText == "" {
			continue
		}
		chunks = append(chunks, RawChunk{
			Text:      tableText,
			Order:     len(chunks),
			Oversized: len(tableText) > cfg.Size,
		})
	}
	flushRun()

	return chunks
}

// findCutPoint chooses where to end the current chunk within text, which is
// known to be longer than cfg.Size. It searches the trailing cfg.Size/2
// window ending at cfg.Size, preferring a Title boundary, then the
// separator priority table, then a hard break at cfg.Size.
func findCutPoint(text string, cfg Config, titleOffsets []int) int {
	windowStart := cfg.Size / 2
	if windowStart < 0 {
		windowStart = 0
	}
	windowEnd := cfg.Size
	if windowEnd > len(text) {
		windowEnd = len(text)
	}

	best := -1
	for _, off := range titleOffsets {
		if off >= windowStart && off <= windowEnd && off > best {
			best = off
		}
	}
	if best >= 0 {
		return best
	}

	for _, sep := range cfg.SeparatorPriority {
		if sep == "" {
			continue
		}
		window := text[windowStart:windowEnd]
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		return windowStart + idx + len(sep)
	}

	return cfg.Size
}

// alignForward nudges an overlap-region start forward to the first
// separator boundary at or after start within [start, cut), so the next
// chunk still begins on a clean boundary when one exists nearby.
func alignForward(text string, start, cut int, separators []string) int {
	if start >= cut {
		return start
	}
	window := text[start:cut]
	best := -1
	for _, sep := range separators {
		if sep == "" {
			continue
		}
		idx := strings.Index(window, sep)
		if idx < 0 {
			continue
		}
		candidate := start + idx + len(sep)
		if best < 0 || candidate < best {
			best = candidate
		}
	}
	if best >= 0 && best < cut {
		return best
	}
	return start
}

func shiftOffsets(offsets []int, shift int) []int {
	out := make([]int, 0, len(offsets))
	for _, off := range offsets {
		if off >= shift {
			out = append(out, off-shift)
		}
	}
	return out
}
