package loader

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

var pdfStrategies = []namedStrategy{
	{Name: "pdf_page_structured", Tier: TierEnhanced, Fn: pdfEnhanced},
	{Name: "pdf_plain_text", Tier: TierBasic, Fn: pdfBasic},
	{Name: "pdf_raw_blob", Tier: TierFallback, Fn: pdfFallback},
}

// pdfEnhanced walks pages individually so page boundaries survive as
// PageBreak Elements and short, capitalized, punctuation-free lines are
// promoted to Titles, mirroring the heading heuristics unstructured-style
// extractors apply to page text.
func pdfEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	r, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, err
	}

	var elements []Element
	order := 0
	numPages := r.NumPage()
	for pageIndex := 1; pageIndex <= numPages; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageNum := pageIndex
		for _, line := range splitNonEmptyLines(text) {
			kind := KindNarrativeText
			if looksLikeHeading(line) {
				kind = KindTitle
			} else if looksLikeListItem(line) {
				kind = KindListItem
			}
			elements = append(elements, Element{Kind: kind, Text: normalize.Normalize(line), Order: order, Page: &pageNum})
			order++
		}
		elements = append(elements, Element{Kind: KindPageBreak, Text: "", Order: order, Page: &pageNum})
		order++
	}
	return elements, nil
}

// pdfBasic extracts plain text across the whole document without tracking
// page boundaries, splitting on blank lines into narrative blocks.
func pdfBasic(_ context.Context, payload Payload) ([]Element, error) {
	r, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(txt)
		sb.WriteString("\n\n")
	}

	var elements []Element
	order := 0
	for _, para := range strings.Split(sb.String(), "\n\n") {
		txt := normalize.Normalize(para)
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

// pdfFallback pulls the entire document's plain text as one blob, the last
// resort when per-page reading fails.
func pdfFallback(_ context.Context, payload Payload) ([]Element, error) {
	r, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, err
	}
	b, err := r.GetPlainText()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return nil, err
	}
	txt := normalize.Normalize(buf.String())
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}

func splitNonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func looksLikeHeading(line string) bool {
	if len(line) == 0 || len(line) > 90 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 12 {
		return false
	}
	upper := 0
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && (r[0] >= 'A' && r[0] <= 'Z') {
			upper++
		}
	}
	return upper >= (len(words)+1)/2
}

func looksLikeListItem(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "•") {
		return true
	}
	if len(trimmed) > 2 && trimmed[0] >= '0' && trimmed[0] <= '9' {
		for i, r := range trimmed {
			if r == '.' || r == ')' {
				return i > 0 && i < 4
			}
			if r < '0' || r > '9' {
				break
			}
		}
	}
	return false
}
