package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

// docxStrategies extract text from the OOXML zip container directly since
// the pack carries no dedicated docx parsing library. All three tiers
// read word/document.xml from the archive the same way; they differ in how
// the text is extracted and grouped into elements.
var docxStrategies = []namedStrategy{
	{Name: "docx_paragraphs", Tier: TierEnhanced, Fn: docxEnhanced},
	{Name: "docx_run_text", Tier: TierBasic, Fn: docxBasic},
	{Name: "docx_raw_scan", Tier: TierFallback, Fn: docxFallback},
}

var (
	wParaPattern = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	wTextPattern = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
	xmlTagOnly   = regexp.MustCompile(`<[^>]+>`)
)

func readDocumentXML(data []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, io.EOF
}

// docxEnhanced splits on <w:p> paragraph boundaries so each paragraph
// becomes its own NarrativeText Element.
func docxEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	xmlBytes, err := readDocumentXML(payload.Data)
	if err != nil {
		return nil, err
	}

	var elements []Element
	order := 0
	for _, para := range wParaPattern.FindAllString(string(xmlBytes), -1) {
		runs := wTextPattern.FindAllStringSubmatch(para, -1)
		var sb strings.Builder
		for _, run := range runs {
			sb.WriteString(run[1])
		}
		txt := normalize.Normalize(sb.String())
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

// docxBasic ignores paragraph boundaries and joins every <w:t> run in
// document order, separated by spaces, into one NarrativeText element.
func docxBasic(_ context.Context, payload Payload) ([]Element, error) {
	xmlBytes, err := readDocumentXML(payload.Data)
	if err != nil {
		return nil, err
	}
	runs := wTextPattern.FindAllStringSubmatch(string(xmlBytes), -1)
	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run[1])
		sb.WriteString(" ")
	}
	txt := normalize.Normalize(sb.String())
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}

// docxFallback strips every XML tag from the raw zip member bytes it can
// find, tolerant of a document.xml that doesn't even parse as expected.
func docxFallback(_ context.Context, payload Payload) ([]Element, error) {
	xmlBytes, err := readDocumentXML(payload.Data)
	if err != nil {
		return nil, err
	}
	stripped := xmlTagOnly.ReplaceAllString(string(xmlBytes), " ")
	txt := normalize.Normalize(stripped)
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}
