package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

var delimitedStrategies = []namedStrategy{
	{Name: "delimited_table", Tier: TierEnhanced, Fn: delimitedEnhanced},
	{Name: "delimited_rows_as_text", Tier: TierBasic, Fn: delimitedBasic},
	{Name: "delimited_raw", Tier: TierFallback, Fn: delimitedFallback},
}

func delimiterFor(ext string) rune {
	if ext == ".tsv" {
		return '\t'
	}
	return ','
}

// delimitedEnhanced parses proper CSV/TSV, emitting the header row as a
// Title and the remaining rows as a single Table Element.
func delimitedEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	r := csv.NewReader(bytes.NewReader(payload.Data))
	r.Comma = delimiterFor(payload.Ext)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var elements []Element
	order := 0
	header := records[0]
	elements = append(elements, Element{Kind: KindTitle, Text: normalize.Normalize(strings.Join(header, " | ")), Order: order})
	order++

	if len(records) > 1 {
		body := records[1:]
		elements = append(elements, Element{Kind: KindTable, Text: renderTable(records), Order: order, TableCells: body})
		order++
	}
	return elements, nil
}

// delimitedBasic renders each row as its own narrative line, tolerant of
// ragged rows a strict CSV reader would reject.
func delimitedBasic(_ context.Context, payload Payload) ([]Element, error) {
	delim := string(delimiterFor(payload.Ext))
	lines := strings.Split(string(payload.Data), "\n")

	var elements []Element
	order := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, delim)
		txt := normalize.Normalize(strings.Join(fields, " "))
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

func delimitedFallback(_ context.Context, payload Payload) ([]Element, error) {
	txt := normalize.Normalize(string(payload.Data))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}
