package loader

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

var htmlStrategies = []namedStrategy{
	{Name: "html_dom_structured", Tier: TierEnhanced, Fn: htmlEnhanced},
	{Name: "html_dom_paragraphs", Tier: TierBasic, Fn: htmlBasic},
	{Name: "html_tag_strip", Tier: TierFallback, Fn: htmlFallback},
}

// htmlEnhanced walks the parsed DOM so headings, list items and tables
// become their own Elements, mirroring the structured scraping approach
// used against live pages elsewhere in the pack.
func htmlEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, nav, footer, noscript").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var elements []Element
	order := 0
	root.Find("h1, h2, h3, h4, h5, h6, p, li, table").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			txt := strings.TrimSpace(s.Text())
			if txt != "" {
				elements = append(elements, Element{Kind: KindTitle, Text: normalize.Normalize(txt), Order: order})
				order++
			}
		case "li":
			if s.ParentsFiltered("table").Length() > 0 {
				return
			}
			txt := strings.TrimSpace(s.Text())
			if txt != "" {
				elements = append(elements, Element{Kind: KindListItem, Text: normalize.Normalize(txt), Order: order})
				order++
			}
		case "p":
			if s.ParentsFiltered("li").Length() > 0 {
				return
			}
			txt := strings.TrimSpace(s.Text())
			if txt != "" {
				elements = append(elements, Element{Kind: KindNarrativeText, Text: normalize.Normalize(txt), Order: order})
				order++
			}
		case "table":
			cells := htmlTableCells(s)
			if len(cells) > 0 {
				elements = append(elements, Element{Kind: KindTable, Text: renderTable(cells), Order: order, TableCells: cells})
				order++
			}
		}
	})
	return elements, nil
}

func htmlTableCells(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// htmlBasic ignores structure entirely and treats the body's rendered text
// as one paragraph-split narrative, used when the DOM has no clean
// heading/list structure to key off.
func htmlBasic(_ context.Context, payload Payload) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	text := body.Text()

	var elements []Element
	order := 0
	for _, para := range strings.Split(text, "\n") {
		txt := normalize.Normalize(para)
		if txt == "" {
			continue
		}
		elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
		order++
	}
	return elements, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// htmlFallback strips tags with a regex when the document does not even
// parse as valid HTML.
func htmlFallback(_ context.Context, payload Payload) ([]Element, error) {
	stripped := tagPattern.ReplaceAllString(string(payload.Data), " ")
	txt := normalize.Normalize(stripped)
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}
