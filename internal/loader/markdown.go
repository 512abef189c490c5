package loader

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

var markdownStrategies = []namedStrategy{
	{Name: "markdown_ast", Tier: TierEnhanced, Fn: markdownEnhanced},
	{Name: "markdown_heading_split", Tier: TierBasic, Fn: markdownBasic},
	{Name: "markdown_raw", Tier: TierFallback, Fn: markdownFallback},
}

// markdownEnhanced walks the goldmark AST so headings, list items and
// tables come out as their own typed Elements instead of raw text (grounded
// on the AST-walking approach used for structural extraction elsewhere in
// the pack).
func markdownEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	src := payload.Data
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var elements []Element
	order := 0

	var walk func(n ast.Node) error
	walk = func(n ast.Node) error {
		switch node := n.(type) {
		case *ast.Heading:
			txt := extractText(node, src)
			if strings.TrimSpace(txt) != "" {
				elements = append(elements, Element{Kind: KindTitle, Text: normalize.Normalize(txt), Order: order})
				order++
			}
			return nil
		case *ast.ListItem:
			txt := extractText(node, src)
			if strings.TrimSpace(txt) != "" {
				elements = append(elements, Element{Kind: KindListItem, Text: normalize.Normalize(txt), Order: order})
				order++
			}
			return nil
		case *ast.Paragraph:
			if _, insideList := n.Parent().(*ast.ListItem); insideList {
				break
			}
			txt := extractText(node, src)
			if strings.TrimSpace(txt) != "" {
				elements = append(elements, Element{Kind: KindNarrativeText, Text: normalize.Normalize(txt), Order: order})
				order++
			}
			return nil
		case *extast.Table:
			cells := extractTable(node, src)
			if len(cells) > 0 {
				elements = append(elements, Element{Kind: KindTable, Text: renderTable(cells), Order: order, TableCells: cells})
				order++
			}
			return nil
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(doc); err != nil {
		return nil, err
	}
	return elements, nil
}

func extractText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString(" ")
			}
			continue
		}
		sb.WriteString(extractText(c, src))
	}
	return sb.String()
}

func extractTable(n *extast.Table, src []byte) [][]string {
	var rows [][]string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		row, ok := c.(*extast.TableRow)
		if !ok {
			if header, ok := c.(*extast.TableHeader); ok {
				var cells []string
				for cc := header.FirstChild(); cc != nil; cc = cc.NextSibling() {
					cells = append(cells, strings.TrimSpace(extractText(cc, src)))
				}
				rows = append(rows, cells)
			}
			continue
		}
		var cells []string
		for cc := row.FirstChild(); cc != nil; cc = cc.NextSibling() {
			cells = append(cells, strings.TrimSpace(extractText(cc, src)))
		}
		rows = append(rows, cells)
	}
	return rows
}

func renderTable(cells [][]string) string {
	lines := make([]string, 0, len(cells))
	for _, row := range cells {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// markdownBasic does a coarse line-based split: "#"-prefixed lines become
// Titles, "- "/"* " prefixed lines become ListItems, everything else
// (numbered list lines included) accumulates into NarrativeText blocks
// separated by blank lines.
func markdownBasic(_ context.Context, payload Payload) ([]Element, error) {
	scanner := bufio.NewScanner(bytes.NewReader(payload.Data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var elements []Element
	var para []string
	order := 0

	flush := func() {
		if len(para) == 0 {
			return
		}
		txt := normalize.Normalize(strings.Join(para, " "))
		if txt != "" {
			elements = append(elements, Element{Kind: KindNarrativeText, Text: txt, Order: order})
			order++
		}
		para = para[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			elements = append(elements, Element{Kind: KindTitle, Text: normalize.Normalize(title), Order: order})
			order++
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			item := strings.TrimSpace(trimmed[2:])
			elements = append(elements, Element{Kind: KindListItem, Text: normalize.Normalize(item), Order: order})
			order++
		default:
			para = append(para, trimmed)
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return elements, nil
}

// markdownFallback treats the entire document as a single narrative block,
// used only when both structured strategies fail on malformed input.
func markdownFallback(_ context.Context, payload Payload) ([]Element, error) {
	txt := normalize.Normalize(string(payload.Data))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}
