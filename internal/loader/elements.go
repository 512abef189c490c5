// Package loader turns a document path into an ordered sequence of typed
// structural Elements plus StructuralInfo (C2), using cascading
// enhanced/basic/fallback strategies keyed by file extension.
package loader

// ElementKind tags the structural role of one Element, replacing the
// isinstance-based dispatch of the original extractor with a closed
// enumeration the chunker can switch over.
type ElementKind string

const (
	KindTitle         ElementKind = "title"
	KindNarrativeText ElementKind = "narrative_text"
	KindListItem      ElementKind = "list_item"
	KindTable         ElementKind = "table"
	KindPageBreak     ElementKind = "page_break"
	KindOther         ElementKind = "other"
)

// Element is one structural unit produced by the Loader (spec.md §3).
type Element struct {
	Kind       ElementKind
	Text       string
	Order      int
	Page       *int
	TableCells [][]string
}

// StructuralInfo summarizes one document's Element sequence (spec.md §3).
type StructuralInfo struct {
	TotalElements    int
	TitlesCount      int
	TablesCount      int
	ListsCount       int
	NarrativeBlocks  int
	TotalTextLength  int
	AvgElementLength float64
}

// ComputeStructuralInfo aggregates StructuralInfo over an Element sequence,
// counting a Table's rendered text length toward the total (spec.md §4.2).
func ComputeStructuralInfo(elements []Element) StructuralInfo {
	info := StructuralInfo{TotalElements: len(elements)}
	for _, el := range elements {
		info.TotalTextLength += len(el.Text)
		switch el.Kind {
		case KindTitle:
			info.TitlesCount++
		case KindTable:
			info.TablesCount++
		case KindListItem:
			info.ListsCount++
		case KindNarrativeText:
			info.NarrativeBlocks++
		}
	}
	if info.TotalElements > 0 {
		info.AvgElementLength = float64(info.TotalTextLength) / float64(info.TotalElements)
	}
	return info
}
