package loader

import (
	"path/filepath"
	"strings"
)

// FormatConfig is one row of the format configuration table (spec.md §4.2),
// grounded on rag_core.py's UNSTRUCTURED_CONFIGS.
type FormatConfig struct {
	Strategy          string // hi_res | fast | default
	IncludeMetadata   bool
	IncludePageBreaks bool
	MaxPartition      int
	NewAfterNChars    int
}

// registry enumerates every supported extension's tuning. Extensions absent
// from this map are UnsupportedFormat.
var registry = map[string]FormatConfig{
	".pdf":      {Strategy: "hi_res", IncludeMetadata: true, IncludePageBreaks: true, MaxPartition: 2000, NewAfterNChars: 1500},
	".docx":     {Strategy: "fast", IncludeMetadata: true, MaxPartition: 2000, NewAfterNChars: 1500},
	".md":       {Strategy: "fast", IncludeMetadata: true, MaxPartition: 2000, NewAfterNChars: 1500},
	".markdown": {Strategy: "fast", IncludeMetadata: true, MaxPartition: 2000, NewAfterNChars: 1500},
	".html":     {Strategy: "fast", IncludeMetadata: true, MaxPartition: 1500, NewAfterNChars: 1200},
	".htm":      {Strategy: "fast", IncludeMetadata: true, MaxPartition: 1500, NewAfterNChars: 1200},
	".txt":      {Strategy: "default", MaxPartition: 1500, NewAfterNChars: 1200},
	".csv":      {Strategy: "default", MaxPartition: 4000, NewAfterNChars: 3000},
	".tsv":      {Strategy: "default", MaxPartition: 4000, NewAfterNChars: 3000},
	".json":     {Strategy: "default", MaxPartition: 2000, NewAfterNChars: 1500},
	".yaml":     {Strategy: "default", MaxPartition: 2000, NewAfterNChars: 1500},
	".yml":      {Strategy: "default", MaxPartition: 2000, NewAfterNChars: 1500},
	".eml":      {Strategy: "fast", IncludeMetadata: true, MaxPartition: 2000, NewAfterNChars: 1500},
	".png":      {Strategy: "hi_res", MaxPartition: 4000, NewAfterNChars: 3000},
	".jpg":      {Strategy: "hi_res", MaxPartition: 4000, NewAfterNChars: 3000},
	".jpeg":     {Strategy: "hi_res", MaxPartition: 4000, NewAfterNChars: 3000},
	".tiff":     {Strategy: "hi_res", MaxPartition: 4000, NewAfterNChars: 3000},
}

// SupportedExtensions returns every registered extension (lowercased, with
// the leading dot), in no particular order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// DetectExtension normalizes a path's extension the way every strategy
// dispatch table keys on it.
func DetectExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
