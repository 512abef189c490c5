package loader

import (
	"bytes"
	"context"
	"os"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// Result is everything the knowledge base façade needs to persist about one
// loaded document (spec.md §4.2).
type Result struct {
	Elements []Element
	Info     StructuralInfo
	Method   string // which strategy tier actually produced Elements
	Ext      string
}

// Load reads path, dispatches on its extension, and runs that extension's
// strategies from most to least capable, stopping at the first one that
// yields Elements (§9 redesign flag).
func Load(ctx context.Context, path string) (Result, error) {
	ext := DetectExtension(path)
	cfg, ok := registry[ext]
	if !ok {
		return Result{}, ragerr.New(ragerr.KindInput, "unsupported file extension: "+ext, ragerr.ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, ragerr.New(ragerr.KindInput, "could not read "+path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, ragerr.New(ragerr.KindInput, "document has no content to extract", ragerr.ErrEmptyDocument)
	}

	payload := Payload{Path: path, Data: data, Ext: ext, Cfg: cfg}

	strategies, err := strategiesFor(ext)
	if err != nil {
		return Result{}, err
	}

	elements, method, err := tryStrategies(ctx, strategies, payload)
	if err != nil {
		return Result{}, ragerr.Wrap(ragerr.KindLoader, "all loader strategies failed for "+path, "%w", err)
	}
	if len(elements) == 0 {
		return Result{}, ragerr.New(ragerr.KindInput, "document produced no extractable content", ragerr.ErrEmptyDocument)
	}

	elements = partitionOversized(elements, cfg)

	for i := range elements {
		elements[i].Order = i
	}

	return Result{
		Elements: elements,
		Info:     ComputeStructuralInfo(elements),
		Method:   method,
		Ext:      ext,
	}, nil
}

// strategiesFor returns the enhanced->basic->fallback cascade for ext.
func strategiesFor(ext string) ([]namedStrategy, error) {
	switch ext {
	case ".md", ".markdown":
		return markdownStrategies, nil
	case ".pdf":
		return pdfStrategies, nil
	case ".html", ".htm":
		return htmlStrategies, nil
	case ".csv", ".tsv":
		return delimitedStrategies, nil
	case ".json":
		return jsonStrategies, nil
	case ".yaml", ".yml":
		return yamlStrategies, nil
	case ".txt":
		return plaintextStrategies, nil
	case ".docx":
		return docxStrategies, nil
	case ".eml":
		return emlStrategies, nil
	case ".png", ".jpg", ".jpeg", ".tiff":
		return imageStrategies, nil
	default:
		return nil, ragerr.New(ragerr.KindInput, "unsupported file extension: "+ext, ragerr.ErrUnsupportedFormat)
	}
}
