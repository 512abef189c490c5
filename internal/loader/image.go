package loader

import (
	"context"
	"errors"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// imageStrategies are registered so image extensions resolve to a clear,
// actionable LoaderError instead of UnsupportedFormat: the format itself is
// supported in principle, but no OCR toolchain ships in this module.
var imageStrategies = []namedStrategy{
	{Name: "image_ocr", Tier: TierFallback, Fn: imageOCRUnavailable},
}

func imageOCRUnavailable(_ context.Context, _ Payload) ([]Element, error) {
	return nil, ragerr.New(ragerr.KindLoader, "install OCR toolchain", errNoOCRBackend)
}

var errNoOCRBackend = errors.New("no OCR backend configured for image ingestion")
