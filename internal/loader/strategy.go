package loader

import (
	"context"
	"errors"
	"fmt"
)

// Payload is the raw input handed to a strategy function.
type Payload struct {
	Path string
	Data []byte
	Ext  string
	Cfg  FormatConfig
}

// StrategyFunc extracts Elements from a Payload. It never uses exceptions
// as control flow (§9): a failed strategy returns a plain error and the
// caller moves on to the next one.
type StrategyFunc func(ctx context.Context, payload Payload) ([]Element, error)

// Canonical processing_method tiers (spec.md §3's ChunkMetadata enum). Every
// namedStrategy in every per-format cascade declares which of these it is,
// independent of its own diagnostic Name.
const (
	TierEnhanced = "enhanced"
	TierBasic    = "basic"
	TierFallback = "fallback"
)

type namedStrategy struct {
	Name string // diagnostic, e.g. "markdown_ast" — used only in error joins
	Tier string // one of TierEnhanced/TierBasic/TierFallback, stored as processing_method
	Fn   StrategyFunc
}

// tryStrategies runs each strategy in order and returns the first one that
// both succeeds and yields at least one Element, along with its canonical
// tier. This is the explicit replacement for exception-driven fallback
// cascades (§9).
func tryStrategies(ctx context.Context, strategies []namedStrategy, payload Payload) ([]Element, string, error) {
	var errs []error
	for _, s := range strategies {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		default:
		}

		elements, err := s.Fn(ctx, payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		if len(elements) == 0 {
			errs = append(errs, fmt.Errorf("%s: produced no elements", s.Name))
			continue
		}
		return elements, s.Tier, nil
	}
	return nil, "", errors.Join(errs...)
}
