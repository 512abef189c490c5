// Package embedding provides the embedding Service (C4): a Provider
// abstraction over local and remote backends, fronted by a two-tier cache.
package embedding

import "context"

// Provider turns text into dense vectors. Identity distinguishes cache
// entries and collections across providers/models with incompatible
// dimensions.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Identity() string
	Dimension() int
}
