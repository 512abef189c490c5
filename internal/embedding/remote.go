package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// RemoteProvider calls the OpenAI embeddings API, which natively batches.
type RemoteProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewRemoteProvider constructs a RemoteProvider. dimension of 0 disables
// the response dimension check.
func NewRemoteProvider(apiKey, baseURL, model string, dimension int) *RemoteProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &RemoteProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

func (p *RemoteProvider) Identity() string { return "remote:" + p.model }
func (p *RemoteProvider) Dimension() int   { return p.dimension }

func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, ragerr.New(ragerr.KindEmbedding, "check REMOTE_API_KEY and network access", fmt.Errorf("create openai embeddings: %w", err))
	}

	results := make([][]float32, len(resp.Data))
	for i, datum := range resp.Data {
		if p.dimension > 0 && len(datum.Embedding) != p.dimension {
			return nil, ragerr.New(ragerr.KindEmbedding, "", fmt.Errorf("%w: expected %d, got %d", ragerr.ErrDimensionMismatch, p.dimension, len(datum.Embedding)))
		}
		results[i] = datum.Embedding
	}
	return results, nil
}
