package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-labs/ragkit/internal/ragerr"
)

// LocalProvider calls an Ollama server's embeddings endpoint one text at a
// time, since Ollama's /api/embeddings has no batch form.
type LocalProvider struct {
	host      string
	model     string
	dimension int
	client    *http.Client
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewLocalProvider constructs a LocalProvider against an Ollama-compatible
// host. dimension of 0 disables the response dimension check.
func NewLocalProvider(host, model string, dimension int) *LocalProvider {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	return &LocalProvider{
		host:      host,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *LocalProvider) Identity() string { return "local:" + p.model }
func (p *LocalProvider) Dimension() int   { return p.dimension }

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	url := p.host + "/api/embeddings"
	results := make([][]float32, 0, len(texts))

	for _, text := range texts {
		body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
		if err != nil {
			return nil, ragerr.New(ragerr.KindEmbedding, "", fmt.Errorf("marshal ollama request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, ragerr.New(ragerr.KindEmbedding, "", fmt.Errorf("build ollama request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, ragerr.New(ragerr.KindEmbedding, "check ollama is running and reachable", fmt.Errorf("call ollama embeddings: %w", err))
		}

		var payload ollamaEmbedResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, ragerr.New(ragerr.KindEmbedding, "", fmt.Errorf("decode ollama response: %w", decodeErr))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, ragerr.New(ragerr.KindEmbedding, "check the model is pulled locally", fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode))
		}

		vec := make([]float32, len(payload.Embedding))
		for i, v := range payload.Embedding {
			vec[i] = float32(v)
		}
		if p.dimension > 0 && len(vec) != p.dimension {
			return nil, ragerr.New(ragerr.KindEmbedding, "", fmt.Errorf("%w: expected %d, got %d", ragerr.ErrDimensionMismatch, p.dimension, len(vec)))
		}
		results = append(results, vec)
	}
	return results, nil
}
