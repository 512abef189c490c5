// Package config loads ragkit's runtime configuration from the environment,
// following the flat env-driven Config struct the teacher agent uses.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/llm"
)

const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"

	// ProviderOllama and ProviderOpenAI name the internal/llm backend that
	// ProviderLocal/ProviderRemote map onto.
	ProviderOllama = llm.ProviderOllama
	ProviderOpenAI = llm.ProviderOpenAI
)

// EmbeddingConfig configures the embedding provider used by the embedding
// service (§4.4, §6).
type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

// LLMConfig configures the generator used by the query orchestrator.
type LLMConfig struct {
	Provider    string
	Model       string
	Temperature float64
}

// RetrievalConfig configures the query orchestrator's retrieval step (§4.7).
type RetrievalConfig struct {
	K            int
	FetchK       int
	MaxDistance  float64
	SimilarLimit int
}

// LargeStoreConfig configures §4.5's large-collection incremental policy.
type LargeStoreConfig struct {
	Threshold          int
	IncrementalBatch   int
	CheckpointEvery    int
	MemoryCapMiB       int
	MemoryCacheCapcity int
}

// Config is ragkit's fully resolved runtime configuration (§6).
type Config struct {
	PostgresDSN string
	Neo4jURI    string
	Neo4jUser   string
	Neo4jPass   string

	DataDir          string
	VectorDBPath     string
	CacheDir         string
	ConvertedDocsDir string

	CollectionName string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingConfig
	LLM        LLMConfig
	Retrieval  RetrievalConfig
	LargeStore LargeStoreConfig

	ChunkSize    int
	ChunkOverlap int
}

// Load resolves Config from the process environment, falling back to
// defaults matched to spec.md §6 and §4.3/§4.4/§4.5's stated defaults.
func Load() Config {
	return Config{
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/ragkit?sslmode=disable"),
		Neo4jURI:    getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:   getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:   getEnv("NEO4J_PASSWORD", "password"),

		DataDir:          getEnv("DATA_DIR", "./data"),
		VectorDBPath:     getEnv("VECTOR_DB_PATH", "./vector_store"),
		CacheDir:         getEnv("CACHE_DIR", "./embedding_cache"),
		ConvertedDocsDir: getEnv("CONVERTED_DOCS_DIR", "./converted_docs"),

		CollectionName: getEnv("COLLECTION_NAME", "ragkit"),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("REMOTE_API_KEY", ""),
		OpenAIBaseURL: getEnv("REMOTE_API_BASE", ""),

		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", ProviderLocal),
			Model:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 768),
		},
		LLM: loadLLMConfig(),
		Retrieval: RetrievalConfig{
			K:            getEnvInt("RETRIEVAL_K", 5),
			FetchK:       getEnvInt("RETRIEVAL_FETCH_K", 10),
			MaxDistance:  getEnvFloat("RETRIEVAL_MAX_DISTANCE", 0.3),
			SimilarLimit: getEnvInt("RETRIEVAL_K", 5),
		},
		LargeStore: LargeStoreConfig{
			Threshold:          getEnvInt("LARGE_DB_THRESHOLD", 10000),
			IncrementalBatch:   getEnvInt("INCREMENTAL_BATCH_SIZE", 2000),
			CheckpointEvery:    getEnvInt("CHECKPOINT_EVERY", 5000),
			MemoryCapMiB:       getEnvInt("MEMORY_CAP_MIB", 2048),
			MemoryCacheCapcity: getEnvInt("MEMORY_CACHE_CAPACITY", 1024),
		},
		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
	}
}

// loadLLMConfig resolves the LLM provider config, reading REMOTE_* keys when
// MODEL_TYPE=remote and LOCAL_* keys otherwise.
func loadLLMConfig() LLMConfig {
	provider := getEnv("MODEL_TYPE", ProviderLocal)
	if provider == ProviderRemote {
		return LLMConfig{
			Provider:    ProviderRemote,
			Model:       getEnv("REMOTE_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("REMOTE_TEMPERATURE", 0.2),
		}
	}
	return LLMConfig{
		Provider:    ProviderLocal,
		Model:       getEnv("LOCAL_MODEL", "llama3.1"),
		Temperature: getEnvFloat("LOCAL_TEMPERATURE", 0.2),
	}
}

// NewEmbeddingProvider builds the embedding.Provider named by
// Embeddings.Provider, mirroring the teacher's embeddings.NewEmbedder
// provider switch.
func (c Config) NewEmbeddingProvider() (embedding.Provider, error) {
	switch c.Embeddings.Provider {
	case ProviderLocal:
		return embedding.NewLocalProvider(c.OllamaHost, c.Embeddings.Model, c.Embeddings.Dimension), nil
	case ProviderRemote:
		if c.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("remote embedding provider selected but no API key configured")
		}
		return embedding.NewRemoteProvider(c.OpenAIAPIKey, c.OpenAIBaseURL, c.Embeddings.Model, c.Embeddings.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", c.Embeddings.Provider)
	}
}

// NewLLMClient builds the llm.Client named by LLM.Provider, mirroring the
// teacher's llm.NewClient provider switch.
func (c Config) NewLLMClient() (llm.Client, error) {
	provider := ProviderOllama
	if c.LLM.Provider == ProviderRemote {
		provider = ProviderOpenAI
	}
	return llm.NewClient(llm.Options{
		Provider:      provider,
		Model:         c.LLM.Model,
		OllamaHost:    c.OllamaHost,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
	})
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
