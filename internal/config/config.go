package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/studystack/campusrag/internal/rag"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CAMPUSRAG_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: CAMPUSRAG_CHUNK_SIZE -> chunk_size, etc.
	if err := k.Load(env.Provider("CAMPUSRAG_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CAMPUSRAG_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized embedding provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderGoogle: true,
}

// Validate checks that the configuration contains valid values. Violations
// are startup errors, never deferred to per-call failures.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", rag.ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", rag.ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d",
			rag.ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", rag.ErrInvalidConfig, c.TopK)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score_threshold must be in [0, 1], got %v", rag.ErrInvalidConfig, c.ScoreThreshold)
	}
	if c.SourceDiversityCap < 1 {
		return fmt.Errorf("%w: source_diversity_cap must be at least 1, got %d", rag.ErrInvalidConfig, c.SourceDiversityCap)
	}
	if c.OverfetchFactor < 1 {
		return fmt.Errorf("%w: overfetch_factor must be at least 1, got %d", rag.ErrInvalidConfig, c.OverfetchFactor)
	}
	if !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("%w: invalid embedding_provider %q: must be one of openai, ollama, google",
			rag.ErrInvalidConfig, c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding_model is required", rag.ErrInvalidConfig)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding_dimension must be positive, got %d", rag.ErrInvalidConfig, c.EmbeddingDimension)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max_concurrency must be at least 1, got %d", rag.ErrInvalidConfig, c.MaxConcurrency)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", rag.ErrInvalidConfig)
	}
	if c.IndexDir == "" {
		return fmt.Errorf("%w: index_dir is required", rag.ErrInvalidConfig)
	}
	if c.WatchDebounceMs < 0 {
		return fmt.Errorf("%w: watch_debounce_ms must not be negative, got %d", rag.ErrInvalidConfig, c.WatchDebounceMs)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for the
// API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
