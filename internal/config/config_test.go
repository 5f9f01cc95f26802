package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/studystack/campusrag/internal/rag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ChunkSize != 1000 {
		t.Errorf("expected default chunk_size 1000, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Errorf("expected default chunk_overlap 200, got %d", cfg.ChunkOverlap)
	}
	if cfg.EmbeddingProvider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.EmbeddingProvider)
	}
	if cfg.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", cfg.TopK)
	}
	if cfg.ScoreThreshold != 0.35 {
		t.Errorf("expected default score_threshold 0.35, got %v", cfg.ScoreThreshold)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.campusrag.yml")

	original := DefaultConfig()
	original.EmbeddingProvider = ProviderOllama
	original.EmbeddingModel = "nomic-embed-text"
	original.EmbeddingDimension = 768
	original.ChunkSize = 800
	original.ChunkOverlap = 100
	original.DataDir = "./corpus"
	original.Exclude = []string{"*.tmp", "drafts/**"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.EmbeddingProvider != original.EmbeddingProvider {
		t.Errorf("embedding_provider: got %q, want %q", loaded.EmbeddingProvider, original.EmbeddingProvider)
	}
	if loaded.EmbeddingModel != original.EmbeddingModel {
		t.Errorf("embedding_model: got %q, want %q", loaded.EmbeddingModel, original.EmbeddingModel)
	}
	if loaded.EmbeddingDimension != original.EmbeddingDimension {
		t.Errorf("embedding_dimension: got %d, want %d", loaded.EmbeddingDimension, original.EmbeddingDimension)
	}
	if loaded.ChunkSize != original.ChunkSize {
		t.Errorf("chunk_size: got %d, want %d", loaded.ChunkSize, original.ChunkSize)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, original.DataDir)
	}
	if len(loaded.Exclude) != len(original.Exclude) {
		t.Fatalf("exclude length: got %d, want %d", len(loaded.Exclude), len(original.Exclude))
	}
	for i, v := range loaded.Exclude {
		if v != original.Exclude[i] {
			t.Errorf("exclude[%d]: got %q, want %q", i, v, original.Exclude[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("expected default chunk_size, got %d", cfg.ChunkSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	os.Setenv("CAMPUSRAG_EMBEDDING_PROVIDER", "ollama")
	defer os.Unsetenv("CAMPUSRAG_EMBEDDING_PROVIDER")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.EmbeddingProvider != ProviderOllama {
		t.Errorf("env override failed: got %q, want %q", loaded.EmbeddingProvider, ProviderOllama)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"overlap above size", func(c *Config) { c.ChunkOverlap = c.ChunkSize + 1 }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"negative threshold", func(c *Config) { c.ScoreThreshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.ScoreThreshold = 1.1 }},
		{"zero diversity cap", func(c *Config) { c.SourceDiversityCap = 0 }},
		{"zero overfetch", func(c *Config) { c.OverfetchFactor = 0 }},
		{"unknown provider", func(c *Config) { c.EmbeddingProvider = "cohere" }},
		{"empty model", func(c *Config) { c.EmbeddingModel = "" }},
		{"zero dimension", func(c *Config) { c.EmbeddingDimension = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty index dir", func(c *Config) { c.IndexDir = "" }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !errors.Is(err, rag.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset(ProviderOllama)
	if p.Model != "nomic-embed-text" || p.Dimension != 768 {
		t.Errorf("unexpected ollama preset: %+v", p)
	}

	// Unknown provider falls back to OpenAI.
	p = GetPreset("unknown")
	if p.Model != "text-embedding-3-small" {
		t.Errorf("expected fallback to openai preset, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}
