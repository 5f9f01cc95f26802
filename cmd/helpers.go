package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/studystack/campusrag/internal/config"
	"github.com/studystack/campusrag/internal/corpus"
	"github.com/studystack/campusrag/internal/db"
	"github.com/studystack/campusrag/internal/embeddings"
	"github.com/studystack/campusrag/internal/indexer"
	"github.com/studystack/campusrag/internal/manifest"
	"github.com/studystack/campusrag/internal/retriever"
	"github.com/studystack/campusrag/internal/splitter"
	"github.com/studystack/campusrag/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `campusrag init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// This is the shared version used by seed, query, serve, mcp and eval.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(cfg.EmbeddingProvider).Model
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model), cfg.EmbeddingBaseURL), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model), cfg.EmbeddingBaseURL), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, cfg.EmbeddingDimension, cfg.EmbeddingBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// engine bundles the wired retrieval components every command builds on.
type engine struct {
	embedder  embeddings.Embedder
	store     vectordb.Store
	database  *db.DB
	manifest  *manifest.Store
	pipeline  *indexer.Pipeline
	retriever *retriever.Retriever
}

func (e *engine) Close() {
	if e.database != nil {
		e.database.Close()
	}
}

// openEngine wires the vector store, manifest, pipeline and retriever from
// config. The vector store and manifest both live under cfg.IndexDir.
func openEngine(cfg *config.Config) (*engine, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	store, err := vectordb.NewChromemStore(filepath.Join(cfg.IndexDir, "vectordb"), cfg.EmbeddingDimension, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.IndexDir, "campusrag.db"))
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}
	man := manifest.NewStore(database)

	split, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating splitter: %w", err)
	}

	pipe, err := indexer.New(split, embedder, store, man, indexer.Options{
		MaxConcurrency: cfg.MaxConcurrency,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	ret, err := retriever.New(embedder, store, retriever.Options{
		TopK:               cfg.TopK,
		ScoreThreshold:     cfg.ScoreThreshold,
		SourceDiversityCap: cfg.SourceDiversityCap,
		OverfetchFactor:    cfg.OverfetchFactor,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	return &engine{
		embedder:  embedder,
		store:     store,
		database:  database,
		manifest:  man,
		pipeline:  pipe,
		retriever: ret,
	}, nil
}

// newLoader builds the corpus loader for the configured data directory.
func newLoader(cfg *config.Config) *corpus.Loader {
	return corpus.NewLoader(cfg.DataDir, cfg.Include, cfg.Exclude)
}
