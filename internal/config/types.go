package config

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderGoogle ProviderType = "google"
)

// Config is the top-level campusrag configuration, corresponding to
// .campusrag.yml.
type Config struct {
	ChunkSize          int          `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap       int          `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK               int          `yaml:"top_k" koanf:"top_k"`
	ScoreThreshold     float64      `yaml:"score_threshold" koanf:"score_threshold"`
	SourceDiversityCap int          `yaml:"source_diversity_cap" koanf:"source_diversity_cap"`
	OverfetchFactor    int          `yaml:"overfetch_factor" koanf:"overfetch_factor"`
	EmbeddingProvider  ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel     string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimension int          `yaml:"embedding_dimension" koanf:"embedding_dimension"`
	EmbeddingBaseURL   string       `yaml:"embedding_base_url,omitempty" koanf:"embedding_base_url"`
	MaxConcurrency     int          `yaml:"max_concurrency" koanf:"max_concurrency"`
	DataDir            string       `yaml:"data_dir" koanf:"data_dir"`
	IndexDir           string       `yaml:"index_dir" koanf:"index_dir"`
	Include            []string     `yaml:"include,omitempty" koanf:"include"`
	Exclude            []string     `yaml:"exclude,omitempty" koanf:"exclude"`
	ServerAddr         string       `yaml:"server_addr" koanf:"server_addr"`
	WatchDebounceMs    int          `yaml:"watch_debounce_ms" koanf:"watch_debounce_ms"`
}
