package config

// EmbeddingPreset describes the default model and vector dimension for a
// provider.
type EmbeddingPreset struct {
	Model     string
	Dimension int
}

// embeddingPresets maps each provider to its default embedding model.
var embeddingPresets = map[ProviderType]EmbeddingPreset{
	ProviderOpenAI: {Model: "text-embedding-3-small", Dimension: 1536},
	ProviderOllama: {Model: "nomic-embed-text", Dimension: 768},
	ProviderGoogle: {Model: "text-embedding-004", Dimension: 768},
}

// DefaultExcludes are glob patterns skipped during corpus loading by default.
var DefaultExcludes = []string{
	".git/**",
	".campusrag/**",
	"**/.DS_Store",
	"*.tmp",
	"*.lock",
}

// DefaultCategories are the data directory subfolders created and scanned by
// default. Each one doubles as the category of the documents inside it.
var DefaultCategories = []string{
	"timetables",
	"notices",
	"syllabus",
	"exams",
	"regulations",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               5,
		ScoreThreshold:     0.35,
		SourceDiversityCap: 3,
		OverfetchFactor:    3,
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
		MaxConcurrency:     4,
		DataDir:            "./data",
		IndexDir:           ".campusrag",
		Exclude:            DefaultExcludes,
		ServerAddr:         ":8080",
		WatchDebounceMs:    500,
	}
}

// GetPreset returns the embedding preset for the given provider. Unknown
// providers fall back to the OpenAI preset.
func GetPreset(provider ProviderType) EmbeddingPreset {
	if preset, ok := embeddingPresets[provider]; ok {
		return preset
	}
	return embeddingPresets[ProviderOpenAI]
}
