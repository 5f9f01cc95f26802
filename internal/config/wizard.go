package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .campusrag.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to campusrag! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding provider selection.
	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama", "google"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)
	preset := GetPreset(provider)

	// 2. Embedding model.
	modelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: preset.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	dimension := preset.Dimension
	if model != preset.Model {
		dimPrompt := promptui.Prompt{
			Label:    "Embedding dimension",
			Default:  strconv.Itoa(preset.Dimension),
			Validate: validatePositiveInt,
		}
		dimStr, err := dimPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("embedding dimension: %w", err)
		}
		dimension, _ = strconv.Atoi(dimStr)
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (documents to index)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Chunking parameters.
	sizePrompt := promptui.Prompt{
		Label:    "Chunk size (characters)",
		Default:  strconv.Itoa(cfg.ChunkSize),
		Validate: validatePositiveInt,
	}
	sizeStr, err := sizePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	chunkSize, _ := strconv.Atoi(sizeStr)

	overlapPrompt := promptui.Prompt{
		Label:   "Chunk overlap (characters)",
		Default: strconv.Itoa(cfg.ChunkOverlap),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fmt.Errorf("must be a non-negative integer")
			}
			if n >= chunkSize {
				return fmt.Errorf("must be smaller than chunk size %d", chunkSize)
			}
			return nil
		},
	}
	overlapStr, err := overlapPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk overlap: %w", err)
	}
	chunkOverlap, _ := strconv.Atoi(overlapStr)

	cfg.EmbeddingProvider = provider
	cfg.EmbeddingModel = model
	cfg.EmbeddingDimension = dimension
	cfg.DataDir = dataDir
	cfg.ChunkSize = chunkSize
	cfg.ChunkOverlap = chunkOverlap

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Seed the category layout so files can be dropped in right away.
	for _, category := range DefaultCategories {
		if err := os.MkdirAll(strings.TrimSuffix(dataDir, "/")+"/"+category, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Check for API key.
	envVar := APIKeyEnvVar(provider)
	if envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running campusrag seed.\n", envVar)
	}

	// Save to .campusrag.yml.
	configPath := ".campusrag.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Printf("Drop .txt/.md/.csv files under %s and run `campusrag seed`.\n", dataDir)
	return cfg, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
