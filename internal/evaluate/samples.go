package evaluate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sample is one evaluation query with the sources and keywords a good
// retrieval should surface.
type Sample struct {
	Query            string   `yaml:"query"`
	ExpectedSources  []string `yaml:"expected_sources"`
	ExpectedKeywords []string `yaml:"expected_keywords"`
	Category         string   `yaml:"category"`
}

// LoadSamples reads an evaluation dataset from a YAML file. The file holds
// a list of samples:
//
//	- query: "What are the attendance requirements?"
//	  expected_sources: ["regulations/academic_regulations"]
//	  expected_keywords: ["75%", "attendance"]
//	  category: regulations
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading samples file: %w", err)
	}

	var samples []Sample
	if err := yaml.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parsing samples file %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("samples file %s contains no samples", path)
	}
	for i, s := range samples {
		if s.Query == "" {
			return nil, fmt.Errorf("sample %d has an empty query", i+1)
		}
	}
	return samples, nil
}
