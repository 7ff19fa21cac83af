package classifier

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed dataset.yaml
var defaultDatasetYAML []byte

// Sample is one labelled training example.
type Sample struct {
	Category string `yaml:"category"`
	Vendor   string `yaml:"vendor"`
	Text     string `yaml:"text"`
}

// Dataset is a set of labelled samples.
type Dataset struct {
	Samples []Sample `yaml:"samples"`
}

// ParseDataset decodes a YAML dataset.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("ParseDataset: %w", err)
	}
	for i, s := range ds.Samples {
		if s.Category == "" {
			return Dataset{}, fmt.Errorf("ParseDataset: sample %d has no category", i)
		}
	}
	return ds, nil
}

// DefaultDataset returns the built-in training set.
func DefaultDataset() Dataset {
	ds, err := ParseDataset(defaultDatasetYAML)
	if err != nil {
		panic(err)
	}
	return ds
}
