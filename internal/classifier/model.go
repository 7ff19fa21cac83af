// Package classifier predicts a spending category from a vendor name and
// document text with a multinomial naive Bayes model.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// ErrEmptyDataset is returned by Train when there is nothing to learn from.
var ErrEmptyDataset = errors.New("classifier: empty dataset")

// Prediction is a category label with a confidence in [0, 100].
type Prediction struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// fallback is returned when no prediction can be made.
var fallback = Prediction{Category: domain.FallbackCategory, Confidence: 0}

// Model is a trained multinomial naive Bayes classifier. It is immutable
// after Train or Load and safe for concurrent use.
type Model struct {
	Classes     []string                  `json:"classes"`
	ClassDocs   map[string]int            `json:"class_docs"`
	TokenCounts map[string]map[string]int `json:"token_counts"`
	TokenTotals map[string]int            `json:"token_totals"`
	Vocabulary  map[string]int            `json:"vocabulary"`
	Documents   int                       `json:"documents"`
}

// Train builds a model from a labelled dataset.
func Train(ds Dataset) (*Model, error) {
	if len(ds.Samples) == 0 {
		return nil, ErrEmptyDataset
	}

	m := &Model{
		ClassDocs:   make(map[string]int),
		TokenCounts: make(map[string]map[string]int),
		TokenTotals: make(map[string]int),
		Vocabulary:  make(map[string]int),
	}
	for _, s := range ds.Samples {
		if _, seen := m.ClassDocs[s.Category]; !seen {
			m.Classes = append(m.Classes, s.Category)
			m.TokenCounts[s.Category] = make(map[string]int)
		}
		m.ClassDocs[s.Category]++
		m.Documents++
		for _, tok := range features(s.Vendor, s.Text) {
			m.TokenCounts[s.Category][tok]++
			m.TokenTotals[s.Category]++
			m.Vocabulary[tok]++
		}
	}
	sort.Strings(m.Classes)
	return m, nil
}

// Predict returns the most likely category. Without any known token the
// result is the fallback category with zero confidence.
func (m *Model) Predict(vendor, text string) Prediction {
	var known []string
	for _, tok := range features(vendor, text) {
		if _, ok := m.Vocabulary[tok]; ok {
			known = append(known, tok)
		}
	}
	if len(known) == 0 || len(m.Classes) == 0 {
		return fallback
	}

	vocab := float64(len(m.Vocabulary))
	scores := make([]float64, len(m.Classes))
	for i, class := range m.Classes {
		score := math.Log(float64(m.ClassDocs[class]) / float64(m.Documents))
		denom := float64(m.TokenTotals[class]) + vocab
		counts := m.TokenCounts[class]
		for _, tok := range known {
			score += math.Log((float64(counts[tok]) + 1) / denom)
		}
		scores[i] = score
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	// softmax over log scores, shifted by the max for stability
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	confidence := 100 / sum

	return Prediction{
		Category:   m.Classes[best],
		Confidence: math.Round(confidence*100) / 100,
	}
}

// Save writes the model as JSON, creating parent directories as needed.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("Save: encoding model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("Save: creating dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("Save: writing model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("Save: renaming model: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("Load: decoding model: %w", err)
	}
	if len(m.Classes) == 0 || m.Documents == 0 {
		return nil, fmt.Errorf("Load: %s: %w", path, ErrEmptyDataset)
	}
	return &m, nil
}
