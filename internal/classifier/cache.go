package classifier

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/dvloznov/finance-ingest/internal/logger"
)

// Cache holds the process-wide model. The model is loaded from path on first
// use, or trained on the default dataset and saved there if no file exists.
type Cache struct {
	path    string
	dataset func() Dataset

	mu    sync.Mutex
	model *Model
}

// NewCache creates a cache backed by the model file at path. An empty path
// keeps the model in memory only.
func NewCache(path string) *Cache {
	return &Cache{path: path, dataset: DefaultDataset}
}

// Model returns the cached model, initializing it on first use.
func (c *Cache) Model(ctx context.Context) (*Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil {
		return c.model, nil
	}

	log := logger.FromContext(ctx)

	if c.path != "" {
		m, err := Load(c.path)
		if err == nil {
			log.Debug().Str("path", c.path).Msg("Loaded category model")
			c.model = m
			return m, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", c.path).Msg("Category model unreadable, retraining")
		}
	}

	m, err := Train(c.dataset())
	if err != nil {
		return nil, err
	}
	if c.path != "" {
		if err := m.Save(c.path); err != nil {
			log.Warn().Err(err).Str("path", c.path).Msg("Failed to persist trained category model")
		}
	}
	log.Info().Int("documents", m.Documents).Int("classes", len(m.Classes)).Msg("Trained category model")
	c.model = m
	return m, nil
}

// Set replaces the cached model.
func (c *Cache) Set(m *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = m
}

// Reset drops the cached model; the next use reloads it.
func (c *Cache) Reset() {
	c.Set(nil)
}
