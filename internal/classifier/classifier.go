package classifier

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/logger"
)

// Classifier predicts categories through a shared model cache. It never fails:
// when no model is available the fallback category is returned.
type Classifier struct {
	cache *Cache
}

// New creates a classifier over the given cache.
func New(cache *Cache) *Classifier {
	return &Classifier{cache: cache}
}

// PredictCategory returns the predicted category for a vendor and document text.
func (c *Classifier) PredictCategory(ctx context.Context, vendor, text string) (Prediction, error) {
	log := logger.FromContext(ctx)

	m, err := c.cache.Model(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Category model unavailable, using fallback category")
		return fallback, nil
	}

	p := m.Predict(vendor, text)
	log.Debug().
		Str("vendor", vendor).
		Str("category", p.Category).
		Float64("confidence", p.Confidence).
		Msg("Predicted category")
	return p, nil
}
