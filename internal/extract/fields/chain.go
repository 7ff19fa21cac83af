package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// Chain tries extractors in order; the first non-nil result wins. Errors are
// logged and skipped, and only returned when every extractor failed.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a chain over the given extractors.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// ExtractAll implements Extractor.
func (c *Chain) ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	log := logger.FromContext(ctx)

	var errs []error
	for i, e := range c.extractors {
		f, err := e.ExtractAll(ctx, text)
		if err != nil {
			log.Warn().Err(err).Int("extractor", i).Msg("Field extractor failed, trying next")
			errs = append(errs, err)
			continue
		}
		if f != nil {
			return f, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(c.extractors) {
		return nil, fmt.Errorf("Chain.ExtractAll: all extractors failed: %w", errors.Join(errs...))
	}
	return nil, nil
}
