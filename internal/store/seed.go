package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// SeedCategories installs the default categories missing from the database
// and returns how many were added.
func SeedCategories(ctx context.Context, db Database) (int, error) {
	sess, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("SeedCategories: begin: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	added := 0
	for _, def := range domain.DefaultCategories {
		existing, err := sess.Categories().GetByName(ctx, def.Name)
		if err != nil {
			return 0, fmt.Errorf("SeedCategories: looking up %q: %w", def.Name, err)
		}
		if existing != nil {
			continue
		}
		c := def
		c.ID = uuid.New().String()
		if err := sess.Categories().Add(ctx, &c); err != nil {
			return 0, fmt.Errorf("SeedCategories: adding %q: %w", def.Name, err)
		}
		added++
	}

	if err := sess.Commit(); err != nil {
		return 0, fmt.Errorf("SeedCategories: commit: %w", err)
	}
	return added, nil
}
