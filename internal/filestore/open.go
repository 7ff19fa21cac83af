package filestore

import (
	"context"
	"io"

	"github.com/dvloznov/finance-ingest/internal/config"
)

// Open returns the configured backend: GCS when a bucket is set, otherwise
// the local upload directory. The returned closer releases backend clients.
func Open(ctx context.Context, cfg config.StorageConfig) (FileStore, io.Closer, error) {
	if cfg.GCSBucket != "" {
		g, err := NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	}
	l, err := NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return l, io.NopCloser(nil), nil
}
