package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores files in a directory on disk.
type Local struct {
	dir string
}

var _ FileStore = (*Local)(nil)

// NewLocal creates the upload directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("NewLocal: creating %q: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

// Save writes data under a unique name and returns its path.
func (l *Local) Save(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(l.dir, objectName(name))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("Local.Save: %w", err)
	}
	return path, nil
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Local.Read: %w", err)
	}
	return data, nil
}
