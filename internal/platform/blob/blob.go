package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"survey-insights/internal/config"
)

var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value store for answer files. Paths use forward slashes.
type Store interface {
	Save(ctx context.Context, path string, data []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// New builds the store selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.LocalPath)
	case "minio":
		return NewMinioStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}
