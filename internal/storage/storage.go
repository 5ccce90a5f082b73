// Package storage defines the interface for object storage operations.
// Swap implementations by changing the driver chosen at startup: AWS S3, any
// MinIO/S3-compatible provider, or an in-process map for local runs and tests.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dropbin/service/internal/config"
)

// Storage is the interface for writing objects and resolving their public URLs.
type Storage interface {
	// Upload writes exactly size bytes from reader under key, replacing any
	// existing object with the same key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}

// PublicURL joins base and the escaped key: "{base}/{urlEncode(key)}".
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(key)
}

// New builds the Storage selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.DriverS3:
		s, err := NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMinio:
		s, err := NewMinioStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return NewMemoryStorage(cfg.PublicBase), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
