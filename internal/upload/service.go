package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dropbin/service/internal/logger"
	"github.com/dropbin/service/internal/storage"
)

// Service validates records and hands them to storage.
type Service struct {
	store    storage.Storage
	maxBytes int64
	keyFunc  KeyFunc
	logger   log.Logger
}

// NewService creates a new upload Service.
func NewService(store storage.Storage, maxBytes int64, keyFunc KeyFunc, logger log.Logger) *Service {
	if keyFunc == nil {
		keyFunc = FilenameKey
	}
	return &Service{
		store:    store,
		maxBytes: maxBytes,
		keyFunc:  keyFunc,
		logger:   logger,
	}
}

// MaxBytes is the largest accepted file size.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload writes rec to storage and returns its public URL. Validation failures
// never reach storage. Storage failures are returned wrapped in ErrStorage and
// are not retried.
func (s *Service) Upload(ctx context.Context, rec Record) (string, error) {
	name, err := normalizeFilename(rec.OriginalFilename)
	if err != nil {
		return "", err
	}
	if rec.SizeBytes != int64(len(rec.Content)) {
		return "", fmt.Errorf("%w: declared size %d does not match %d content bytes",
			ErrValidation, rec.SizeBytes, len(rec.Content))
	}
	if rec.SizeBytes > s.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds the %s limit",
			ErrTooLarge, humanize.IBytes(uint64(rec.SizeBytes)), humanize.IBytes(uint64(s.maxBytes)))
	}

	key := s.keyFunc(name)
	mimeType := contentType(rec.MimeType, name, rec.Content)
	l := logger.FromContext(ctx, s.logger)

	if err := s.store.Upload(ctx, key, bytes.NewReader(rec.Content), rec.SizeBytes, mimeType); err != nil {
		level.Error(l).Log("msg", "storage write failed", "key", key, "err", err)
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	level.Info(l).Log("msg", "file uploaded",
		"key", key,
		"size", humanize.IBytes(uint64(rec.SizeBytes)),
		"content_type", mimeType,
	)

	return s.store.PublicURL(key), nil
}
