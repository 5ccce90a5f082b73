// Package upload accepts a single multipart file, writes it to object storage
// and answers with the object's public URL.
package upload

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/dropbin/service/internal/config"
)

// maxKeyLength is the S3 object key limit in bytes.
const maxKeyLength = 1024

var (
	// ErrValidation marks a request rejected before any storage call.
	ErrValidation = errors.New("validation failed")
	// ErrTooLarge is the ErrValidation raised for files over the byte ceiling.
	ErrTooLarge = fmt.Errorf("%w: file too large", ErrValidation)
	// ErrStorage marks a failed write to the storage backend.
	ErrStorage = errors.New("storage write failed")
)

// Record is one uploaded file, held in memory for the duration of a request.
type Record struct {
	OriginalFilename string
	MimeType         string
	Content          []byte
	SizeBytes        int64
}

// Result is the body of a successful upload.
type Result struct {
	FileURL string `json:"fileUrl" example:"https://uploads.s3.us-east-1.amazonaws.com/a.txt"`
}

// KeyFunc derives the storage key from a normalised filename.
type KeyFunc func(filename string) string

// FilenameKey uses the filename itself; uploads sharing a name overwrite each other.
func FilenameKey(filename string) string {
	return filename
}

// UUIDKey prefixes the filename with a random UUID so every upload gets its own key.
func UUIDKey(filename string) string {
	return uuid.NewString() + "/" + filename
}

// KeyFuncFor returns the KeyFunc for a configured key strategy.
func KeyFuncFor(strategy string) (KeyFunc, error) {
	switch strategy {
	case config.KeyStrategyFilename, "":
		return FilenameKey, nil
	case config.KeyStrategyUUID:
		return UUIDKey, nil
	default:
		return nil, fmt.Errorf("unknown key strategy %q", strategy)
	}
}

// normalizeFilename strips any client-side directory from name. Browsers on
// some platforms send the full local path.
func normalizeFilename(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if len(name) > maxKeyLength {
		return "", fmt.Errorf("%w: filename exceeds %d bytes", ErrValidation, maxKeyLength)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: filename contains control characters", ErrValidation)
	}
	return name, nil
}
