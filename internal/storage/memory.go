package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Object is a stored blob and its media type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. It also serves them over HTTP
// so its public URLs resolve when mounted under the configured base path.
type MemoryStorage struct {
	objects    map[string]Object
	publicBase string
	mutex      sync.RWMutex
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage(publicBase string) *MemoryStorage {
	return &MemoryStorage{
		objects:    map[string]Object{},
		publicBase: publicBase,
	}
}

// Upload stores the bytes read from reader. Last writer wins.
func (m *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return newObjectError("upload", "memory", key, err)
	}
	if int64(len(data)) != size {
		return newObjectError("upload", "memory", key,
			fmt.Errorf("read %d bytes, expected %d", len(data), size))
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.objects[key] = Object{Data: data, ContentType: contentType}

	return nil
}

// PublicURL returns the URL under which ServeHTTP exposes key.
func (m *MemoryStorage) PublicURL(key string) string {
	return PublicURL(m.publicBase, key)
}

// Object returns a copy of the object stored under key.
func (m *MemoryStorage) Object(key string) (Object, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return Object{}, false
	}
	return Object{Data: bytes.Clone(obj.Data), ContentType: obj.ContentType}, true
}

// Len reports the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.objects)
}

// ServeHTTP answers GET/HEAD /{key} with the stored bytes and content type.
// Mount it behind http.StripPrefix.
func (m *MemoryStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	obj, ok := m.Object(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(obj.Data)
	}
}
