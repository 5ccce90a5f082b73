package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"

	"github.com/go-kit/log"

	"github.com/dropbin/service/internal/storage"
)

const testPublicBase = "https://uploads.s3.us-east-1.amazonaws.com"

// recordingStorage counts calls and can be told to fail.
type recordingStorage struct {
	mu    sync.Mutex
	calls int
	err   error
	inner *storage.MemoryStorage
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{inner: storage.NewMemoryStorage(testPublicBase)}
}

func (s *recordingStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Upload(ctx, key, reader, size, contentType)
}

func (s *recordingStorage) PublicURL(key string) string {
	return s.inner.PublicURL(key)
}

func (s *recordingStorage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type filePart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func multipartBody(parts ...filePart) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(p.content); err != nil {
			panic(err)
		}
	}
	if err := mw.Close(); err != nil {
		panic(err)
	}
	return &buf, mw.FormDataContentType()
}

func newUploadRequest(parts ...filePart) *http.Request {
	body, ct := multipartBody(parts...)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	return req
}

func newTestHandler(store storage.Storage, maxBytes int64) *Handler {
	svc := NewService(store, maxBytes, FilenameKey, log.NewNopLogger())
	return NewHandler(svc, log.NewNopLogger())
}

var errUnreachable = errors.New("dial tcp: connection refused")
