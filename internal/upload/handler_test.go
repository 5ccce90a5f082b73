package upload

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropbin/service/internal/config"
	"github.com/dropbin/service/internal/storage"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_UploadTextFile(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "a.txt", contentType: "text/plain", content: []byte("0123456789"),
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, testPublicBase+"/a.txt", body["fileUrl"])
	assert.True(t, strings.HasSuffix(body["fileUrl"], "/a.txt"))

	obj, ok := store.inner.Object("a.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("0123456789"), obj.Data)
	assert.Equal(t, "text/plain", obj.ContentType)
}

func TestHandler_UploadOversizedBody(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "big.bin", contentType: "application/octet-stream", content: make([]byte, 30<<20),
	}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "25 MiB")
	assert.Zero(t, store.Calls())
}

func TestHandler_UploadOversizedBodyUnknownLength(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, 1024)

	req := newUploadRequest(filePart{
		field: FormField, filename: "big.bin", content: bytes.Repeat([]byte("x"), 2<<20),
	})
	req.ContentLength = -1

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, store.Calls())
}

func TestHandler_UploadFileOverLimitWithinEnvelope(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, 10)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "a.txt", contentType: "text/plain", content: []byte("01234567890"),
	}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, store.Calls())
}

func TestHandler_UploadAtLimit(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, 10)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "a.txt", contentType: "text/plain", content: []byte("0123456789"),
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.Calls())
}

func TestHandler_UploadBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		req     func() *http.Request
		wantMsg string
	}{
		{
			name: "missing file field",
			req: func() *http.Request {
				return newUploadRequest(filePart{field: "attachment", filename: "a.txt", content: []byte("x")})
			},
			wantMsg: "file field is required",
		},
		{
			name: "two files",
			req: func() *http.Request {
				return newUploadRequest(
					filePart{field: FormField, filename: "a.txt", content: []byte("x")},
					filePart{field: FormField, filename: "b.txt", content: []byte("y")},
				)
			},
			wantMsg: "exactly one file",
		},
		{
			name: "not multipart",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"file":"a"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantMsg: "invalid multipart body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStorage()
			h := newTestHandler(store, config.DefaultMaxUploadBytes)

			rec := httptest.NewRecorder()
			h.Upload(rec, tt.req())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.wantMsg)
			assert.Zero(t, store.Calls())
		})
	}
}

func TestHandler_UploadStorageUnreachable(t *testing.T) {
	store := newRecordingStorage()
	store.err = &storage.Error{Op: "upload", Bucket: "uploads", Key: "a.txt", Err: errUnreachable}
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "a.txt", contentType: "text/plain", content: []byte("0123456789"),
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["error"])
	assert.NotContains(t, body, "fileUrl")
	assert.NotContains(t, body["error"], "connection refused")
	assert.Equal(t, 1, store.Calls())
}

func TestHandler_UploadSameNameTwice(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	var urls []string
	for _, content := range []string{"first version", "second version"} {
		rec := httptest.NewRecorder()
		h.Upload(rec, newUploadRequest(filePart{
			field: FormField, filename: "a.txt", contentType: "text/plain", content: []byte(content),
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		urls = append(urls, decodeBody(t, rec)["fileUrl"])
	}

	assert.Equal(t, urls[0], urls[1])
	obj, ok := store.inner.Object("a.txt")
	require.True(t, ok)
	assert.Equal(t, "second version", string(obj.Data))
}

func TestHandler_UploadFetchThroughPublicURL(t *testing.T) {
	srv := httptest.NewUnstartedServer(nil)
	base := "http://" + srv.Listener.Addr().String()
	mem := storage.NewMemoryStorage(base + "/objects")
	srv.Config.Handler = http.StripPrefix("/objects", mem)
	srv.Start()
	defer srv.Close()

	h := newTestHandler(mem, config.DefaultMaxUploadBytes)
	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "notes v1.txt", contentType: "text/plain", content: []byte("0123456789"),
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	fileURL := decodeBody(t, rec)["fileUrl"]
	assert.Equal(t, base+"/objects/notes%20v1.txt", fileURL)

	resp, err := http.Get(fileURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "0123456789", string(got))
}

func TestHandler_UploadForwardsDeclaredOctetStream(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "img.png", contentType: "application/octet-stream", content: png,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	obj, ok := store.inner.Object("img.png")
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
	assert.Equal(t, png, obj.Data)
}

func TestHandler_UploadSniffsUndeclaredType(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: "img", content: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	obj, ok := store.inner.Object("img")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestHandler_UploadKeepsFilenameWhitespace(t *testing.T) {
	store := newRecordingStorage()
	h := newTestHandler(store, config.DefaultMaxUploadBytes)

	rec := httptest.NewRecorder()
	h.Upload(rec, newUploadRequest(filePart{
		field: FormField, filename: " a.txt ", contentType: "text/plain", content: []byte("x"),
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testPublicBase+"/%20a.txt%20", decodeBody(t, rec)["fileUrl"])
	_, ok := store.inner.Object(" a.txt ")
	assert.True(t, ok)
	_, ok = store.inner.Object("a.txt")
	assert.False(t, ok)
}
