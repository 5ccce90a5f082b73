package upload

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dropbin/service/internal/logger"
	"github.com/dropbin/service/internal/response"
)

// FormField is the multipart field carrying the file.
const FormField = "file"

// multipartOverhead is the allowance for boundaries and part headers on top of
// the file ceiling.
const multipartOverhead = 1 << 20

// Handler holds the HTTP handler for the upload endpoint.
type Handler struct {
	svc    *Service
	logger log.Logger
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service, logger log.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores a single file in the bucket under its original name and returns its public URL. Files over 25 MiB are rejected before storage is contacted.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	l := logger.FromContext(r.Context(), h.logger)
	maxBytes := h.svc.MaxBytes()
	limit := maxBytes + multipartOverhead

	if r.ContentLength > limit {
		level.Warn(l).Log("msg", "upload rejected", "reason", "request body too large",
			"content_length", humanize.IBytes(uint64(r.ContentLength)))
		response.TooLarge(w, "file exceeds the "+humanize.IBytes(uint64(maxBytes))+" limit")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	// maxMemory covers the whole body so nothing is spooled to disk.
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			level.Warn(l).Log("msg", "upload rejected", "reason", "request body too large")
			response.TooLarge(w, "file exceeds the "+humanize.IBytes(uint64(maxBytes))+" limit")
			return
		}
		level.Warn(l).Log("msg", "upload rejected", "reason", "invalid multipart body", "err", err)
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[FormField]
	switch {
	case len(files) == 0:
		response.BadRequest(w, "file field is required")
		return
	case len(files) > 1:
		response.BadRequest(w, "exactly one file is allowed")
		return
	}
	header := files[0]

	if header.Size > maxBytes {
		level.Warn(l).Log("msg", "upload rejected", "reason", "file too large",
			"filename", header.Filename, "size", humanize.IBytes(uint64(header.Size)))
		response.TooLarge(w, "file exceeds the "+humanize.IBytes(uint64(maxBytes))+" limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.BadRequest(w, "unreadable file part")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "unreadable file part")
		return
	}

	fileURL, err := h.svc.Upload(r.Context(), Record{
		OriginalFilename: header.Filename,
		MimeType:         header.Header.Get("Content-Type"),
		Content:          content,
		SizeBytes:        int64(len(content)),
	})
	switch {
	case errors.Is(err, ErrTooLarge):
		response.TooLarge(w, err.Error())
		return
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
		return
	case err != nil:
		response.InternalError(w, "failed to store file")
		return
	}

	response.OK(w, Result{FileURL: fileURL})
}
