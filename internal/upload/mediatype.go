package upload

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// contentType returns the declared media type unchanged when the part carries
// one. Only parts without a Content-Type header are sniffed, then matched by
// filename extension.
func contentType(declared, filename string, content []byte) string {
	if strings.TrimSpace(declared) != "" {
		return declared
	}

	if len(content) > 0 {
		if mt := mimetype.Detect(content); mt != nil && !mt.Is(defaultContentType) {
			return mt.String()
		}
	}

	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return defaultContentType
}
