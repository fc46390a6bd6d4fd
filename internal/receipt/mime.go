package receipt

import (
	"path/filepath"
	"strings"
)

const defaultMimeType = "image/jpeg"

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

// MimeType returns the content type for a receipt file name based on its
// extension, defaulting to image/jpeg.
func MimeType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return defaultMimeType
}
