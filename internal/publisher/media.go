package publisher

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// loadImage resolves an Image to raw bytes plus a MIME type. Inline
// data wins over a file path; the MIME type falls back to extension
// then content sniffing.
func loadImage(img *Image) ([]byte, string, error) {
	data := img.Data
	if len(data) == 0 {
		if img.Path == "" {
			return nil, "", fmt.Errorf("image has neither data nor path")
		}
		b, err := os.ReadFile(img.Path)
		if err != nil {
			return nil, "", fmt.Errorf("read image %q: %w", img.Path, err)
		}
		data = b
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = detectMime(img.Path, data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unsupported media type %q", mimeType)
	}

	return data, mimeType, nil
}

func detectMime(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
