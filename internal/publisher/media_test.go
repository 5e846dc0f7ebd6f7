package publisher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadImage(t *testing.T) {
	t.Run("inline data with explicit mime", func(t *testing.T) {
		data, mime, err := loadImage(&Image{Data: []byte{1, 2, 3}, MimeType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("from file with extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pic.jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpegbytes"), 0o644))

		data, mime, err := loadImage(&Image{Path: path})
		require.NoError(t, err)
		assert.Equal(t, []byte("jpegbytes"), data)
		assert.Equal(t, "image/jpeg", mime)
	})

	t.Run("sniffed from content", func(t *testing.T) {
		_, mime, err := loadImage(&Image{Data: pngHeader})
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := loadImage(&Image{Path: "/no/such/file.png"})
		assert.Error(t, err)
	})

	t.Run("neither data nor path", func(t *testing.T) {
		_, _, err := loadImage(&Image{})
		assert.Error(t, err)
	})

	t.Run("non-image content rejected", func(t *testing.T) {
		_, _, err := loadImage(&Image{Data: []byte("plain text, definitely not an image")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported media type")
	})
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, "image/jpeg", detectMime("a/b.JPG", nil))
	assert.Equal(t, "image/png", detectMime("x.png", nil))
	assert.Equal(t, "image/gif", detectMime("x.gif", nil))
	assert.Equal(t, "image/webp", detectMime("x.webp", nil))
	assert.Equal(t, "image/png", detectMime("noext", pngHeader))
}
