// Package testutil provides synthetic photos and temporary image files for tests.
package testutil

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WritePNG encodes img as PNG into dir and returns the file path.
func WritePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() { require.NoError(t, f.Close()) }()

	require.NoError(t, png.Encode(f, img), "Failed to encode PNG image")
	return path
}

// WriteJPEG encodes img as JPEG into dir and returns the file path.
func WriteJPEG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() { require.NoError(t, f.Close()) }()

	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}), "Failed to encode JPEG image")
	return path
}

// TempPhoto writes a blank photo of the given size to a fresh temp dir.
func TempPhoto(t *testing.T, width, height int) string {
	t.Helper()
	return WritePNG(t, t.TempDir(), "photo.png", CreateTestImage(width, height, White))
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
