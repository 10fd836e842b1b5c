package imageio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/visionscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure(t *testing.T) {
	path := testutil.TempPhoto(t, 123, 45)

	dims, err := Measure(path)
	require.NoError(t, err)
	assert.Equal(t, 123, dims.Width)
	assert.Equal(t, 45, dims.Height)
	assert.Equal(t, "png", dims.Format)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		_, err := Load("")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(dir)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("garbage content", func(t *testing.T) {
		path := filepath.Join(dir, "noise.png")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))

		img, err := Load(path)
		assert.Nil(t, img)
		require.ErrorIs(t, err, ErrUnsupportedImage)

		var ie *ImageError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "decode", ie.Operation)
		assert.Equal(t, path, ie.Path)
	})
}

func TestRemove(t *testing.T) {
	path := testutil.TempPhoto(t, 4, 4)

	require.NoError(t, Remove(path))
	assert.False(t, testutil.FileExists(path))

	// second removal is a no-op
	assert.NoError(t, Remove(path))
	assert.NoError(t, Remove(""))
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a/b/photo.JPG"))
	assert.True(t, IsSupportedImage("scan.webp"))
	assert.False(t, IsSupportedImage("notes.txt"))
	assert.False(t, IsSupportedImage("noext"))
}
