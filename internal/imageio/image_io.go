package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

var (
	// ErrFileNotFound is returned when the image path does not resolve to a readable file.
	ErrFileNotFound = errors.New("image file not found")

	// ErrUnsupportedImage is returned when the file content cannot be decoded.
	ErrUnsupportedImage = errors.New("unsupported image content")
)

// SupportedImageExtensions lists file extensions accepted by batch discovery.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageError records the operation and path that failed.
type ImageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *ImageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("image %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("image %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Dimensions is the intrinsic pixel size of an encoded image.
type Dimensions struct {
	Width  int
	Height int
	Format string
}

// openImage opens path and maps every "cannot read it" condition onto ErrFileNotFound.
func openImage(op, path string) (*os.File, error) {
	if path == "" {
		return nil, &ImageError{Operation: op, Err: fmt.Errorf("%w: empty path", ErrFileNotFound)}
	}
	f, err := os.Open(path) //nolint:gosec // G304: reading a caller-provided image path is the purpose
	if err != nil {
		return nil, &ImageError{Operation: op, Path: path, Err: fmt.Errorf("%w: %w", ErrFileNotFound, err)}
	}
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		_ = f.Close()
		if err == nil {
			err = errors.New("is a directory")
		}
		return nil, &ImageError{Operation: op, Path: path, Err: fmt.Errorf("%w: %w", ErrFileNotFound, err)}
	}
	return f, nil
}

// Measure reads only the image header and returns its intrinsic size.
// No pixel data is allocated.
func Measure(path string) (Dimensions, error) {
	f, err := openImage("measure", path)
	if err != nil {
		return Dimensions{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, &ImageError{Operation: "measure", Path: path, Err: fmt.Errorf("%w: %w", ErrUnsupportedImage, err)}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Load decodes the whole file at full resolution.
func Load(path string) (image.Image, error) {
	f, err := openImage("load", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageError{Operation: "decode", Path: path, Err: fmt.Errorf("%w: %w", ErrUnsupportedImage, err)}
	}
	return img, nil
}

// Remove deletes a transient image file. A file that is already gone is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ImageError{Operation: "remove", Path: path, Err: err}
	}
	return nil
}
