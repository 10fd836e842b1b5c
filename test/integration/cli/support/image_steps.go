package support

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func (testCtx *TestContext) writePNG(name string, img image.Image) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return f.Close()
}

func (testCtx *TestContext) aQRCodeImageEncoding(name, text string) error {
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	return testCtx.writePNG(name, matrix)
}

func (testCtx *TestContext) anEAN13ImageEncoding(name, digits string) error {
	matrix, err := oned.NewEAN13Writer().Encode(digits, gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
	if err != nil {
		return fmt.Errorf("failed to encode EAN-13: %w", err)
	}
	return testCtx.writePNG(name, matrix)
}

func (testCtx *TestContext) aBlankPhotoOfSize(name string, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return testCtx.writePNG(name, img)
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.ReplaceAll(content, `\n`, "\n")), 0o600)
}
