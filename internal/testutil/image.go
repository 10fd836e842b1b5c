package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Common colors.
var (
	White = color.White
	Black = color.Black
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

// MediumSize is the default canvas for generated text pages.
var MediumSize = ImageSize{640, 480}

// TextImageConfig holds configuration for generating a photographed text page.
type TextImageConfig struct {
	Lines      []string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	// Zoom enlarges the drawn page by an integer factor (nearest neighbour)
	// so that the 7x13 glyphs are big enough for a real OCR engine.
	Zoom int
	// QuarterTurns is a clockwise quarter-turn count applied last.
	QuarterTurns int
}

// DefaultTextImageConfig returns a single line of dark text on white.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Lines:      []string{"Sample Text"},
		Size:       MediumSize,
		Background: White,
		Foreground: Black,
	}
}

// GenerateTextImage draws the configured lines centred on the canvas.
func GenerateTextImage(cfg TextImageConfig) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: face}

	lineHeight := face.Metrics().Height.Ceil()
	startY := (cfg.Size.Height - len(cfg.Lines)*lineHeight) / 2
	for i, line := range cfg.Lines {
		w := font.MeasureString(face, line).Ceil()
		drawer.Dot = fixed.P((cfg.Size.Width-w)/2, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	var out image.Image = img
	if cfg.Zoom > 1 {
		out = imaging.Resize(out, cfg.Size.Width*cfg.Zoom, cfg.Size.Height*cfg.Zoom, imaging.NearestNeighbor)
	}
	for range cfg.QuarterTurns % 4 {
		out = imaging.Rotate270(out)
	}
	return out
}

// CreateTestImage creates a uniformly coloured RGBA image.
func CreateTestImage(width, height int, background color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	return img
}

// MarkedImage returns a white image with a single black pixel at (x, y), useful
// for checking where a rotation moved the content.
func MarkedImage(width, height, x, y int) *image.RGBA {
	img := CreateTestImage(width, height, White)
	img.Set(x, y, Black)
	return img
}

// GradientGray returns a grayscale image whose value encodes the pixel position.
func GradientGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}
