// Package imageio loads stored photos into memory, optionally reducing them
// by an integer sample factor so that they fit a target bounding box.
package imageio

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

// ScaleRequest is the target bounding box. A zero or negative dimension
// disables scaling.
type ScaleRequest struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NoScale decodes at full resolution.
var NoScale = ScaleRequest{}

// Enabled reports whether the request asks for down-sampling.
func (r ScaleRequest) Enabled() bool {
	return r.Width > 0 && r.Height > 0
}

// SampleFactor returns floor(min(width/req.Width, height/req.Height)).
// The result is zero when the target is larger than the image; callers
// treat any factor below 2 as "no scaling".
func SampleFactor(width, height int, req ScaleRequest) int {
	if !req.Enabled() {
		return 1
	}
	fx := width / req.Width
	fy := height / req.Height
	return min(fx, fy)
}

// Scale reads the image at path. When req is enabled the intrinsic size is
// measured from the header first and the decoded raster is reduced by the
// integer sample factor. A missing file yields ErrFileNotFound and no image.
func Scale(path string, req ScaleRequest) (image.Image, error) {
	if !req.Enabled() {
		return Load(path)
	}

	dims, err := Measure(path)
	if err != nil {
		return nil, err
	}
	factor := SampleFactor(dims.Width, dims.Height, req)

	img, err := Load(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Decoded image for scaling",
		"path", path,
		"width", dims.Width,
		"height", dims.Height,
		"target_width", req.Width,
		"target_height", req.Height,
		"sample_factor", factor)

	return Downsample(img, factor), nil
}

// Downsample reduces img by an integer divisor using a box filter, the
// in-memory equivalent of decoding with a sample size. Factors below 2
// return img unchanged.
func Downsample(img image.Image, factor int) image.Image {
	if img == nil || factor < 2 {
		return img
	}
	b := img.Bounds()
	w := max(b.Dx()/factor, 1)
	h := max(b.Dy()/factor, 1)
	return imaging.Resize(img, w, h, imaging.Box)
}
