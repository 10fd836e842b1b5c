// Package vision defines the detection capabilities the scanner depends on:
// finding a barcode in an image and finding blocks of text.
package vision

import (
	"context"
	"image"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
)

// Mode selects which capability a scan uses.
type Mode string

const (
	ModeBarcode Mode = "barcode"
	ModeText    Mode = "text"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeBarcode || m == ModeText }

// Barcode is a detected barcode region.
type Barcode struct {
	RawValue  string            `json:"raw_value" yaml:"raw_value"`
	Symbology barcode.Symbology `json:"symbology" yaml:"symbology"`
	ValueType barcode.ValueType `json:"value_type" yaml:"value_type"`
	Bounds    image.Rectangle   `json:"-" yaml:"-"`
}

// Summary is the display string for the barcode.
func (b Barcode) Summary() string {
	return barcode.Summary(b.RawValue, b.Symbology, b.ValueType)
}

// TextComponent is one recognized line or word within a block.
type TextComponent struct {
	Value      string          `json:"value" yaml:"value"`
	Confidence float64         `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Bounds     image.Rectangle `json:"-" yaml:"-"`
}

// TextBlock is a paragraph-like group of components.
type TextBlock struct {
	Components []TextComponent `json:"components" yaml:"components"`
	Bounds     image.Rectangle `json:"-" yaml:"-"`
}

// BarcodeDetector finds barcodes. Only the first region in detector order
// is returned; ok is false when there is none.
type BarcodeDetector interface {
	DetectBarcode(ctx context.Context, img image.Image) (b Barcode, ok bool, err error)
}

// TextDetector finds text blocks.
type TextDetector interface {
	DetectTextBlocks(ctx context.Context, img image.Image) ([]TextBlock, error)
}

// Detector is the full capability set. Operational reports whether the
// underlying engine is usable at all.
type Detector interface {
	BarcodeDetector
	TextDetector
	Operational() bool
	Close() error
}

// ModeChecker is implemented by detectors whose capabilities can be
// available independently of each other.
type ModeChecker interface {
	OperationalFor(mode Mode) bool
}

// Ready reports whether d can serve mode.
func Ready(d Detector, mode Mode) bool {
	if d == nil {
		return false
	}
	if mc, ok := d.(ModeChecker); ok {
		return mc.OperationalFor(mode)
	}
	return d.Operational()
}
