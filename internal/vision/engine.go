package vision

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
)

// ErrUnavailable is returned when the capability for a mode is not wired.
var ErrUnavailable = errors.New("vision: capability not available")

// EngineConfig selects the backends an Engine composes. Either may be nil.
type EngineConfig struct {
	Barcodes       barcode.Backend
	BarcodeOptions barcode.Options
	Text           TextDetector
}

// Engine combines a barcode decoder and a text detector into a Detector.
type Engine struct {
	barcodes barcode.Backend
	opts     barcode.Options
	text     TextDetector
}

// NewEngine builds an Engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{barcodes: cfg.Barcodes, opts: cfg.BarcodeOptions, text: cfg.Text}
}

// DetectBarcode returns the first barcode the backend reports.
func (e *Engine) DetectBarcode(ctx context.Context, img image.Image) (Barcode, bool, error) {
	if e.barcodes == nil {
		return Barcode{}, false, ErrUnavailable
	}
	results, err := e.barcodes.Decode(ctx, img, e.opts)
	if err != nil {
		return Barcode{}, false, err
	}
	if len(results) == 0 {
		return Barcode{}, false, nil
	}
	r := results[0]
	return Barcode{
		RawValue:  r.Value,
		Symbology: r.Symbology,
		ValueType: barcode.Classify(r.Symbology, r.Value),
		Bounds:    r.BBox,
	}, true, nil
}

// DetectTextBlocks delegates to the text backend.
func (e *Engine) DetectTextBlocks(ctx context.Context, img image.Image) ([]TextBlock, error) {
	if e.text == nil {
		return nil, ErrUnavailable
	}
	return e.text.DetectTextBlocks(ctx, img)
}

// Operational is true when at least one capability is usable.
func (e *Engine) Operational() bool {
	return e.OperationalFor(ModeBarcode) || e.OperationalFor(ModeText)
}

// OperationalFor reports whether the backend for mode is usable.
func (e *Engine) OperationalFor(mode Mode) bool {
	switch mode {
	case ModeBarcode:
		return e.barcodes != nil
	case ModeText:
		if e.text == nil {
			return false
		}
		if op, ok := e.text.(interface{ Operational() bool }); ok {
			return op.Operational()
		}
		return true
	default:
		return false
	}
}

// Close releases the text backend if it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.text.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close text backend", "error", err)
			return err
		}
	}
	return nil
}
