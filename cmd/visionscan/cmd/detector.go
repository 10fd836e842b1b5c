package cmd

import (
	"log/slog"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
	"github.com/MeKo-Tech/visionscan/internal/config"
	"github.com/MeKo-Tech/visionscan/internal/ocr"
	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// DetectorFactory builds the detector the scan commands use.
type DetectorFactory func(cfg *config.Config) (vision.Detector, error)

// DefaultDetector composes the gozxing barcode backend with the Tesseract
// client. When Tesseract is not compiled in or fails to start, text scans
// are reported as unavailable.
func DefaultDetector(cfg *config.Config) (vision.Detector, error) {
	ec := vision.EngineConfig{
		Barcodes:       barcode.NewBackend(),
		BarcodeOptions: cfg.BarcodeOptions(),
	}
	client, err := ocr.NewClient(cfg.OCRConfig())
	if err != nil {
		slog.Debug("Text recognition unavailable", "error", err)
	} else {
		ec.Text = client
	}
	return vision.NewEngine(ec), nil
}
