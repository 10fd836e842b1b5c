// Package scan runs one photo at a time through a detector: load and scale
// the stored image, detect a barcode or the best-oriented text, and delete
// the transient file afterwards.
package scan

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/imageio"
	"github.com/MeKo-Tech/visionscan/internal/rotation"
	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// DefaultBarcodeScale is the bounding box barcode photos are reduced to.
var DefaultBarcodeScale = imageio.ScaleRequest{Width: 600, Height: 600}

// Options configures a Session.
type Options struct {
	Mode vision.Mode
	// Scale is applied when loading the photo. Text scans usually decode at
	// full resolution.
	Scale imageio.ScaleRequest
	// DeleteAfterScan removes the image file after every attempt.
	DeleteAfterScan bool
	Observer        Observer
}

// DefaultOptions returns the options for mode.
func DefaultOptions(mode vision.Mode) Options {
	opts := Options{Mode: mode, DeleteAfterScan: true}
	if mode == vision.ModeBarcode {
		opts.Scale = DefaultBarcodeScale
	}
	return opts
}

// Result is the outcome of one scan.
type Result struct {
	ID    string      `json:"id" yaml:"id"`
	Mode  vision.Mode `json:"mode" yaml:"mode"`
	Path  string      `json:"path" yaml:"path"`
	Found bool        `json:"found" yaml:"found"`
	// Text is the display string: the barcode summary or the recognized text.
	Text    string          `json:"text" yaml:"text"`
	Barcode *vision.Barcode `json:"barcode,omitempty" yaml:"barcode,omitempty"`
	// Angle is the clockwise rotation the text was read at.
	Angle    int           `json:"angle" yaml:"angle"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	// Image is the bitmap that was recognized.
	Image image.Image `json:"-" yaml:"-"`
}

// Message returns Text, or the "nothing detected" message.
func (r Result) Message() string {
	if !r.Found {
		return MsgNothingFound
	}
	return r.Text
}

// Session owns a detector and serializes scans: no two detections ever run
// at the same time.
type Session struct {
	detector vision.Detector
	opts     Options
	setupErr error

	mu sync.Mutex
}

// NewSession prepares a session for opts.Mode. When the detector cannot serve
// that mode the returned session is disabled, the failure is logged once and
// ErrNoDetectionAvailable is returned alongside it.
func NewSession(detector vision.Detector, opts Options) (*Session, error) {
	if opts.Observer == nil {
		opts.Observer = NoOpObserver{}
	}
	s := &Session{detector: detector, opts: opts}
	if !opts.Mode.Valid() {
		s.setupErr = fmt.Errorf("%w: unknown mode %q", ErrNoDetectionAvailable, opts.Mode)
	} else if !vision.Ready(detector, opts.Mode) {
		s.setupErr = fmt.Errorf("%w: %s detector is not operational", ErrNoDetectionAvailable, opts.Mode)
	}
	if s.setupErr != nil {
		slog.Warn("Detector unavailable, scanning disabled", "mode", opts.Mode, "error", s.setupErr)
		return s, s.setupErr
	}
	return s, nil
}

// Mode returns the session's scan mode.
func (s *Session) Mode() vision.Mode { return s.opts.Mode }

// Enabled reports whether the session can scan.
func (s *Session) Enabled() bool { return s.setupErr == nil }

// Submit starts an asynchronous scan of the image at path.
func (s *Session) Submit(ctx context.Context, path string) *Task {
	t := newTask(ctx, path)
	if s.setupErr != nil {
		s.cleanup(path)
		t.finish(Result{}, s.setupErr)
		return t
	}
	go s.run(t)
	return t
}

// Scan runs a scan synchronously.
func (s *Session) Scan(ctx context.Context, path string) (Result, error) {
	return s.Submit(ctx, path).Wait(context.Background())
}

func (s *Session) run(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var (
		res Result
		err error
	)
	if t.Cancelled() {
		err = ErrCancelled
	} else {
		res, err = s.process(t.ctx, t.Path)
	}

	s.cleanup(t.Path)

	res.ID = t.ID
	res.Mode = s.opts.Mode
	res.Path = t.Path
	res.Duration = time.Since(start)

	if t.parent.Err() != nil {
		t.cancelled.Store(true)
	}
	if t.Cancelled() {
		res, err = Result{}, ErrCancelled
	}
	s.opts.Observer.ObserveScan(s.opts.Mode, res, err)
	t.finish(res, err)
}

func (s *Session) cleanup(path string) {
	if !s.opts.DeleteAfterScan {
		return
	}
	if err := imageio.Remove(path); err != nil {
		slog.Warn("Failed to delete scanned image", "path", path, "error", err)
	}
}

func (s *Session) process(ctx context.Context, path string) (Result, error) {
	img, err := imageio.Scale(path, s.opts.Scale)
	if err != nil {
		return Result{}, err
	}

	switch s.opts.Mode {
	case vision.ModeBarcode:
		return s.detectBarcode(ctx, img)
	default:
		return s.detectText(ctx, img)
	}
}

func (s *Session) detectBarcode(ctx context.Context, img image.Image) (Result, error) {
	b, ok, err := s.detector.DetectBarcode(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("detect barcode: %w", err)
	}
	res := Result{Image: img}
	if ok {
		res.Found = true
		res.Barcode = &b
		res.Text = b.Summary()
		slog.Debug("Barcode found", "symbology", b.Symbology.String(), "value_type", b.ValueType.String())
	}
	return res, nil
}

func (s *Session) detectText(ctx context.Context, img image.Image) (Result, error) {
	out, err := rotation.Scan(ctx, img, Recognizer(s.detector))
	if err != nil {
		return Result{}, err
	}
	res := Result{Image: img}
	if out.Found {
		res.Found = true
		res.Text = out.Text
		res.Angle = out.Angle
		res.Image = out.Image
		slog.Debug("Text found", "angle", out.Angle, "attempts", out.Attempts)
	}
	return res, nil
}

// Recognizer adapts a TextDetector to a rotation recognizer that joins all
// detected blocks into one string.
func Recognizer(d vision.TextDetector) rotation.Recognizer {
	return func(ctx context.Context, img image.Image) (string, error) {
		blocks, err := d.DetectTextBlocks(ctx, img)
		if err != nil {
			return "", err
		}
		return vision.JoinText(blocks), nil
	}
}
