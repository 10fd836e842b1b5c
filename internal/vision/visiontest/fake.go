// Package visiontest provides a scriptable vision.Detector for tests.
package visiontest

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// Detector is an in-memory vision.Detector.
type Detector struct {
	// Barcodes are reported in order; DetectBarcode returns the first.
	Barcodes []vision.Barcode
	// Texts holds the text per DetectTextBlocks call, in call order.
	// Calls beyond the end return no blocks.
	Texts []string
	Err   error

	// Unavailable makes the detector report itself as not operational.
	Unavailable bool

	// Gate, when set, blocks every detection until it is closed or the
	// context is cancelled. Started receives one value per blocked call.
	Gate    chan struct{}
	Started chan struct{}

	mu           sync.Mutex
	barcodeCalls int
	textCalls    int
	closed       bool
}

var _ vision.Detector = (*Detector)(nil)

func (d *Detector) wait(ctx context.Context) error {
	if d.Gate == nil {
		return nil
	}
	if d.Started != nil {
		select {
		case d.Started <- struct{}{}:
		default:
		}
	}
	select {
	case <-d.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Detector) DetectBarcode(ctx context.Context, _ image.Image) (vision.Barcode, bool, error) {
	d.mu.Lock()
	d.barcodeCalls++
	d.mu.Unlock()

	if err := d.wait(ctx); err != nil {
		return vision.Barcode{}, false, err
	}
	if d.Err != nil {
		return vision.Barcode{}, false, d.Err
	}
	if len(d.Barcodes) == 0 {
		return vision.Barcode{}, false, nil
	}
	return d.Barcodes[0], true, nil
}

func (d *Detector) DetectTextBlocks(ctx context.Context, _ image.Image) ([]vision.TextBlock, error) {
	d.mu.Lock()
	call := d.textCalls
	d.textCalls++
	d.mu.Unlock()

	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if call >= len(d.Texts) {
		return nil, nil
	}
	return Blocks(d.Texts[call]), nil
}

func (d *Detector) Operational() bool { return !d.Unavailable }

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// BarcodeCalls returns how often DetectBarcode ran.
func (d *Detector) BarcodeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.barcodeCalls
}

// TextCalls returns how often DetectTextBlocks ran.
func (d *Detector) TextCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textCalls
}

// Closed reports whether Close was called.
func (d *Detector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Blocks builds one block per non-empty line of text, with one component
// per whitespace-separated word.
func Blocks(text string) []vision.TextBlock {
	var blocks []vision.TextBlock
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		b := vision.TextBlock{Components: make([]vision.TextComponent, 0, len(words))}
		for _, w := range words {
			b.Components = append(b.Components, vision.TextComponent{Value: w})
		}
		blocks = append(blocks, b)
	}
	return blocks
}
