package vision_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	results []barcode.Result
	err     error
	opts    barcode.Options
}

func (s *stubBackend) Decode(_ context.Context, _ image.Image, opts barcode.Options) ([]barcode.Result, error) {
	s.opts = opts
	return s.results, s.err
}

type closingText struct {
	visiontest.Detector
	operational bool
}

func (c *closingText) Operational() bool { return c.operational }

func TestEngine_DetectBarcodeTakesFirst(t *testing.T) {
	backend := &stubBackend{results: []barcode.Result{
		{Symbology: barcode.SymbologyEAN13, Value: "9780201379624", BBox: image.Rect(0, 0, 10, 10)},
		{Symbology: barcode.SymbologyQRCode, Value: "https://larger.example"},
	}}
	e := vision.NewEngine(vision.EngineConfig{
		Barcodes:       backend,
		BarcodeOptions: barcode.Options{TryHarder: true},
	})

	b, ok, err := e.DetectBarcode(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "9780201379624", b.RawValue)
	assert.Equal(t, barcode.SymbologyEAN13, b.Symbology)
	assert.Equal(t, barcode.ValueTypeISBN, b.ValueType)
	assert.Equal(t, "9 780201 379624\n(EAN_13, ISBN)", b.Summary())
	assert.True(t, backend.opts.TryHarder)
}

func TestEngine_NoBarcode(t *testing.T) {
	e := vision.NewEngine(vision.EngineConfig{Barcodes: &stubBackend{}})
	_, ok, err := e.DetectBarcode(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	e = vision.NewEngine(vision.EngineConfig{Barcodes: &stubBackend{err: boom}})
	_, _, err = e.DetectBarcode(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, boom)
}

func TestEngine_Operational(t *testing.T) {
	empty := vision.NewEngine(vision.EngineConfig{})
	assert.False(t, empty.Operational())
	assert.False(t, vision.Ready(empty, vision.ModeBarcode))
	_, _, err := empty.DetectBarcode(context.Background(), nil)
	assert.ErrorIs(t, err, vision.ErrUnavailable)
	_, err = empty.DetectTextBlocks(context.Background(), nil)
	assert.ErrorIs(t, err, vision.ErrUnavailable)

	text := &closingText{operational: false}
	e := vision.NewEngine(vision.EngineConfig{Barcodes: &stubBackend{}, Text: text})
	assert.True(t, e.Operational())
	assert.True(t, vision.Ready(e, vision.ModeBarcode))
	assert.False(t, vision.Ready(e, vision.ModeText))

	text.operational = true
	assert.True(t, vision.Ready(e, vision.ModeText))
	assert.False(t, e.OperationalFor(vision.Mode("video")))
}

func TestEngine_DelegatesText(t *testing.T) {
	fake := &visiontest.Detector{Texts: []string{"hello world\nsecond"}}
	e := vision.NewEngine(vision.EngineConfig{Text: fake})

	blocks, err := e.DetectTextBlocks(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world \nsecond \n", vision.JoinText(blocks))

	require.NoError(t, e.Close())
	assert.True(t, fake.Closed())
}

func TestReady_FallsBackToOperational(t *testing.T) {
	assert.True(t, vision.Ready(&visiontest.Detector{}, vision.ModeText))
	assert.False(t, vision.Ready(&visiontest.Detector{Unavailable: true}, vision.ModeBarcode))
	assert.False(t, vision.Ready(nil, vision.ModeText))
}
