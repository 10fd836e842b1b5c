package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNilImage is returned when Decode is called without an image.
var ErrNilImage = errors.New("barcode: nil image")

type namedReader struct {
	symbology Symbology
	reader    gozxing.Reader
}

// gozxingBackend tries one reader per symbology in a fixed order and
// reports the first symbol found. gozxing ships no PDF417 reader, so PDF417
// results only come from injected backends.
type gozxingBackend struct {
	readers []namedReader
}

// NewBackend returns the gozxing-backed decoder.
func NewBackend() Backend {
	return &gozxingBackend{readers: []namedReader{
		{SymbologyQRCode, qrcode.NewQRCodeReader()},
		{SymbologyDataMatrix, datamatrix.NewDataMatrixReader()},
		{SymbologyAztec, aztec.NewAztecReader()},
		{SymbologyEAN13, oned.NewEAN13Reader()},
		{SymbologyEAN8, oned.NewEAN8Reader()},
		{SymbologyUPCA, oned.NewUPCAReader()},
		{SymbologyUPCE, oned.NewUPCEReader()},
		{SymbologyCode128, oned.NewCode128Reader()},
		{SymbologyCode39, oned.NewCode39Reader()},
		{SymbologyCode93, oned.NewCode93Reader()},
		{SymbologyITF, oned.NewITFReader()},
		{SymbologyCodabar, oned.NewCodaBarReader()},
	}}
}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	// Apply ROI if requested and valid
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			img = roiImg
		}
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("barcode: create bitmap: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if opts.TryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	allowed := make(map[Symbology]bool, len(opts.Symbologies))
	for _, s := range opts.Symbologies {
		allowed[s] = true
	}

	for _, nr := range b.readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(allowed) > 0 && !allowed[nr.symbology] {
			continue
		}

		r, err := nr.reader.Decode(bitmap, hints)
		nr.reader.Reset()
		if err != nil || r == nil {
			continue
		}

		sym := mapFormatFromZXing(r.GetBarcodeFormat())
		if sym == SymbologyUnknown {
			sym = nr.symbology
		}
		points := make([]Point, 0, len(r.GetResultPoints()))
		for _, p := range r.GetResultPoints() {
			points = append(points, Point{X: int(p.GetX()), Y: int(p.GetY())})
		}

		slog.Debug("Barcode decoded", "symbology", sym.String(), "length", len(r.GetText()))
		return []Result{{
			Symbology: sym,
			Value:     r.GetText(),
			Points:    points,
			BBox:      rectFromPoints(points),
		}}, nil
	}
	return nil, nil
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Symbology {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return SymbologyQRCode
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return SymbologyDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return SymbologyAztec
	case gozxing.BarcodeFormat_PDF_417:
		return SymbologyPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return SymbologyCode128
	case gozxing.BarcodeFormat_CODE_39:
		return SymbologyCode39
	case gozxing.BarcodeFormat_CODE_93:
		return SymbologyCode93
	case gozxing.BarcodeFormat_EAN_8:
		return SymbologyEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return SymbologyEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return SymbologyUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return SymbologyUPCE
	case gozxing.BarcodeFormat_ITF:
		return SymbologyITF
	case gozxing.BarcodeFormat_CODABAR:
		return SymbologyCodabar
	default:
		return SymbologyUnknown
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// subImage returns the part of img inside r.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface{ SubImage(r image.Rectangle) image.Image }
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	// Fallback: copy into new RGBA
	dst := image.NewRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rb.Min, draw.Src)
	return dst, true
}
