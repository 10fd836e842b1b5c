package barcode

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Symbology identifies a barcode format.
type Symbology int

// Symbology codes.
const (
	SymbologyUnknown    Symbology = 0
	SymbologyCode128    Symbology = 1
	SymbologyCode39     Symbology = 2
	SymbologyCode93     Symbology = 4
	SymbologyCodabar    Symbology = 8
	SymbologyDataMatrix Symbology = 16
	SymbologyEAN13      Symbology = 32
	SymbologyEAN8       Symbology = 64
	SymbologyITF        Symbology = 128
	SymbologyQRCode     Symbology = 256
	SymbologyUPCA       Symbology = 512
	SymbologyUPCE       Symbology = 1024
	SymbologyPDF417     Symbology = 2048
	SymbologyAztec      Symbology = 4096
)

var symbologyLabels = map[Symbology]string{
	SymbologyAztec:      "AZTEC",
	SymbologyCodabar:    "CODABAR",
	SymbologyCode39:     "CODE_39",
	SymbologyCode93:     "CODE_93",
	SymbologyCode128:    "CODE_128",
	SymbologyDataMatrix: "DATA_MATRIX",
	SymbologyEAN8:       "EAN_8",
	SymbologyEAN13:      "EAN_13",
	SymbologyITF:        "ITF",
	SymbologyPDF417:     "PDF417",
	SymbologyQRCode:     "QR_CODE",
	SymbologyUPCA:       "UPC_A",
	SymbologyUPCE:       "UPC_E",
}

// String returns the display label, or "UNKNOWN (<code>)".
func (s Symbology) String() string {
	if l, ok := symbologyLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("UNKNOWN (%d)", int(s))
}

// ParseSymbology maps a label such as "qr_code" or "EAN-13" back to its code.
func ParseSymbology(label string) (Symbology, bool) {
	want := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(label)), "-", "_")
	for s, l := range symbologyLabels {
		if l == want || strings.ReplaceAll(l, "_", "") == want {
			return s, true
		}
	}
	return SymbologyUnknown, false
}

// ValueType is the semantic type of a barcode's payload.
type ValueType int

// ValueType codes.
const (
	ValueTypeUnknown       ValueType = 0
	ValueTypeContactInfo   ValueType = 1
	ValueTypeEmail         ValueType = 2
	ValueTypeISBN          ValueType = 3
	ValueTypePhone         ValueType = 4
	ValueTypeProduct       ValueType = 5
	ValueTypeSMS           ValueType = 6
	ValueTypeText          ValueType = 7
	ValueTypeURL           ValueType = 8
	ValueTypeWiFi          ValueType = 9
	ValueTypeGeo           ValueType = 10
	ValueTypeCalendarEvent ValueType = 11
	ValueTypeDriverLicense ValueType = 12
)

var valueTypeLabels = map[ValueType]string{
	ValueTypeCalendarEvent: "CALENDAR_EVENT",
	ValueTypeContactInfo:   "CONTACT_INFO",
	ValueTypeDriverLicense: "DRIVER_LICENSE",
	ValueTypeEmail:         "EMAIL",
	ValueTypeGeo:           "GEO",
	ValueTypeISBN:          "ISBN",
	ValueTypePhone:         "PHONE",
	ValueTypeProduct:       "PRODUCT",
	ValueTypeSMS:           "SMS",
	ValueTypeText:          "TEXT",
	ValueTypeURL:           "URL",
	ValueTypeWiFi:          "WIFI",
}

// String returns the display label, or "UNKNOWN (<code>)".
func (v ValueType) String() string {
	if l, ok := valueTypeLabels[v]; ok {
		return l
	}
	return fmt.Sprintf("UNKNOWN (%d)", int(v))
}

// Options controls backend decoding behavior.
type Options struct {
	// Symbologies constrains the set of formats to search. Empty means all.
	Symbologies []Symbology

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends should ignore it.
	ROI image.Rectangle
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Symbology Symbology
	Value     string
	Points    []Point         // Corner or key points if available
	BBox      image.Rectangle // Bounding box if derivable from points
}

// Backend is a pluggable barcode decoder implementation. Results are in
// detection order.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}
