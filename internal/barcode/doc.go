// Package barcode decodes barcodes from images and formats their values for
// display.
//
// Decoding uses the pure Go gozxing readers. Symbologies and semantic value
// types carry the numeric codes used by mobile vision SDKs so that unknown
// codes can still be reported verbatim.
package barcode
