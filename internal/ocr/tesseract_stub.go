//go:build !tesseract

package ocr

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// ErrOCRNotEnabled is returned when text recognition was not compiled in.
var ErrOCRNotEnabled = errors.New("text recognition not enabled; rebuild with -tags tesseract")

// Client is a stub that is never operational.
type Client struct{}

// NewClient always fails in builds without the tesseract tag.
func NewClient(Config) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Available reports whether Tesseract support is compiled in.
func Available() bool { return false }

func (c *Client) DetectTextBlocks(context.Context, image.Image) ([]vision.TextBlock, error) {
	return nil, ErrOCRNotEnabled
}

func (c *Client) Operational() bool { return false }

// Close is a no-op for the stub client. It is safe to call on a nil client.
func (c *Client) Close() error { return nil }
