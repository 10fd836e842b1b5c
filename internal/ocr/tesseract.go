//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/otiai10/gosseract/v2"
)

// ErrOCRNotEnabled is returned when text recognition was not compiled in.
var ErrOCRNotEnabled = errors.New("text recognition not enabled; rebuild with -tags tesseract")

// Client wraps a gosseract client. Tesseract clients are not safe for
// concurrent use, so calls are serialized.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    Config
}

// Available reports whether Tesseract support is compiled in.
func Available() bool { return true }

// NewClient creates a Tesseract client for cfg.Language.
func NewClient(cfg Config) (*Client, error) {
	client := gosseract.NewClient()

	cfg = cfg.withDefaults()
	if err := client.SetLanguage(cfg.Language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	slog.Debug("Tesseract client ready", "language", cfg.Language, "psm", cfg.PageSegMode, "version", client.Version())
	return &Client{client: client, cfg: cfg}, nil
}

// DetectTextBlocks recognizes text lines and groups them by layout block.
func (c *Client) DetectTextBlocks(ctx context.Context, img image.Image) ([]vision.TextBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	blockBoxes, err := c.client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get blocks: %w", err)
	}
	lineBoxes, err := c.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines: %w", err)
	}

	blocks := GroupLines(toRegions(blockBoxes), toRegions(lineBoxes), c.cfg.Clean)
	slog.Debug("Tesseract recognition done", "blocks", len(blocks), "lines", len(lineBoxes))
	return blocks, nil
}

func toRegions(boxes []gosseract.BoundingBox) []Region {
	out := make([]Region, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, Region{Box: b.Box, Text: b.Word, Confidence: b.Confidence})
	}
	return out
}

func (c *Client) Operational() bool { return c != nil && c.client != nil }

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.client.Close()
	c.client = nil
	return err
}
