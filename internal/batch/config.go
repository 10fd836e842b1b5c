package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Config holds all configuration for batch scanning.
type Config struct {
	Mode       vision.Mode
	Format     string
	OutputFile string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// StopOnError aborts the batch at the first failed image.
	StopOnError bool

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns a barcode batch with text output.
func DefaultConfig() *Config {
	return &Config{
		Mode:             vision.ModeBarcode,
		Format:           FormatText,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks mode and format.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("batch config is nil")
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be barcode or text", c.Mode)
	}
	switch c.Format {
	case "", FormatText, FormatJSON, FormatYAML, FormatCSV:
	default:
		return fmt.Errorf("invalid format %q: must be text, json, yaml or csv", c.Format)
	}
	if c.ProgressInterval < 0 {
		return errors.New("progress interval must be non-negative")
	}
	return nil
}
