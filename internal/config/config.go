// Package config loads visionscan settings from files, environment variables
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
	"github.com/MeKo-Tech/visionscan/internal/imageio"
	"github.com/MeKo-Tech/visionscan/internal/ocr"
)

// Config represents the complete configuration for visionscan. It covers
// all commands (barcode, text, batch, serve).
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Barcode BarcodeConfig `mapstructure:"barcode" yaml:"barcode" json:"barcode"`
	Text    TextConfig    `mapstructure:"text" yaml:"text" json:"text"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan" json:"scan"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// BarcodeConfig contains barcode scan settings.
type BarcodeConfig struct {
	TargetWidth  int      `mapstructure:"target_width" yaml:"target_width" json:"target_width"`
	TargetHeight int      `mapstructure:"target_height" yaml:"target_height" json:"target_height"`
	TryHarder    bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Symbologies  []string `mapstructure:"symbologies" yaml:"symbologies" json:"symbologies"`
}

// TextConfig contains text recognition settings.
type TextConfig struct {
	TargetWidth  int    `mapstructure:"target_width" yaml:"target_width" json:"target_width"`
	TargetHeight int    `mapstructure:"target_height" yaml:"target_height" json:"target_height"`
	Language     string `mapstructure:"language" yaml:"language" json:"language"`
	PageSegMode  int    `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	Whitelist    string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
}

// ScanConfig contains settings shared by all scan modes.
type ScanConfig struct {
	DeleteAfterScan bool `mapstructure:"delete_after_scan" yaml:"delete_after_scan" json:"delete_after_scan"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	UploadDir       string `mapstructure:"upload_dir" yaml:"upload_dir" json:"upload_dir"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits for the HTTP server.
// Zero disables the corresponding limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Recursive   bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	StopOnError bool `mapstructure:"stop_on_error" yaml:"stop_on_error" json:"stop_on_error"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ocrDefaults := ocr.DefaultConfig()
	return Config{
		LogLevel: "info",
		Barcode: BarcodeConfig{
			TargetWidth:  600,
			TargetHeight: 600,
		},
		Text: TextConfig{
			Language:    ocrDefaults.Language,
			PageSegMode: ocrDefaults.PageSegMode,
		},
		Scan: ScanConfig{DeleteAfterScan: true},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     100 * 1024 * 1024,
			},
		},
	}
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "yaml", "csv"}
)

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Barcode.TargetWidth < 0 || c.Barcode.TargetHeight < 0 {
		return fmt.Errorf("invalid barcode target size: %dx%d (must not be negative)", c.Barcode.TargetWidth, c.Barcode.TargetHeight)
	}
	if c.Text.TargetWidth < 0 || c.Text.TargetHeight < 0 {
		return fmt.Errorf("invalid text target size: %dx%d (must not be negative)", c.Text.TargetWidth, c.Text.TargetHeight)
	}
	for _, s := range c.Barcode.Symbologies {
		if _, ok := barcode.ParseSymbology(s); !ok {
			return fmt.Errorf("invalid barcode symbology: %s", s)
		}
	}
	if c.Text.PageSegMode < 1 || c.Text.PageSegMode > 13 {
		return fmt.Errorf("invalid page segmentation mode: %d (must be between 1 and 13)", c.Text.PageSegMode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDay < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	return nil
}

// BarcodeScale returns the bounding box for barcode photos.
func (c *Config) BarcodeScale() imageio.ScaleRequest {
	return imageio.ScaleRequest{Width: c.Barcode.TargetWidth, Height: c.Barcode.TargetHeight}
}

// TextScale returns the bounding box for text photos; zero means full resolution.
func (c *Config) TextScale() imageio.ScaleRequest {
	return imageio.ScaleRequest{Width: c.Text.TargetWidth, Height: c.Text.TargetHeight}
}

// BarcodeOptions converts the barcode settings into decoder options.
// Unknown symbology names are skipped; Validate reports them.
func (c *Config) BarcodeOptions() barcode.Options {
	opts := barcode.Options{TryHarder: c.Barcode.TryHarder}
	for _, name := range c.Barcode.Symbologies {
		if s, ok := barcode.ParseSymbology(name); ok {
			opts.Symbologies = append(opts.Symbologies, s)
		}
	}
	return opts
}

// OCRConfig converts the text settings into Tesseract client options.
func (c *Config) OCRConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	cfg.Language = c.Text.Language
	cfg.PageSegMode = c.Text.PageSegMode
	cfg.Whitelist = c.Text.Whitelist
	return cfg
}

// RequestTimeout returns the per-request scan timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}

// Address returns host:port for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
