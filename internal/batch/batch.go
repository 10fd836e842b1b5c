// Package batch scans many stored photos one after another with a single
// scan session and renders the collected results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// ErrNoImages is returned when discovery finds nothing to scan.
var ErrNoImages = errors.New("no image files found")

// Item statuses.
const (
	StatusFound = "found"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Item is the outcome for one file.
type Item struct {
	File       string `json:"file" yaml:"file"`
	Status     string `json:"status" yaml:"status"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
	RawValue   string `json:"raw_value,omitempty" yaml:"raw_value,omitempty"`
	Symbology  string `json:"symbology,omitempty" yaml:"symbology,omitempty"`
	ValueType  string `json:"value_type,omitempty" yaml:"value_type,omitempty"`
	Angle      int    `json:"angle" yaml:"angle"`
	Message    string `json:"message" yaml:"message"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Result holds the result of a batch run.
type Result struct {
	Mode     vision.Mode   `json:"mode" yaml:"mode"`
	Items    []Item        `json:"items" yaml:"items"`
	Duration time.Duration `json:"-" yaml:"-"`
}

// Counts returns how many items were found, empty and failed.
func (r *Result) Counts() (found, empty, failed int) {
	for _, it := range r.Items {
		switch it.Status {
		case StatusFound:
			found++
		case StatusEmpty:
			empty++
		default:
			failed++
		}
	}
	return found, empty, failed
}

// Run scans every image found under paths with session. A failing image is
// recorded and the batch continues unless cfg.StopOnError is set.
func Run(ctx context.Context, session *scan.Session, paths []string, cfg *Config, progress ProgressCallback) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	start := time.Now()
	res := &Result{Mode: session.Mode(), Items: make([]Item, 0, len(files))}
	progress.OnStart(len(files))

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sr, err := session.Scan(ctx, file)
		item := NewItem(file, sr, err)
		res.Items = append(res.Items, item)

		if err != nil {
			progress.OnError(i+1, err)
			slog.Warn("Scan failed", "file", file, "error", err)
			if cfg.StopOnError || errors.Is(err, scan.ErrNoDetectionAvailable) {
				progress.OnComplete()
				res.Duration = time.Since(start)
				return res, fmt.Errorf("scan %s: %w", file, err)
			}
		}
		progress.OnProgress(i+1, len(files))
	}

	progress.OnComplete()
	res.Duration = time.Since(start)
	return res, nil
}

// NewItem converts one scan outcome into a result row.
func NewItem(file string, sr scan.Result, err error) Item {
	it := Item{File: file, DurationMS: sr.Duration.Milliseconds()}
	switch {
	case err != nil:
		it.Status = StatusError
		it.Error = err.Error()
		it.Message = scan.StatusMessage(err)
	case sr.Found:
		it.Status = StatusFound
		it.Text = sr.Text
		it.Angle = sr.Angle
		it.Message = sr.Message()
		if sr.Barcode != nil {
			it.RawValue = sr.Barcode.RawValue
			it.Symbology = sr.Barcode.Symbology.String()
			it.ValueType = sr.Barcode.ValueType.String()
		}
	default:
		it.Status = StatusEmpty
		it.Message = sr.Message()
	}
	return it
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	found, empty, failed := r.Counts()
	avg := time.Duration(0)
	if n := len(r.Items); n > 0 {
		avg = r.Duration / time.Duration(n)
	}
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", len(r.Items))
	_, _ = fmt.Fprintf(w, "  Found: %d\n", found)
	_, _ = fmt.Fprintf(w, "  Nothing detected: %d\n", empty)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", failed)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", avg.Round(time.Millisecond))
}
