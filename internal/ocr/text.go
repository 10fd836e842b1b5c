// Package ocr recognizes text in photos with Tesseract and shapes the result
// into vision text blocks.
//
// The Tesseract binding needs cgo and the tesseract/leptonica libraries, so
// it is only compiled with the "tesseract" build tag:
//
//	go build -tags tesseract ./...
//
// Without the tag NewClient returns ErrOCRNotEnabled.
package ocr

import (
	"image"
	"regexp"
	"strings"
	"unicode"

	"github.com/MeKo-Tech/visionscan/internal/vision"
	"golang.org/x/text/unicode/norm"
)

// Config controls the Tesseract client.
type Config struct {
	Language    string       `mapstructure:"language" yaml:"language"`
	PageSegMode int          `mapstructure:"page_seg_mode" yaml:"page_seg_mode"`
	Whitelist   string       `mapstructure:"whitelist" yaml:"whitelist"`
	Clean       CleanOptions `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns English with fully automatic page segmentation.
func DefaultConfig() Config {
	return Config{
		Language:    "eng",
		PageSegMode: 3,
		Clean:       DefaultCleanOptions(),
	}
}

// withDefaults fills unset fields from DefaultConfig. A zero page
// segmentation mode is OSD only, which never yields text.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.PageSegMode == 0 {
		c.PageSegMode = d.PageSegMode
	}
	if c.Clean == (CleanOptions{}) {
		c.Clean = d.Clean
	}
	return c
}

// CleanOptions controls per-component text post-processing.
type CleanOptions struct {
	NormalizeForm      string // "NFC" (default), "NFKC", "NFD", "NFKD", "none" to disable
	CollapseWhitespace bool   // collapse runs of whitespace to a single space
	RemoveControlChars bool   // remove non-printable control characters
	RemoveZeroWidth    bool   // remove zero-width spaces/joiners
}

// DefaultCleanOptions returns the options used for recognized components.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFC",
		CollapseWhitespace: true,
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
	}
}

// CleanText normalizes a recognized component and strips OCR noise.
// Leading and trailing whitespace is always removed.
func CleanText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}
	switch strings.ToUpper(opts.NormalizeForm) {
	case "NFC", "":
		s = norm.NFC.String(s)
	case "NFKC":
		s = norm.NFKC.String(s)
	case "NFD":
		s = norm.NFD.String(s)
	case "NFKD":
		s = norm.NFKD.String(s)
	}
	if opts.RemoveZeroWidth {
		s = removeZeroWidth(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if opts.CollapseWhitespace {
		s = wsRe.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(s)
}

var wsRe = regexp.MustCompile(`\s+`)

func removeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func removeZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', // ZERO WIDTH SPACE
			'\u200C', // ZERO WIDTH NON-JOINER
			'\u200D', // ZERO WIDTH JOINER
			'\uFEFF': // ZERO WIDTH NO-BREAK SPACE (BOM)
			return -1
		}
		return r
	}, s)
}

// Region is a rectangle of recognized text as reported by the engine.
type Region struct {
	Box        image.Rectangle
	Text       string
	Confidence float64
}

// GroupLines assigns each line to the first block containing its centre and
// returns the blocks in engine order. Lines outside every block form blocks
// of their own. Empty lines are dropped, as are blocks left without lines.
func GroupLines(blocks, lines []Region, opts CleanOptions) []vision.TextBlock {
	out := make([]vision.TextBlock, len(blocks))
	for i, b := range blocks {
		out[i].Bounds = b.Box
	}

	var orphans []vision.TextBlock
	for _, l := range lines {
		text := CleanText(l.Text, opts)
		if text == "" {
			continue
		}
		c := vision.TextComponent{Value: text, Confidence: l.Confidence, Bounds: l.Box}

		centre := image.Pt((l.Box.Min.X+l.Box.Max.X)/2, (l.Box.Min.Y+l.Box.Max.Y)/2)
		placed := false
		for i, b := range blocks {
			if centre.In(b.Box) {
				out[i].Components = append(out[i].Components, c)
				placed = true
				break
			}
		}
		if !placed {
			orphans = append(orphans, vision.TextBlock{Components: []vision.TextComponent{c}, Bounds: l.Box})
		}
	}

	result := make([]vision.TextBlock, 0, len(out)+len(orphans))
	for _, b := range out {
		if len(b.Components) > 0 {
			result = append(result, b)
		}
	}
	return append(result, orphans...)
}
