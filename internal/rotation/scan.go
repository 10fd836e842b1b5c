package rotation

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"unicode/utf8"
)

// ErrNilImage is returned when Scan is given no image.
var ErrNilImage = errors.New("rotation scan: nil image")

// Recognizer extracts text from one orientation of an image.
// An empty string means nothing was recognized.
type Recognizer func(ctx context.Context, img image.Image) (string, error)

// Outcome is the best result across all orientations.
type Outcome struct {
	Text     string
	Angle    int
	Found    bool
	Attempts int
	// Image is the candidate the winning text was read from.
	Image image.Image `json:"-" yaml:"-"`
}

// Scan calls recognize on each of the four orientations of img, in the order
// 0, 90, 180, 270 degrees clockwise, and keeps the result with the most
// characters. Ties keep the earlier angle. A recognizer error is logged and
// counts as an empty result; cancelling ctx aborts the scan without a result.
func Scan(ctx context.Context, img image.Image, recognize Recognizer) (Outcome, error) {
	if img == nil {
		return Outcome{}, ErrNilImage
	}

	var (
		out     Outcome
		bestLen int
	)
	for angle, candidate := range NewSequence(img).All() {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		text, err := recognize(ctx, candidate)
		out.Attempts++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{}, ctxErr
			}
			slog.Warn("Recognizer failed, treating orientation as empty", "angle", angle, "error", err)
			text = ""
		}

		n := utf8.RuneCountInString(text)
		slog.Debug("Scanned orientation", "angle", angle, "chars", n)
		if n > bestLen {
			bestLen = n
			out.Text = text
			out.Angle = angle
			out.Found = true
			out.Image = candidate
		}
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	return out, nil
}
