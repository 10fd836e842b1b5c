package scan

import (
	"errors"

	"github.com/MeKo-Tech/visionscan/internal/imageio"
)

var (
	// ErrNoDetectionAvailable means the detector for the session's mode could
	// not be set up. The session stays disabled.
	ErrNoDetectionAvailable = errors.New("no detection available")

	// ErrCancelled is reported by a task that was cancelled before it finished.
	// Its result is discarded.
	ErrCancelled = errors.New("scan cancelled")
)

// User-facing status messages.
const (
	MsgReadFailed   = "Could not read stored image."
	MsgNoDetector   = "Could not set up the detector."
	MsgNothingFound = "Nothing detected."
	MsgCancelled    = "Scan cancelled."
	MsgScanFailed   = "Scan failed."
)

// StatusMessage maps a scan error onto the short message shown to the user.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, imageio.ErrFileNotFound), errors.Is(err, imageio.ErrUnsupportedImage):
		return MsgReadFailed
	case errors.Is(err, ErrNoDetectionAvailable):
		return MsgNoDetector
	case errors.Is(err, ErrCancelled):
		return MsgCancelled
	default:
		return MsgScanFailed
	}
}
