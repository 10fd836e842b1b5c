package scan

import (
	"log/slog"

	"github.com/MeKo-Tech/visionscan/internal/vision"
)

// Observer is notified after every scan attempt, including failed and
// cancelled ones.
type Observer interface {
	ObserveScan(mode vision.Mode, res Result, err error)
}

// NoOpObserver ignores all notifications.
type NoOpObserver struct{}

func (NoOpObserver) ObserveScan(vision.Mode, Result, error) {}

// LogObserver logs each attempt at info level.
type LogObserver struct{}

func (LogObserver) ObserveScan(mode vision.Mode, res Result, err error) {
	if err != nil {
		slog.Info("Scan failed", "mode", mode, "id", res.ID, "error", err, "duration_ms", res.Duration.Milliseconds())
		return
	}
	slog.Info("Scan finished",
		"mode", mode,
		"id", res.ID,
		"found", res.Found,
		"angle", res.Angle,
		"chars", len([]rune(res.Text)),
		"duration_ms", res.Duration.Milliseconds())
}

// Observers fans a notification out to several observers.
type Observers []Observer

func (o Observers) ObserveScan(mode vision.Mode, res Result, err error) {
	for _, obs := range o {
		obs.ObserveScan(mode, res, err)
	}
}
