package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/visionscan/internal/benchmark"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/spf13/cobra"
)

func (a *app) benchCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "bench <image>",
		Short: "Time repeated scans of one photo",
		Long: `Scan the same photo several times and report timing and allocation.

The photo is never deleted. With --mode both, the barcode and text scans are
benchmarked one after the other.

Examples:
  visionscan bench label.jpg
  visionscan bench --mode text --iterations 5 receipt.png`,
		Args: cobra.ExactArgs(1),
		RunE: a.runBench,
	}
	c.Flags().String("mode", string(vision.ModeBarcode), "scan mode: barcode, text or both")
	c.Flags().IntP("iterations", "n", 10, "scans per mode")
	return c
}

func (a *app) runBench(cmd *cobra.Command, args []string) error {
	path := args[0]
	mode, _ := cmd.Flags().GetString("mode")
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		return fmt.Errorf("invalid iterations: %d (must be positive)", iterations)
	}

	var modes []vision.Mode
	switch mode {
	case "both":
		modes = []vision.Mode{vision.ModeBarcode, vision.ModeText}
	default:
		m := vision.Mode(mode)
		if !m.Valid() {
			return fmt.Errorf("invalid mode %q: must be barcode, text or both", mode)
		}
		modes = []vision.Mode{m}
	}

	detector, err := a.newDetector(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() { _ = detector.Close() }()

	suite := benchmark.NewSuite()
	for _, m := range modes {
		opts := scan.DefaultOptions(m)
		opts.DeleteAfterScan = false
		if m == vision.ModeBarcode {
			opts.Scale = a.cfg.BarcodeScale()
		} else {
			opts.Scale = a.cfg.TextScale()
		}
		session, err := scan.NewSession(detector, opts)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", m, scan.StatusMessage(err))
			continue
		}
		suite.Add(string(m), benchmark.ScanFunc(session, path))
	}

	results := suite.RunAll(cmd.Context(), iterations)
	if len(results) == 0 {
		return scan.ErrNoDetectionAvailable
	}

	w := cmd.OutOrStdout()
	var firstErr error
	for _, r := range results {
		_, _ = fmt.Fprintln(w, r.String())
		if r.Error != nil && firstErr == nil {
			firstErr = r.Error
		}
	}
	return firstErr
}
