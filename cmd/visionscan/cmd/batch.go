package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/batch"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/spf13/cobra"
)

func (a *app) batchCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Scan many photos and collect the results",
		Long: `Scan every image in the given files and directories one after another.

Unlike the single-image commands, batch never deletes the input files.
A failing image is recorded and the batch continues unless --stop-on-error
is set.

Examples:
  visionscan batch photos/
  visionscan batch --recursive --mode text --format json photos/ > results.json
  visionscan batch --include "*.png" --exclude "*_thumb*" --stats shots/
  visionscan batch --format csv --output results.csv a.jpg b.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runBatch,
	}
	c.Flags().String("mode", string(vision.ModeBarcode), "scan mode: barcode or text")
	c.Flags().StringP("format", "f", batch.FormatText, "output format: text, json, yaml, csv")
	c.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
	c.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	c.Flags().StringSlice("include", nil, "only scan files matching these glob patterns")
	c.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	c.Flags().Bool("stop-on-error", false, "abort at the first failed image")
	c.Flags().Bool("progress", false, "show a progress bar on stderr")
	c.Flags().Duration("progress-interval", 100*time.Millisecond, "minimum time between progress updates")
	c.Flags().BoolP("quiet", "q", false, "suppress informational output")
	c.Flags().Bool("stats", false, "print processing statistics")
	return c
}

func (a *app) batchConfig(cmd *cobra.Command) (*batch.Config, error) {
	flags := cmd.Flags()
	bc := batch.DefaultConfig()

	mode, _ := flags.GetString("mode")
	bc.Mode = vision.Mode(mode)

	bc.Format = a.cfg.Output.Format
	if flags.Changed("format") {
		bc.Format, _ = flags.GetString("format")
	}
	bc.OutputFile = a.cfg.Output.File
	if flags.Changed("output") {
		bc.OutputFile, _ = flags.GetString("output")
	}
	bc.Recursive = a.cfg.Batch.Recursive
	if flags.Changed("recursive") {
		bc.Recursive, _ = flags.GetBool("recursive")
	}
	bc.StopOnError = a.cfg.Batch.StopOnError
	if flags.Changed("stop-on-error") {
		bc.StopOnError, _ = flags.GetBool("stop-on-error")
	}
	bc.IncludePatterns, _ = flags.GetStringSlice("include")
	bc.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	bc.ShowProgress, _ = flags.GetBool("progress")
	bc.ProgressInterval, _ = flags.GetDuration("progress-interval")
	bc.Quiet, _ = flags.GetBool("quiet")
	bc.ShowStats, _ = flags.GetBool("stats")

	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	bc, err := a.batchConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := a.newDetector(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() { _ = detector.Close() }()

	opts := scan.DefaultOptions(bc.Mode)
	opts.DeleteAfterScan = false
	opts.Observer = scan.LogObserver{}
	if bc.Mode == vision.ModeBarcode {
		opts.Scale = a.cfg.BarcodeScale()
	} else {
		opts.Scale = a.cfg.TextScale()
	}

	session, err := scan.NewSession(detector, opts)
	if err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), scan.StatusMessage(err))
		return err
	}

	var progress batch.ProgressCallback = batch.NewLogProgressCallback(slog.Default(), slog.LevelDebug)
	if bc.ShowProgress && !bc.Quiet {
		progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Scanning").
			WithUpdateInterval(bc.ProgressInterval)
	}

	res, runErr := batch.Run(ctx, session, args, bc, progress)
	if res == nil {
		if errors.Is(runErr, batch.ErrNoImages) {
			return fmt.Errorf("no image files found in %v", args)
		}
		return runErr
	}

	if err := res.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		res.PrintStats(cmd.OutOrStdout(), bc.Quiet)
	}
	return runErr
}
