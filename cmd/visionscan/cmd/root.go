// Package cmd implements the visionscan command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/visionscan/internal/config"
	"github.com/MeKo-Tech/visionscan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all subcommands of one command tree.
type app struct {
	v           *viper.Viper
	loader      *config.Loader
	cfg         *config.Config
	cfgFile     string
	newDetector DetectorFactory
}

// Option customizes a command tree built by NewRootCommand.
type Option func(*app)

// WithDetectorFactory replaces the detector the scan commands use.
func WithDetectorFactory(f DetectorFactory) Option {
	return func(a *app) { a.newDetector = f }
}

// NewRootCommand builds a fresh command tree with its own configuration
// state, so it can be executed repeatedly in one process.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{v: viper.New(), newDetector: DefaultDetector}
	for _, o := range opts {
		o(a)
	}
	a.loader = config.NewLoaderWithViper(a.v)
	return a.rootCommand()
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "visionscan",
		Short: "Read barcodes and text from photos",
		Long: `visionscan reads a single barcode or all text from a photographed image.

Barcode photos are reduced to a 600x600 bounding box before decoding and the
value is printed in groups of six digits together with its symbology and
semantic type. Text photos are read at full resolution in four orientations
and the orientation that yields the most text wins.

Examples:
  visionscan barcode shelf.jpg
  visionscan text --keep receipt.png
  visionscan batch photos/ --mode text --format json
  visionscan serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.setupLogging(cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/visionscan, /etc/visionscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		a.barcodeCommand(),
		a.textCommand(),
		a.batchCommand(),
		a.benchCommand(),
		a.serveCommand(),
		a.configCommand(),
	)
	return rootCmd
}

// loadConfig reads the config file, environment and bound flags.
func (a *app) loadConfig() error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// setupLogging installs a JSON slog handler on w. Logs go to stderr so that
// scan output on stdout stays machine readable.
func (a *app) setupLogging(w io.Writer) {
	var logLevel slog.Level
	if a.cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch a.cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
