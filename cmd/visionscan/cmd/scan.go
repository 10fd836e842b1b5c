package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/MeKo-Tech/visionscan/internal/batch"
	"github.com/MeKo-Tech/visionscan/internal/config"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/spf13/cobra"
)

var validOutputFormats = []string{batch.FormatText, batch.FormatJSON, batch.FormatYAML, batch.FormatCSV}

func (a *app) barcodeCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "barcode <image>",
		Short: "Read the first barcode in a photo",
		Long: `Read one barcode from a photo.

The photo is reduced to fit the target box (600x600 by default) using an
integer sample factor before decoding. The value is printed in groups of six
digits from the right, followed by its symbology and semantic type.

The image file is deleted after the scan unless --keep is given or
scan.delete_after_scan is false.

Examples:
  visionscan barcode --keep label.jpg
  visionscan barcode shot.png --format json
  visionscan barcode shot.png --symbologies EAN_13,UPC_A --try-harder`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, vision.ModeBarcode, args[0])
		},
	}
	c.Flags().Bool("keep", false, "keep the image file after scanning")
	c.Flags().Int("width", 600, "target bounding box width (0 decodes at full resolution)")
	c.Flags().Int("height", 600, "target bounding box height (0 decodes at full resolution)")
	c.Flags().Bool("try-harder", false, "spend more time looking for a barcode")
	c.Flags().StringSlice("symbologies", nil, "restrict decoding to these symbologies (e.g. QR_CODE,EAN_13)")
	c.Flags().StringP("format", "f", batch.FormatText, "output format: text, json, yaml, csv")
	return c
}

func (a *app) textCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "text <image>",
		Short: "Read all text in a photo, trying four orientations",
		Long: `Recognize the text in a photo.

The photo is read at full resolution and rotated clockwise in 90 degree steps;
the orientation that yields the most characters wins. Text recognition needs a
binary built with -tags tesseract.

The image file is deleted after the scan unless --keep is given or
scan.delete_after_scan is false.

Examples:
  visionscan text --keep receipt.jpg
  visionscan text note.png --language deu --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, vision.ModeText, args[0])
		},
	}
	c.Flags().Bool("keep", false, "keep the image file after scanning")
	c.Flags().Int("width", 0, "target bounding box width (0 reads at full resolution)")
	c.Flags().Int("height", 0, "target bounding box height (0 reads at full resolution)")
	c.Flags().String("language", "", "Tesseract language (e.g. eng, deu)")
	c.Flags().Int("psm", 3, "Tesseract page segmentation mode (1-13)")
	c.Flags().String("whitelist", "", "restrict recognition to these characters")
	c.Flags().StringP("format", "f", batch.FormatText, "output format: text, json, yaml, csv")
	return c
}

// scanConfig applies the command's flags on top of the loaded config.
func (a *app) scanConfig(cmd *cobra.Command, mode vision.Mode) (*config.Config, error) {
	cfg := *a.cfg
	flags := cmd.Flags()

	switch mode {
	case vision.ModeBarcode:
		if flags.Changed("width") {
			cfg.Barcode.TargetWidth, _ = flags.GetInt("width")
		}
		if flags.Changed("height") {
			cfg.Barcode.TargetHeight, _ = flags.GetInt("height")
		}
		if flags.Changed("try-harder") {
			cfg.Barcode.TryHarder, _ = flags.GetBool("try-harder")
		}
		if flags.Changed("symbologies") {
			cfg.Barcode.Symbologies, _ = flags.GetStringSlice("symbologies")
		}
	case vision.ModeText:
		if flags.Changed("width") {
			cfg.Text.TargetWidth, _ = flags.GetInt("width")
		}
		if flags.Changed("height") {
			cfg.Text.TargetHeight, _ = flags.GetInt("height")
		}
		if flags.Changed("language") {
			cfg.Text.Language, _ = flags.GetString("language")
		}
		if flags.Changed("psm") {
			cfg.Text.PageSegMode, _ = flags.GetInt("psm")
		}
		if flags.Changed("whitelist") {
			cfg.Text.Whitelist, _ = flags.GetString("whitelist")
		}
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if keep, _ := flags.GetBool("keep"); keep {
		cfg.Scan.DeleteAfterScan = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (a *app) runScan(cmd *cobra.Command, mode vision.Mode, path string) error {
	cfg, err := a.scanConfig(cmd, mode)
	if err != nil {
		return err
	}
	format := cfg.Output.Format
	if format == "" {
		format = batch.FormatText
	}
	if !slices.Contains(validOutputFormats, format) {
		return fmt.Errorf("invalid output format: %s", format)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := a.newDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() { _ = detector.Close() }()

	opts := scan.DefaultOptions(mode)
	opts.DeleteAfterScan = cfg.Scan.DeleteAfterScan
	opts.Observer = scan.LogObserver{}
	if mode == vision.ModeBarcode {
		opts.Scale = cfg.BarcodeScale()
	} else {
		opts.Scale = cfg.TextScale()
	}

	// A disabled session still deletes the photo and reports why.
	session, _ := scan.NewSession(detector, opts)
	res, err := session.Scan(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), scan.StatusMessage(err))
		return fmt.Errorf("scan %s: %w", path, err)
	}

	out, err := batch.FormatItem(batch.NewItem(path, res, nil), format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
