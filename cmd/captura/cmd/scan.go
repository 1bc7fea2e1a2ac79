package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/obraops/captura/internal/pipeline"
)

const formatText = "text"

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Run a receipt photo through the capture pipeline",
	Long: `Process a photographed receipt and print the candidate expense amount.

The image is run through boundary detection, rectification, enhancement,
OCR, and amount extraction. The output reports the candidate amount with
its confidence; confirming and committing the expense is left to the
calling application.

Examples:
  captura scan receipt.jpg
  captura scan receipt.jpg --format json
  captura scan receipt.jpg --language spa --show-text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		language := cfg.Pipeline.Recognizer.Language
		if cmd.Flags().Changed("language") {
			language, _ = cmd.Flags().GetString("language")
		}
		format, _ := cmd.Flags().GetString("format")
		showText, _ := cmd.Flags().GetBool("show-text")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		mimeType := mimeTypeForFile(args[0], data)

		pl, err := pipeline.NewBuilder().
			WithMaxUploadBytes(cfg.Pipeline.MaxUploadBytes).
			WithLanguage(language).
			WithDetectorThresholds(cfg.Pipeline.Detector.LowThreshold, cfg.Pipeline.Detector.HighThreshold).
			WithMinAreaFraction(cfg.Pipeline.Detector.MinAreaFraction).
			WithObserver(pipeline.NewLogObserver(nil, slog.LevelDebug)).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		session := pipeline.NewSession(pl)
		res, err := session.Process(cmd.Context(), data, mimeType)
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}

		if format == formatText {
			printResultText(cmd, res, showText)
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// mimeTypeForFile prefers the file extension and falls back to content
// sniffing.
func mimeTypeForFile(path string, data []byte) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	}
	return http.DetectContentType(data)
}

func printResultText(cmd *cobra.Command, res *pipeline.Result, showText bool) {
	out := cmd.OutOrStdout()

	if res.Boundary != nil && res.Boundary.Detected {
		fmt.Fprintf(out, "Boundary:   detected (quality %.0f)\n", res.Boundary.Confidence)
	} else {
		fmt.Fprintln(out, "Boundary:   not detected, processed full frame")
	}
	if res.WasRectified {
		fmt.Fprintln(out, "Rectified:  yes")
	} else {
		fmt.Fprintln(out, "Rectified:  no")
	}
	if res.OCR != nil {
		fmt.Fprintf(out, "OCR:        %.0f%% confidence\n", res.OCR.Confidence)
	}
	if res.Amount != nil && res.Amount.Value != nil {
		fmt.Fprintf(out, "Amount:     %.2f (confidence %.0f)\n", *res.Amount.Value, res.Amount.Confidence)
	} else {
		fmt.Fprintln(out, "Amount:     none found, manual entry required")
	}
	if showText && res.OCR != nil {
		fmt.Fprintln(out, "--- recognized text ---")
		fmt.Fprintln(out, res.OCR.Text)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("format", "f", formatText, "output format (text, json)")
	scanCmd.Flags().StringP("language", "l", "", "OCR language model override")
	scanCmd.Flags().Bool("show-text", false, "print the full recognized text")
}
