package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"studytutor/internal/capture"
	"studytutor/internal/logger"
)

var cropCmd = &cobra.Command{
	Use:   "crop [image]",
	Short: "Crop a region out of a rendered page",
	Long: `Crop copies the selected rectangle 1:1 out of a PNG or JPEG page render
and writes it as PNG. Selections smaller than 10x10 pixels are rejected, as
in the viewer. With --describe the crop is also sent to the vision relay.`,
	Example: `  studyctl crop page3.png --x 120 --y 80 --width 300 --height 200 -o figure.png
  studyctl crop page3.png --x 120 --y 80 --width 300 --height 200 --describe`,
	Args: cobra.ExactArgs(1),
	RunE: runCrop,
}

func init() {
	rootCmd.AddCommand(cropCmd)

	cropCmd.Flags().Float64("x", 0, "left edge of the selection")
	cropCmd.Flags().Float64("y", 0, "top edge of the selection")
	cropCmd.Flags().Float64("width", 0, "selection width")
	cropCmd.Flags().Float64("height", 0, "selection height")
	cropCmd.Flags().StringP("output", "o", "", "output PNG path")
	cropCmd.Flags().Bool("describe", false, "describe the crop with the vision relay")
}

func runCrop(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("crop")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	w, _ := cmd.Flags().GetFloat64("width")
	h, _ := cmd.Flags().GetFloat64("height")
	out, _ := cmd.Flags().GetString("output")
	describe, _ := cmd.Flags().GetBool("describe")

	rect := capture.Rect{X: x, Y: y, Width: w, Height: h}
	if w < capture.MinSelectionSize || h < capture.MinSelectionSize {
		return capture.ErrSelectionTooSmall
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	cropped, err := capture.Crop(capture.Surface{Pixels: img}, rect)
	if err != nil {
		return err
	}
	encoded, err := capture.EncodePNG(cropped)
	if err != nil {
		return err
	}
	log.Info().Int("width", cropped.Bounds().Dx()).Int("height", cropped.Bounds().Dy()).Msg("cropped selection")

	if out != "" {
		if err := writeOutput(out, encoded); err != nil {
			return err
		}
	}
	if !describe {
		if out == "" {
			fmt.Fprintln(cmd.OutOrStdout(), capture.DataURI(encoded))
		}
		return nil
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	relay, err := newRelay(ctx)
	if err != nil {
		return err
	}
	text, err := relay.Describe(ctx, capture.DataURI(encoded))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
