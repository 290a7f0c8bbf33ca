package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "webpressive",
		Short: "WebPressive - slide presenter tools",
		Long: `WebPressive tools for working with a running presenter and its slide
geometry: mirror a presenter as a receiver, and compute the content frame
and region zoom for a given display.`,
		SilenceUsage: true,
	}

	// Add global --json flag
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(newReceiveCommand(), newFitCommand(), newRegionCommand(), newManifestCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// printResult writes data as indented JSON with --json, or as text otherwise
func printResult(cmd *cobra.Command, text string, data interface{}) error {
	out := cmd.OutOrStdout()
	if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
		return writeJSON(out, data)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

func writeJSON(out io.Writer, data interface{}) error {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}

// parseSize reads WIDTHxHEIGHT
func parseSize(s string) (geometry.Rect, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return geometry.Rect{}, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil || width < 0 {
		return geometry.Rect{}, fmt.Errorf("invalid width in %q", s)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil || height < 0 {
		return geometry.Rect{}, fmt.Errorf("invalid height in %q", s)
	}
	return geometry.Rect{Width: width, Height: height}, nil
}

// parsePoint reads X,Y
func parsePoint(s string) (geometry.PixelPoint, error) {
	x, y, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return geometry.PixelPoint{}, fmt.Errorf("invalid point %q: want X,Y", s)
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return geometry.PixelPoint{}, fmt.Errorf("invalid x in %q", s)
	}
	py, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return geometry.PixelPoint{}, fmt.Errorf("invalid y in %q", s)
	}
	return geometry.PixelPoint{X: px, Y: py}, nil
}
