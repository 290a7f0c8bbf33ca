package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/viewport"
)

var errDegenerate = errors.New("container or image has no area")

func newFitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Print where an image is drawn inside a container",
		Args:  cobra.NoArgs,
		RunE:  runFit,
	}
	cmd.Flags().String("container", "", "Container size, WIDTHxHEIGHT")
	cmd.Flags().String("image", "", "Image size, WIDTHxHEIGHT")
	cmd.MarkFlagRequired("container")
	cmd.MarkFlagRequired("image")
	return cmd
}

func sizesFromFlags(cmd *cobra.Command) (geometry.Rect, float64, error) {
	containerFlag, _ := cmd.Flags().GetString("container")
	imageFlag, _ := cmd.Flags().GetString("image")

	container, err := parseSize(containerFlag)
	if err != nil {
		return geometry.Rect{}, 0, err
	}
	img, err := parseSize(imageFlag)
	if err != nil {
		return geometry.Rect{}, 0, err
	}
	return container, geometry.AspectRatio(img.Width, img.Height), nil
}

func runFit(cmd *cobra.Command, _ []string) error {
	container, aspect, err := sizesFromFlags(cmd)
	if err != nil {
		return err
	}
	frame, ok := geometry.ComputeContentFrame(container, aspect)
	if !ok {
		return errDegenerate
	}

	text := fmt.Sprintf("offset=(%g,%g) size=%gx%g", frame.OffsetX, frame.OffsetY, frame.Width, frame.Height)
	return printResult(cmd, text, frame)
}

func newRegionCommand() *cobra.Command {
	defaults := viewport.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "region",
		Short: "Print the zoom and pan that fill the display with a dragged region",
		Args:  cobra.NoArgs,
		RunE:  runRegion,
	}
	cmd.Flags().String("container", "", "Container size, WIDTHxHEIGHT")
	cmd.Flags().String("image", "", "Image size, WIDTHxHEIGHT")
	cmd.Flags().String("from", "", "Drag start in container pixels, X,Y")
	cmd.Flags().String("to", "", "Drag end in container pixels, X,Y")
	cmd.Flags().Float64("zoom", 1, "Current zoom level")
	cmd.Flags().Float64("pan-x", 0, "Current horizontal pan in pixels")
	cmd.Flags().Float64("pan-y", 0, "Current vertical pan in pixels")
	cmd.Flags().Float64("min-zoom", defaults.RegionMinZoom, "Lower zoom clamp for region zoom")
	cmd.Flags().Float64("max-zoom", defaults.MaxZoom, "Upper zoom clamp")
	cmd.Flags().Float64("min-region", defaults.MinRegion, "Smallest normalized region side")
	for _, name := range []string{"container", "image", "from", "to"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

// RegionResult is the outcome of the region command
type RegionResult struct {
	Applied  bool                   `json:"applied"`
	Region   geometry.Region        `json:"region"`
	Viewport geometry.ViewportState `json:"viewport"`
}

func runRegion(cmd *cobra.Command, _ []string) error {
	container, aspect, err := sizesFromFlags(cmd)
	if err != nil {
		return err
	}
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	from, err := parsePoint(fromFlag)
	if err != nil {
		return err
	}
	to, err := parsePoint(toFlag)
	if err != nil {
		return err
	}

	var current geometry.ViewportState
	current.ZoomLevel, _ = cmd.Flags().GetFloat64("zoom")
	current.PanX, _ = cmd.Flags().GetFloat64("pan-x")
	current.PanY, _ = cmd.Flags().GetFloat64("pan-y")
	minZoom, _ := cmd.Flags().GetFloat64("min-zoom")
	maxZoom, _ := cmd.Flags().GetFloat64("max-zoom")
	minRegion, _ := cmd.Flags().GetFloat64("min-region")

	base, ok := geometry.ComputeContentFrame(container, aspect)
	if !ok {
		return errDegenerate
	}
	live, ok := geometry.LiveContentFrame(container, aspect, current)
	if !ok {
		return errDegenerate
	}
	start, _ := geometry.ClampedPixelToNormalized(from, live)
	end, _ := geometry.ClampedPixelToNormalized(to, live)
	region := geometry.Region{X0: start.X, Y0: start.Y, X1: end.X, Y1: end.Y}

	result := RegionResult{Region: region, Viewport: current}
	if target, ok := geometry.RegionToZoomPan(region, base, minRegion, minZoom, maxZoom); ok {
		result.Applied = true
		result.Viewport = target
	}

	text := fmt.Sprintf("zoom=%g pan=(%g,%g)", result.Viewport.ZoomLevel, result.Viewport.PanX, result.Viewport.PanY)
	if !result.Applied {
		text = "region too small, viewport unchanged: " + text
	}
	return printResult(cmd, text, result)
}
