package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WebPressive/webpressive.github.io/internal/render"
	"github.com/WebPressive/webpressive.github.io/internal/services"
)

func newManifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest [deck-dir]",
		Short: "Write a deck.json listing the page images of a deck directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runManifest,
	}
	cmd.Flags().String("title", "", "Deck title (defaults to the directory name)")
	cmd.Flags().Bool("check", false, "Load every page to verify the deck")
	return cmd
}

func runManifest(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	check, _ := cmd.Flags().GetBool("check")

	loader := services.NewDeckLoader(args[0], render.NewImageStore())
	manifest, err := loader.Manifest()
	if err != nil {
		return err
	}
	if len(manifest.Slides) == 0 {
		return services.ErrNoPages
	}
	if title != "" {
		manifest.Title = title
	}

	if check {
		deck, err := loader.Load()
		if err != nil {
			return err
		}
		deck.Close()
	}

	if err := loader.WriteManifest(manifest); err != nil {
		return err
	}
	text := fmt.Sprintf("Wrote %s with %d slides", services.ManifestFile, len(manifest.Slides))
	return printResult(cmd, text, manifest)
}
