package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

// ManifestFile is the optional deck description inside a deck directory.
const ManifestFile = "deck.json"

var pageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

// ErrNoPages is returned for a deck directory without page images.
var ErrNoPages = errors.New("deck directory has no page images")

// DeckLoader builds decks from a directory of page images
type DeckLoader struct {
	dir   string
	store *render.ImageStore
}

// NewDeckLoader creates a loader for dir whose slide images go into store
func NewDeckLoader(dir string, store *render.ImageStore) *DeckLoader {
	return &DeckLoader{dir: dir, store: store}
}

// Dir returns the deck directory.
func (l *DeckLoader) Dir() string { return l.dir }

// Manifest reads deck.json. A missing or malformed manifest is replaced by
// one listing the page images in name order.
func (l *DeckLoader) Manifest() (*models.DeckManifest, error) {
	manifestPath := filepath.Join(l.dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	switch {
	case os.IsNotExist(err):
		log.Printf("Deck manifest not found, listing page images: %s", l.dir)
		return l.listing()
	case err != nil:
		return nil, fmt.Errorf("failed to read deck manifest: %w", err)
	}

	var manifest models.DeckManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Printf("Failed to parse %s, listing page images instead: %v", ManifestFile, err)
		return l.listing()
	}
	if len(manifest.Slides) == 0 {
		log.Printf("Deck manifest lists no slides, listing page images: %s", l.dir)
		listed, err := l.listing()
		if err != nil {
			return nil, err
		}
		listed.Title, listed.Subject = manifest.Title, manifest.Subject
		return listed, nil
	}
	return &manifest, nil
}

func (l *DeckLoader) listing() (*models.DeckManifest, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !pageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	manifest := &models.DeckManifest{Title: filepath.Base(l.dir)}
	for _, f := range files {
		manifest.Slides = append(manifest.Slides, models.ManifestSlide{File: f})
	}
	return manifest, nil
}

// Load decodes every page listed by the manifest into a raster deck.
// Speaker notes in the manifest subject fill pages without their own notes.
func (l *DeckLoader) Load() (*render.RasterDeck, error) {
	manifest, err := l.Manifest()
	if err != nil {
		return nil, err
	}
	if len(manifest.Slides) == 0 {
		return nil, ErrNoPages
	}

	notes := render.ParseSpeakerNotes(manifest.Subject)
	pages := make([]render.Page, 0, len(manifest.Slides))
	for i, s := range manifest.Slides {
		img, err := l.decode(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load page %d: %w", i+1, err)
		}
		note := s.Notes
		if note == "" {
			note = render.NoteForPage(notes, i+1)
		}
		pages = append(pages, render.Page{
			Image: img,
			Name:  s.Name,
			Notes: note,
			Links: s.Links,
		})
	}

	deck, err := render.NewRasterDeck(l.store, pages)
	if err != nil {
		return nil, fmt.Errorf("failed to build deck: %w", err)
	}
	log.Printf("Loaded deck %q with %d slides from %s", manifest.Title, len(pages), l.dir)
	return deck, nil
}

func (l *DeckLoader) decode(file string) (image.Image, error) {
	if file == "" || filepath.Base(file) != file {
		return nil, fmt.Errorf("invalid page file name: %q", file)
	}
	f, err := os.Open(filepath.Join(l.dir, file))
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	defer f.Close()
	return render.Decode(f)
}

// WriteManifest atomically writes deck.json (temp file, then rename)
func (l *DeckLoader) WriteManifest(manifest *models.DeckManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deck manifest: %w", err)
	}

	manifestPath := filepath.Join(l.dir, ManifestFile)
	tempPath := manifestPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	file, err := os.OpenFile(tempPath, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	log.Printf("Wrote deck manifest with %d slides to %s", len(manifest.Slides), manifestPath)
	return nil
}
