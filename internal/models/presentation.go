package models

import (
	"fmt"
	"time"
)

// ImageRef identifies an encoded image held by a surface's image store.
type ImageRef string

// Mode is the outer presentation mode.
type Mode string

const (
	ModeUpload       Mode = "UPLOAD"
	ModePresentation Mode = "PRESENTATION"
	ModeOverview     Mode = "OVERVIEW"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeUpload, ModePresentation, ModeOverview:
		return true
	}
	return false
}

// LinkRegion is a clickable area of a slide in normalized coordinates.
// Exactly one of URL or Dest is set.
type LinkRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	URL    string  `json:"url,omitempty"`
	Dest   *int    `json:"dest,omitempty"` // 0-indexed page
}

// Validate checks the region invariants.
func (l LinkRegion) Validate() error {
	if !(l.Width > 0) || !(l.Height > 0) {
		return fmt.Errorf("link region is degenerate: %gx%g", l.Width, l.Height)
	}
	if (l.URL == "") == (l.Dest == nil) {
		return fmt.Errorf("link region needs exactly one of url or dest")
	}
	if l.Dest != nil && *l.Dest < 0 {
		return fmt.Errorf("link region dest is negative: %d", *l.Dest)
	}
	return nil
}

// SlideRecord is one page of a loaded document.
type SlideRecord struct {
	ID     string       `json:"id"`
	Image  ImageRef     `json:"image"`
	Name   string       `json:"name"`
	Notes  string       `json:"notes,omitempty"`
	Links  []LinkRegion `json:"links,omitempty"`
	Width  int          `json:"width"`  // intrinsic pixels
	Height int          `json:"height"` // intrinsic pixels
}

// Aspect returns the intrinsic aspect ratio, or 0 for a zero-area image.
func (s SlideRecord) Aspect() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

// Preferences are the trivial per-user settings kept between runs.
type Preferences struct {
	NotesFontSize       int       `json:"notesFontSize"`
	ReadingGuideEnabled bool      `json:"readingGuideEnabled"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

const (
	DefaultNotesFontSize = 14
	MinNotesFontSize     = 8
	MaxNotesFontSize     = 24
)

// DeckManifest describes a deck directory (deck.json).
type DeckManifest struct {
	Title   string          `json:"title"`
	Subject string          `json:"subject,omitempty"`
	Slides  []ManifestSlide `json:"slides"`
}

// ManifestSlide describes one page image of a deck directory.
type ManifestSlide struct {
	File  string       `json:"file"`
	Name  string       `json:"name,omitempty"`
	Notes string       `json:"notes,omitempty"`
	Links []LinkRegion `json:"links,omitempty"`
}
