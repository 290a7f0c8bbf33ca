package services

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{B: 200, A: 255})
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
}

func slideNames(slides []models.SlideRecord) []string {
	var names []string
	for _, s := range slides {
		names = append(names, s.Name)
	}
	return names
}

func TestDeckLoaderListsImagesInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "02.png", 16, 9)
	writePNG(t, dir, "01.png", 16, 9)
	writePNG(t, dir, "03.png", 4, 3)
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0644)

	store := render.NewImageStore()
	deck, err := NewDeckLoader(dir, store).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer deck.Close()

	slides := deck.Slides()
	if diff := cmp.Diff([]string{"Slide 1", "Slide 2", "Slide 3"}, slideNames(slides)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if slides[2].Width != 4 || slides[2].Height != 3 {
		t.Fatalf("slide 3 size = %dx%d, want 4x3", slides[2].Width, slides[2].Height)
	}
	if store.Len() != 3 {
		t.Fatalf("store holds %d images, want 3", store.Len())
	}
}

func TestDeckLoaderUsesManifest(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 16, 9)
	writePNG(t, dir, "b.png", 16, 9)
	dest := 0

	loader := NewDeckLoader(dir, render.NewImageStore())
	err := loader.WriteManifest(&models.DeckManifest{
		Title:   "Talk",
		Subject: "SPEAKERNOTES|1|from subject|2|second",
		Slides: []models.ManifestSlide{
			{File: "b.png", Name: "Intro", Links: []models.LinkRegion{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1, Dest: &dest}}},
			{File: "a.png", Name: "Outro", Notes: "own note"},
		},
	})
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestFile+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp manifest left behind: %v", err)
	}

	deck, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer deck.Close()

	slides := deck.Slides()
	if diff := cmp.Diff([]string{"Intro", "Outro"}, slideNames(slides)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if slides[0].Notes != "from subject" {
		t.Errorf("slide 1 notes = %q", slides[0].Notes)
	}
	if slides[1].Notes != "own note" {
		t.Errorf("slide 2 notes = %q", slides[1].Notes)
	}
	if len(slides[0].Links) != 1 || *slides[0].Links[0].Dest != 0 {
		t.Errorf("slide 1 links = %+v", slides[0].Links)
	}
}

func TestDeckLoaderFallsBackOnBadManifest(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "only.png", 8, 8)
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0644)

	deck, err := NewDeckLoader(dir, render.NewImageStore()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer deck.Close()
	if n := len(deck.Slides()); n != 1 {
		t.Fatalf("got %d slides, want 1", n)
	}
}

func TestDeckLoaderRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"slides":[{"file":"../x.png"}]}`), 0644)

	if _, err := NewDeckLoader(dir, render.NewImageStore()).Load(); err == nil {
		t.Fatal("expected error for path outside the deck")
	}
}

func TestDeckLoaderEmptyDirectory(t *testing.T) {
	if _, err := NewDeckLoader(t.TempDir(), render.NewImageStore()).Load(); err != ErrNoPages {
		t.Fatalf("Load = %v, want ErrNoPages", err)
	}
}
