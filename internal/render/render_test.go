package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WebPressive/webpressive.github.io/internal/models"
)

func TestParseSpeakerNotes(t *testing.T) {
	notes := ParseSpeakerNotes("SPEAKERNOTES|0|Welcome everyone|2|Explain the diagram|x|bad page|5|")
	want := map[int]string{
		1: "Welcome everyone",
		2: "Explain the diagram",
		3: "Explain the diagram",
	}
	if d := cmp.Diff(want, notes); d != "" {
		t.Fatalf("notes mismatch (-want +got):\n%s", d)
	}

	if ParseSpeakerNotes("Quarterly review") != nil {
		t.Fatal("subject without prefix must yield no notes")
	}
	if ParseSpeakerNotes("SPEAKERNOTES|") != nil {
		t.Fatal("empty notes list must yield nil")
	}
}

func TestNoteForPageFallsBackToPreviousPage(t *testing.T) {
	notes := map[int]string{1: "first", 3: "third"}
	cases := map[int]string{1: "first", 2: "first", 3: "third", 4: "third", 6: ""}
	for page, want := range cases {
		if got := NoteForPage(notes, page); got != want {
			t.Errorf("page %d: got %q want %q", page, got, want)
		}
	}
}

func TestDemoDeck(t *testing.T) {
	store := NewImageStore()
	deck, err := DemoDeck(store)
	if err != nil {
		t.Fatalf("DemoDeck: %v", err)
	}
	slides := deck.Slides()
	if len(slides) != 8 {
		t.Fatalf("expected 8 slides, got %d", len(slides))
	}
	if slides[0].Name != "Intro" || slides[7].Name != "Q&A" {
		t.Fatalf("unexpected names %q .. %q", slides[0].Name, slides[7].Name)
	}
	if slides[0].Width != 1600 || slides[0].Height != 900 {
		t.Fatalf("unexpected size %dx%d", slides[0].Width, slides[0].Height)
	}
	if store.Len() != 8 {
		t.Fatalf("expected 8 stored images, got %d", store.Len())
	}

	deck.Close()
	if store.Len() != 0 {
		t.Fatalf("Close should release page images, %d left", store.Len())
	}
}

func TestRenderPageAtZoom(t *testing.T) {
	store := NewImageStore()
	src := image.NewRGBA(image.Rect(0, 0, 160, 90))
	deck, err := NewRasterDeck(store, []Page{{Image: src}})
	if err != nil {
		t.Fatalf("NewRasterDeck: %v", err)
	}

	ref, err := deck.RenderPageAtZoom(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("RenderPageAtZoom: %v", err)
	}
	img, err := store.Get(ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if img.MIME != "image/png" {
		t.Fatalf("unexpected mime %q", img.MIME)
	}
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Fatalf("expected 320x180, got %v", b)
	}

	deck.Release(ref)
	if _, err := store.Get(ref); !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("expected released image to be gone, got %v", err)
	}

	if _, err := deck.RenderPageAtZoom(context.Background(), 3, 2); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := deck.RenderPageAtZoom(ctx, 0, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRasterDeckDropsInvalidLinks(t *testing.T) {
	dest := 2
	page := Page{
		Image: image.NewRGBA(image.Rect(0, 0, 10, 10)),
		Links: []models.LinkRegion{
			{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1, URL: "https://example.com"},
			{X: 0.1, Y: 0.1, Width: 0, Height: 0.1, URL: "https://example.com"},
			{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1, Dest: &dest},
			{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1},
		},
	}
	deck, err := NewRasterDeck(NewImageStore(), []Page{page})
	if err != nil {
		t.Fatalf("NewRasterDeck: %v", err)
	}
	if got := len(deck.Slides()[0].Links); got != 2 {
		t.Fatalf("expected 2 valid links, got %d", got)
	}
	if deck.Slides()[0].Name != "Slide 1" {
		t.Fatalf("unexpected default name %q", deck.Slides()[0].Name)
	}
}

func TestScaledSizeCapsLongestSide(t *testing.T) {
	w, h := scaledSize(6000, 3000, 3)
	if w != maxRenderSide || h != maxRenderSide/2 {
		t.Fatalf("got %dx%d", w, h)
	}
}
