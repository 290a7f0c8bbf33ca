package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/render"
)

func TestStateUpdateWireShape(t *testing.T) {
	data, err := Encode(StateUpdate{
		Index:       2,
		Mode:        models.ModePresentation,
		SpotlightOn: true,
		SpotlightPos: &geometry.NormalizedPoint{
			X: 0.25, Y: 0.75,
		},
		Viewport: geometry.ViewportState{ZoomLevel: 2, PanX: 10, PanY: -5},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := map[string]any{
		"type":         "STATE_UPDATE",
		"index":        float64(2),
		"mode":         "PRESENTATION",
		"spotlightOn":  true,
		"spotlightPos": map[string]any{"x": 0.25, "y": 0.75},
		"pointerOn":    false,
		"pointerPos":   nil,
		"viewport":     map[string]any{"zoomLevel": float64(2), "panX": float64(10), "panY": float64(-5)},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("wire mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeMessages(t *testing.T) {
	start := int64(1700000000000)
	in := []Message{
		SyncRequest{},
		SyncInit{Slides: []WireSlide{{ID: "a", Name: "Intro", ImageData: "data:image/png;base64,AA==", Width: 16, Height: 9}}, StartTime: &start},
		SyncInit{Slides: []WireSlide{}},
		StateUpdate{Index: 1, Mode: models.ModeOverview, Viewport: geometry.Identity},
	}
	for _, m := range in {
		data, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode %T: %v", m, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode %s: %v", data, err)
		}
		if d := cmp.Diff(m, got); d != "" {
			t.Fatalf("%T mismatch (-want +got):\n%s", m, d)
		}
	}
}

func TestSyncInitNullStartTime(t *testing.T) {
	data, err := Encode(SyncInit{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"startTime":null`)) || !bytes.Contains(data, []byte(`"slides":[]`)) {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"HELLO"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	url := EncodeDataURL("image/jpeg", payload)
	mime, data, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/jpeg" || !bytes.Equal(data, payload) {
		t.Fatalf("got %q %v", mime, data)
	}

	// bare base64
	mime, data, err = DecodeDataURL("AAEC")
	if err != nil || mime != "image/png" || !bytes.Equal(data, []byte{0, 1, 2}) {
		t.Fatalf("bare base64: %q %v %v", mime, data, err)
	}

	for _, bad := range []string{"data:image/png;base64", "data:image/png,AAEC", "data:image/png;base64,!!!"} {
		if _, _, err := DecodeDataURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestWireSlidesRoundTrip(t *testing.T) {
	primary := render.NewImageStore()
	dest := 1
	slides := []models.SlideRecord{
		{ID: "s1", Image: primary.Put("image/png", []byte("one")), Name: "Intro", Width: 1600, Height: 900},
		{ID: "s2", Image: primary.Put("image/webp", []byte("two")), Name: "Design", Notes: "hi",
			Links: []models.LinkRegion{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, Dest: &dest}}, Width: 800, Height: 600},
	}

	wire, err := WireSlides(slides, primary)
	if err != nil {
		t.Fatalf("WireSlides: %v", err)
	}

	local := render.NewImageStore()
	restored, err := RestoreSlides(wire, local)
	if err != nil {
		t.Fatalf("RestoreSlides: %v", err)
	}
	if local.Len() != 2 {
		t.Fatalf("expected 2 local images, got %d", local.Len())
	}
	for i := range slides {
		if restored[i].Image == slides[i].Image {
			t.Fatal("receiver must hold its own image references")
		}
		img, err := local.Get(restored[i].Image)
		if err != nil {
			t.Fatal(err)
		}
		orig, _ := primary.Get(slides[i].Image)
		if d := cmp.Diff(orig, img); d != "" {
			t.Fatalf("image %d mismatch:\n%s", i, d)
		}
		restored[i].Image = slides[i].Image
	}
	if d := cmp.Diff(slides, restored); d != "" {
		t.Fatalf("slides mismatch (-want +got):\n%s", d)
	}
}

func TestRestoreSlidesReleasesOnError(t *testing.T) {
	local := render.NewImageStore()
	_, err := RestoreSlides([]WireSlide{
		{ID: "ok", ImageData: EncodeDataURL("image/png", []byte("x"))},
		{ID: "bad", ImageData: "data:image/png;base64,%%%"},
	}, local)
	if err == nil {
		t.Fatal("expected an error")
	}
	if local.Len() != 0 {
		t.Fatalf("partial restore leaked %d images", local.Len())
	}
}

func TestWireSlidesUnknownImage(t *testing.T) {
	_, err := WireSlides([]models.SlideRecord{{ID: "x", Image: "missing"}}, render.NewImageStore())
	if !errors.Is(err, render.ErrUnknownImage) {
		t.Fatalf("expected ErrUnknownImage, got %v", err)
	}
}

func receive(t *testing.T, p *BusPort) []byte {
	t.Helper()
	select {
	case f, ok := <-p.Frames():
		if !ok {
			t.Fatal("port closed")
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func TestBusRelaysToOtherMembersInOrder(t *testing.T) {
	bus := NewBus()
	a := bus.Join(DefaultTopic)
	b := bus.Join(DefaultTopic)
	other := bus.Join("elsewhere")
	ctx := context.Background()

	for _, f := range []string{"1", "2", "3"} {
		if err := a.Send(ctx, []byte(f)); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []string{"1", "2", "3"} {
		if got := string(receive(t, b)); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	select {
	case f := <-a.Frames():
		t.Fatalf("sender received its own frame %q", f)
	case f := <-other.Frames():
		t.Fatalf("other topic received %q", f)
	default:
	}
}

func TestBusDoesNotReplay(t *testing.T) {
	bus := NewBus()
	a := bus.Join(DefaultTopic)
	ctx := context.Background()
	if err := a.Send(ctx, []byte("early")); err != nil {
		t.Fatal(err)
	}

	late := bus.Join(DefaultTopic)
	if err := a.Send(ctx, []byte("late")); err != nil {
		t.Fatal(err)
	}
	if got := string(receive(t, late)); got != "late" {
		t.Fatalf("late joiner got %q", got)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(WithMemberBuffer(1), WithLogger(log.New(&logs, "", 0)))
	a := bus.Join(DefaultTopic)
	b := bus.Join(DefaultTopic)
	ctx := context.Background()

	if err := a.Send(ctx, []byte("kept")); err != nil {
		t.Fatal(err)
	}
	if err := a.Send(ctx, []byte("dropped")); err != nil {
		t.Fatalf("a full member must not block the sender: %v", err)
	}
	if got := string(receive(t, b)); got != "kept" {
		t.Fatalf("got %q", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("buffer full")) {
		t.Fatalf("expected a drop warning, got %q", logs.String())
	}
}

func TestBusPortClose(t *testing.T) {
	bus := NewBus(WithLogger(log.New(io.Discard, "", 0)))
	a := bus.Join(DefaultTopic)
	b := bus.Join(DefaultTopic)

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal("second Close must be a no-op")
	}
	if !b.Closed() || bus.Members(DefaultTopic) != 1 {
		t.Fatalf("closed=%v members=%d", b.Closed(), bus.Members(DefaultTopic))
	}
	if _, ok := <-b.Frames(); ok {
		t.Fatal("frames channel should be closed")
	}
	select {
	case <-b.Done():
	default:
		t.Fatal("Done should be closed")
	}
	if err := b.Send(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := a.Send(context.Background(), []byte("x")); err != nil {
		t.Fatalf("remaining member can still send: %v", err)
	}
}

func TestPost(t *testing.T) {
	bus := NewBus()
	a := bus.Join(DefaultTopic)
	b := bus.Join(DefaultTopic)
	if err := Post(context.Background(), a, SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	m, err := Decode(receive(t, b))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(SyncRequest); !ok {
		t.Fatalf("got %T", m)
	}
}
