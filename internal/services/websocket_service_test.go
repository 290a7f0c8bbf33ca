package services

import (
	"context"
	"image"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
	"github.com/WebPressive/webpressive.github.io/internal/protocol"
	"github.com/WebPressive/webpressive.github.io/internal/render"
	"github.com/WebPressive/webpressive.github.io/internal/session"
)

func startHub(t *testing.T) (*WebSocketService, string) {
	t.Helper()
	svc := NewWebSocketService()
	go svc.Run()
	t.Cleanup(svc.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc.HandleWebSocket(w, r, strings.TrimPrefix(r.URL.Path, "/ws/"))
	}))
	t.Cleanup(server.Close)

	return svc, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/"
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, frames <-chan []byte) string {
	t.Helper()
	select {
	case f, ok := <-frames:
		if !ok {
			t.Fatal("frames closed")
		}
		return string(f)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return ""
}

func TestHubRelaysToOtherMembersInOrder(t *testing.T) {
	svc, base := startHub(t)
	ctx := context.Background()

	local := svc.Join("deck")
	defer local.Close()

	remote, err := Dial(ctx, base+"deck")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer remote.Close()

	other, err := Dial(ctx, base+"other")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer other.Close()

	waitUntil(t, "remote to join", func() bool { return svc.Members("deck") == 2 })

	for _, f := range []string{"one", "two", "three"} {
		if err := local.Send(ctx, []byte(f)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		if got := readFrame(t, remote.Frames()); got != want {
			t.Fatalf("remote got %q, want %q", got, want)
		}
	}

	if err := remote.Send(ctx, []byte("back")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := readFrame(t, local.Frames()); got != "back" {
		t.Fatalf("local got %q, want back", got)
	}

	select {
	case f := <-other.Frames():
		t.Fatalf("member of another topic got %q", f)
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case f := <-local.Frames():
		t.Fatalf("sender got its own frame %q", f)
	default:
	}
}

func TestHubReportsReceiverLiveness(t *testing.T) {
	svc, base := startHub(t)

	clients := make(chan *Client, 1)
	svc.OnReceiver(func(c *Client) { clients <- c })

	plain, _, err := websocket.DefaultDialer.Dial(base+protocol.DefaultTopic, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer plain.Close()

	conn, _, err := websocket.DefaultDialer.Dial(base+protocol.DefaultTopic+"?role=receiver", nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	var client *Client
	select {
	case client = <-clients:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver hook not called")
	}
	if client.Closed() {
		t.Fatal("client closed before disconnect")
	}
	select {
	case <-clients:
		t.Fatal("hook called for a non-receiver")
	default:
	}

	conn.Close()
	waitUntil(t, "client to close", client.Closed)
	waitUntil(t, "client to leave", func() bool { return svc.Members(protocol.DefaultTopic) == 1 })
}

func TestLocalPortClose(t *testing.T) {
	svc, _ := startHub(t)

	p := svc.Join("deck")
	waitUntil(t, "join", func() bool { return svc.Members("deck") == 1 })

	p.Close()
	p.Close()
	if err := p.Send(context.Background(), []byte("x")); err != protocol.ErrClosed {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
	if _, ok := <-p.Frames(); ok {
		t.Fatal("frames still open")
	}
	if n := svc.Members("deck"); n != 0 {
		t.Fatalf("members = %d, want 0", n)
	}
}

func TestReceiverSyncsOverWebSocket(t *testing.T) {
	svc, base := startHub(t)
	quiet := log.New(io.Discard, "", 0)

	store := render.NewImageStore()
	pages := make([]render.Page, 3)
	for i := range pages {
		img := image.NewRGBA(image.Rect(0, 0, 32, 18))
		img.Set(1, 1, color.RGBA{G: uint8(40 * i), A: 255})
		pages[i] = render.Page{Image: img, Notes: "note"}
	}
	deck, err := render.NewRasterDeck(store, pages)
	if err != nil {
		t.Fatalf("NewRasterDeck: %v", err)
	}

	opts := session.DefaultOptions()
	opts.Logger = quiet
	presenter := session.NewPresenter(svc.Join(protocol.DefaultTopic), store, opts)
	defer presenter.Close()
	presenter.SetContainer(geometry.Rect{Width: 1600, Height: 900})
	if err := presenter.Load(deck); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go presenter.Run(ctx)

	svc.OnReceiver(func(c *Client) { presenter.AttachReceiver(c) })

	port, err := Dial(ctx, base+protocol.DefaultTopic+"?role=receiver")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	receiver := session.NewReceiver(port, session.ReceiverOptions{Logger: quiet})
	go receiver.Start(ctx)

	waitUntil(t, "receiver sync", func() bool { return receiver.Synced() && len(receiver.Slides()) == 3 })
	waitUntil(t, "dual screen", presenter.DualScreen)
	if got := receiver.State().Mode; got != models.ModePresentation {
		t.Fatalf("receiver mode = %s", got)
	}

	presenter.Next()
	waitUntil(t, "next slide", func() bool { return receiver.State().Index == 1 })

	port.Close()
	waitUntil(t, "dual screen to end", func() bool { return !presenter.DualScreen() })
}
