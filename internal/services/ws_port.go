package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WebPressive/webpressive.github.io/internal/protocol"
)

// WSPort is a protocol.Port over a websocket connection to a hub topic.
type WSPort struct {
	conn    *websocket.Conn
	frames  chan []byte
	writeMu sync.Mutex
	once    sync.Once
	closed  atomic.Bool
}

// Dial connects to a hub topic, e.g. ws://host:8080/ws/webpressive_sync.
func Dial(ctx context.Context, url string) (*WSPort, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	p := &WSPort{
		conn:   conn,
		frames: make(chan []byte, sendBuffer),
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	go p.readLoop()
	return p, nil
}

func (p *WSPort) readLoop() {
	defer func() {
		p.closed.Store(true)
		close(p.frames)
	}()

	for {
		messageType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !p.closed.Load() {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case p.frames <- message:
		default:
			log.Printf("[WebSocket] dropping frame: receive buffer full")
		}
	}
}

// Send writes frame to the hub.
func (p *WSPort) Send(ctx context.Context, frame []byte) error {
	if p.closed.Load() {
		return protocol.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(deadline)
	if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Frames yields frames relayed by the hub. It is closed when the
// connection ends.
func (p *WSPort) Frames() <-chan []byte {
	return p.frames
}

// Close sends a close frame and drops the connection.
func (p *WSPort) Close() error {
	var err error
	p.once.Do(func() {
		p.closed.Store(true)
		p.writeMu.Lock()
		p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		p.writeMu.Unlock()
		err = p.conn.Close()
	})
	return err
}

// Closed reports whether the connection has ended.
func (p *WSPort) Closed() bool {
	return p.closed.Load()
}
