package services

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/WebPressive/webpressive.github.io/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 20 // SYNC_INIT carries every slide image
	sendBuffer     = 256
)

// member is anything that can sit in a topic room: a websocket client or
// an in-process port.
type member interface {
	room() string
	deliver(frame []byte) bool
	detach()
}

type relayFrame struct {
	from  member
	frame []byte
}

// WebSocketService relays sync frames between members of the same topic.
// A frame from one member goes to every other current member of its topic,
// in the order the hub received it.
type WebSocketService struct {
	rooms      map[string]map[member]bool
	register   chan member
	unregister chan member
	relay      chan relayFrame
	quit       chan struct{}
	stopOnce   sync.Once
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	onReceiver func(*Client)
}

// NewWebSocketService creates a new sync hub. Run must be running before
// members join.
func NewWebSocketService() *WebSocketService {
	return &WebSocketService{
		rooms:      make(map[string]map[member]bool),
		register:   make(chan member),
		unregister: make(chan member),
		relay:      make(chan relayFrame, sendBuffer),
		quit:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// presenter and receiver windows are served from this host or opened locally
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// OnReceiver registers fn to be called for every client that connects with
// role=receiver.
func (s *WebSocketService) OnReceiver(fn func(*Client)) {
	s.mu.Lock()
	s.onReceiver = fn
	s.mu.Unlock()
}

// Members returns the number of members in topic (thread-safe)
func (s *WebSocketService) Members(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[topic])
}

// Run starts the hub event loop
func (s *WebSocketService) Run() {
	for {
		select {
		case m := <-s.register:
			s.mu.Lock()
			if s.rooms[m.room()] == nil {
				s.rooms[m.room()] = make(map[member]bool)
			}
			s.rooms[m.room()][m] = true
			s.mu.Unlock()

		case m := <-s.unregister:
			s.mu.Lock()
			if room, ok := s.rooms[m.room()]; ok {
				if _, ok := room[m]; ok {
					delete(room, m)
					m.detach()
				}
				if len(room) == 0 {
					delete(s.rooms, m.room())
				}
			}
			s.mu.Unlock()

		case f := <-s.relay:
			s.mu.RLock()
			for m := range s.rooms[f.from.room()] {
				if m == f.from {
					continue
				}
				if !m.deliver(f.frame) {
					log.Printf("[WebSocket] dropping frame on %s: member buffer full", f.from.room())
				}
			}
			s.mu.RUnlock()

		case <-s.quit:
			return
		}
	}
}

// Stop ends the event loop. Members still joined stop receiving frames.
func (s *WebSocketService) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}

// Join adds an in-process member to topic.
func (s *WebSocketService) Join(topic string) *LocalPort {
	if topic == "" {
		topic = protocol.DefaultTopic
	}
	p := &LocalPort{
		service: s,
		topic:   topic,
		frames:  make(chan []byte, sendBuffer),
	}
	select {
	case s.register <- p:
	case <-s.quit:
		p.closed.Store(true)
		close(p.frames)
	}
	return p
}

// HandleWebSocket upgrades the request and adds the connection to topic.
func (s *WebSocketService) HandleWebSocket(w http.ResponseWriter, r *http.Request, topic string) {
	if topic == "" {
		topic = protocol.DefaultTopic
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		topic:    topic,
		receiver: r.URL.Query().Get("role") == "receiver",
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		service:  s,
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}
	log.Printf("[WebSocket] Client %s joined %s (receiver=%t)", client.id, topic, client.receiver)

	go client.writePump()
	go client.readPump()

	if client.receiver {
		s.mu.RLock()
		fn := s.onReceiver
		s.mu.RUnlock()
		if fn != nil {
			fn(client)
		}
	}
}

func (s *WebSocketService) publish(from member, frame []byte) bool {
	select {
	case s.relay <- relayFrame{from: from, frame: frame}:
		return true
	case <-s.quit:
		return false
	}
}

func (s *WebSocketService) leave(m member) {
	select {
	case s.unregister <- m:
	case <-s.quit:
	}
}

// Client is a websocket member of a topic.
type Client struct {
	id       string
	topic    string
	receiver bool
	conn     *websocket.Conn
	send     chan []byte
	service  *WebSocketService
	closed   atomic.Bool
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// Closed reports whether the connection has ended.
func (c *Client) Closed() bool { return c.closed.Load() }

func (c *Client) room() string { return c.topic }

func (c *Client) deliver(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) detach() { close(c.send) }

// readPump relays text frames from the connection to the topic
func (c *Client) readPump() {
	defer func() {
		c.closed.Store(true)
		c.service.leave(c)
		c.conn.Close()
		log.Printf("[WebSocket] Client %s left %s", c.id, c.topic)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !c.service.publish(c, message) {
			break
		}
	}
}

// writePump writes relayed frames to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// LocalPort is an in-process member of a hub topic. It implements
// protocol.Port.
type LocalPort struct {
	service *WebSocketService
	topic   string
	frames  chan []byte
	once    sync.Once
	closed  atomic.Bool
}

func (p *LocalPort) room() string { return p.topic }

func (p *LocalPort) deliver(frame []byte) bool {
	select {
	case p.frames <- frame:
		return true
	default:
		return false
	}
}

func (p *LocalPort) detach() { close(p.frames) }

// Send relays frame to the other members of the topic.
func (p *LocalPort) Send(ctx context.Context, frame []byte) error {
	if p.closed.Load() {
		return protocol.ErrClosed
	}
	select {
	case p.service.relay <- relayFrame{from: p, frame: frame}:
		return nil
	case <-p.service.quit:
		return protocol.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames yields frames from the other members.
func (p *LocalPort) Frames() <-chan []byte {
	return p.frames
}

// Close leaves the topic. It is safe to call more than once.
func (p *LocalPort) Close() error {
	p.once.Do(func() {
		if p.closed.Swap(true) {
			return
		}
		p.service.leave(p)
	})
	return nil
}

// Closed reports whether the port has left the topic.
func (p *LocalPort) Closed() bool {
	return p.closed.Load()
}
