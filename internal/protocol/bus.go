package protocol

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// DefaultTopic is the channel shared by a presenter and its receiver.
const DefaultTopic = "webpressive_sync"

const defaultMemberBuffer = 256

// Bus is an in-process topic channel. Each frame goes to every current
// member of the topic except the sender.
type Bus struct {
	logger *log.Logger
	buffer int

	mu      sync.RWMutex
	members map[string]map[uint64]*BusPort
	nextID  uint64
}

// BusOption customises a Bus.
type BusOption func(*Bus)

// WithLogger overrides the logger used for drop warnings.
func WithLogger(logger *log.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMemberBuffer sets how many undelivered frames a member may queue.
func WithMemberBuffer(size int) BusOption {
	return func(b *Bus) {
		if size <= 0 {
			size = 1
		}
		b.buffer = size
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger:  log.Default(),
		buffer:  defaultMemberBuffer,
		members: make(map[string]map[uint64]*BusPort),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Join adds a member to topic.
func (b *Bus) Join(topic string) *BusPort {
	p := &BusPort{
		bus:    b,
		topic:  topic,
		id:     atomic.AddUint64(&b.nextID, 1),
		frames: make(chan []byte, b.buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.members[topic] == nil {
		b.members[topic] = make(map[uint64]*BusPort)
	}
	b.members[topic][p.id] = p
	b.mu.Unlock()
	return p
}

// Members returns the number of members joined to topic.
func (b *Bus) Members(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.members[topic])
}

func (b *Bus) relay(from *BusPort, frame []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, m := range b.members[from.topic] {
		if id == from.id {
			continue
		}
		select {
		case m.frames <- frame:
		default:
			b.logger.Printf("[Bus] dropping frame for member %d on %s: buffer full", id, from.topic)
		}
	}
}

func (b *Bus) leave(p *BusPort) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.members[p.topic]; subs != nil {
		delete(subs, p.id)
		if len(subs) == 0 {
			delete(b.members, p.topic)
		}
	}
	// relay sends under the read lock, so closing here cannot race a send
	close(p.frames)
}

// BusPort is a member of a Bus topic.
type BusPort struct {
	bus    *Bus
	topic  string
	id     uint64
	frames chan []byte
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

// Send relays frame to the other members. Frames must not be modified
// after sending.
func (p *BusPort) Send(ctx context.Context, frame []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.bus.relay(p, frame)
	return nil
}

// Frames yields frames sent by other members.
func (p *BusPort) Frames() <-chan []byte {
	return p.frames
}

// Close leaves the topic. It is safe to call more than once.
func (p *BusPort) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		p.bus.leave(p)
		close(p.done)
	})
	return nil
}

// Closed reports whether the port has left the topic.
func (p *BusPort) Closed() bool {
	return p.closed.Load()
}

// Done is closed once the port has left the topic.
func (p *BusPort) Done() <-chan struct{} {
	return p.done
}
