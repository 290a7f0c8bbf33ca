package protocol

import (
	"context"
	"errors"
)

// ErrClosed is returned when sending on a closed port.
var ErrClosed = errors.New("port closed")

// Port is one member's end of a topic channel. Frames sent are delivered
// to every other member in order; nothing is replayed to later joiners.
type Port interface {
	Send(ctx context.Context, frame []byte) error
	// Frames yields incoming frames and is closed when the port closes.
	Frames() <-chan []byte
	Close() error
}

// Post encodes m and sends it on port.
func Post(ctx context.Context, port Port, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return port.Send(ctx, data)
}
