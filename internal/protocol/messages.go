// Package protocol defines the messages exchanged between the primary
// display and a mirrored receiver, and the channels that carry them.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/WebPressive/webpressive.github.io/internal/geometry"
	"github.com/WebPressive/webpressive.github.io/internal/models"
)

// Message types on the wire.
const (
	TypeSyncRequest = "SYNC_REQUEST"
	TypeSyncInit    = "SYNC_INIT"
	TypeStateUpdate = "STATE_UPDATE"
)

// ErrUnknownType is returned when decoding a frame with an unknown type tag.
var ErrUnknownType = errors.New("unknown message type")

// Message is one of SyncRequest, SyncInit or StateUpdate.
type Message interface {
	MessageType() string
}

// SyncRequest asks the primary for a full snapshot. A receiver sends it on
// startup and may repeat it.
type SyncRequest struct{}

// SyncInit carries the complete deck in answer to a SyncRequest.
type SyncInit struct {
	Slides    []WireSlide `json:"slides"`
	StartTime *int64      `json:"startTime"` // Unix milliseconds
}

// StateUpdate is a complete snapshot of observable presentation state.
type StateUpdate struct {
	Index        int                       `json:"index"`
	Mode         models.Mode               `json:"mode"`
	SpotlightOn  bool                      `json:"spotlightOn"`
	SpotlightPos *geometry.NormalizedPoint `json:"spotlightPos"`
	PointerOn    bool                      `json:"pointerOn"`
	PointerPos   *geometry.NormalizedPoint `json:"pointerPos"`
	Viewport     geometry.ViewportState    `json:"viewport"`
}

// WireSlide is a slide with its image inlined as a data URL.
type WireSlide struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	ImageData string              `json:"imageData"`
	Notes     string              `json:"notes,omitempty"`
	Links     []models.LinkRegion `json:"links,omitempty"`
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
}

func (SyncRequest) MessageType() string { return TypeSyncRequest }
func (SyncInit) MessageType() string    { return TypeSyncInit }
func (StateUpdate) MessageType() string { return TypeStateUpdate }

type syncInitFrame struct {
	Type string `json:"type"`
	SyncInit
}

type stateUpdateFrame struct {
	Type string `json:"type"`
	StateUpdate
}

// Encode serializes m with its type tag.
func Encode(m Message) ([]byte, error) {
	var v any
	switch msg := m.(type) {
	case SyncRequest:
		v = struct {
			Type string `json:"type"`
		}{TypeSyncRequest}
	case SyncInit:
		if msg.Slides == nil {
			msg.Slides = []WireSlide{}
		}
		v = syncInitFrame{Type: TypeSyncInit, SyncInit: msg}
	case StateUpdate:
		v = stateUpdateFrame{Type: TypeStateUpdate, StateUpdate: msg}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.MessageType(), err)
	}
	return data, nil
}

// Decode parses a frame produced by Encode.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	switch head.Type {
	case TypeSyncRequest:
		return SyncRequest{}, nil
	case TypeSyncInit:
		var f syncInitFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", head.Type, err)
		}
		return f.SyncInit, nil
	case TypeStateUpdate:
		var f stateUpdateFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", head.Type, err)
		}
		return f.StateUpdate, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
}
