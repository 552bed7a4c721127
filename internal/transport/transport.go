// SPDX-License-Identifier: MIT
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// RowMessage carries the newest waterfall row to remote viewers, with the
// tuner state so they can draw their own overlay.
type RowMessage struct {
	Type       string         `json:"type"`
	Row        uint64         `json:"row"`
	Width      int            `json:"width"`
	Pixels     []uint32       `json:"pixels"` // ARGB
	MaxHz      float64        `json:"maxHz"`
	TuneHz     float64        `json:"tuneHz"`
	PassbandHz float64        `json:"passbandHz"`
	LevelDB    float64        `json:"levelDb"`
	Overlay    []OverlayRect  `json:"overlay,omitempty"`
	Labels     []OverlayLabel `json:"labels,omitempty"`
}

// RowMessageType is the Type of every RowMessage.
const RowMessageType = "row"

// OverlayRect is a rectangle primitive in frame pixel coordinates.
type OverlayRect struct {
	Kind  string `json:"kind"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	Color uint32 `json:"color"` // ARGB, non-premultiplied
}

// OverlayLabel is a text primitive anchored at its top-left pixel.
type OverlayLabel struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Text string `json:"text"`
}

// Multi fans a message out to several transports. Send and Close visit
// every transport and join the errors.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
