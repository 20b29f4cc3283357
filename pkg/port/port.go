// Package port holds the event types exchanged between the gpio watcher
// and the receiver.
package port

import "time"

// EventType indicates the kind of line event.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active transition (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive transition (high to low).
	FallingEdge
	// Overflow indicates that the capture timer wrapped without seeing an
	// edge. It carries no timing information and is discarded by the
	// receiver.
	Overflow
)

// Event is a single timestamped line event.
type Event struct {
	// Timestamp indicates the time the event was detected,
	// as a monotonic duration since an arbitrary origin.
	Timestamp time.Duration
	// Type is the kind of event.
	Type EventType
}
