// Package raspberry watches the gpio pin wired to the 433MHz receiver
// module and converts kernel line events into port events.
package raspberry

import (
	"fmt"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/port"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// eventBuffer is the capacity of the line event channel. The decoder
// keeps up with the nominal 500µs pulse rate, the buffer only absorbs
// scheduling jitter.
const eventBuffer = 256

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
	// C delivers the edge events of the line.
	C chan port.Event
}

// Open opens the GPIO character device.
func Open() (*Chip, error) {
	c, err := gpiod.NewChip("gpiochip0")
	chip := Chip{gpiodChip: c}
	return &chip, err
}

// NewLine requests control of a single line on a chip and watches it
// for edges on both directions. If granted, control is maintained until
// the Line is closed. There can only be one watcher on the line at a
// time.
//
// The kernel timestamps every event, so the latency of the handler does
// not distort the measured pulse widths. A full event channel means the
// consumer stalled for many pulse periods; those events are dropped and
// the decoder resynchronizes on the next preamble.
func (c *Chip) NewLine(gpio int, terminator string) (*Line, error) {
	var err error

	line := &Line{
		C: make(chan port.Event, eventBuffer),
	}

	handler := func(evt gpiod.LineEvent) {
		var t port.EventType

		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			t = port.RisingEdge
		case gpiod.LineEventFallingEdge:
			t = port.FallingEdge
		default:
			debug.ErrorLog.Printf("invalid line event type: %v", evt.Type)
			return
		}

		select {
		case line.C <- port.Event{Timestamp: time.Duration(evt.Timestamp), Type: t}:
		default:
			debug.TraceLog.Print("line event dropped, channel full")
		}
	}

	switch terminator {
	case "pullup":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		return nil, ErrInvalidParam
	}

	return line, err
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be
// closed independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to
// return, so Close must not be called from the context of the event
// handler.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	close(l.C)
	return nil
}
