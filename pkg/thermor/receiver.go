// Package thermor recovers the 64-bit telemetry packets of a
// Thermor/BIOS 433MHz weather station from a stream of demodulated line
// edges.
//
// The station transmits a long run of short pulses (idle carrier) as a
// preamble, a single long pulse as frame start, and then 64 bits in a
// Manchester style line code: a bit is either two short half periods of
// the unchanged level or one long period that flips the level. There is
// no separate clock and no checksum; the only recovery mechanism is a
// full reset back to preamble hunting.
package thermor

import (
	"sync/atomic"
	"time"

	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/port"
	"github.com/kayno/ThermorWeatherRx/pkg/pulse"
)

// SyncThreshold is the count of consecutive short pulses that must be
// seen before a long pulse is accepted as frame start. Too low risks
// locking onto noise, too high wastes preamble.
const SyncThreshold = 100

const (
	// idle is the preamble hunting state.
	idle stateType = iota
	// receiving is the bit decoding state.
	receiving
	// packetReceived is the frozen state between packet completion and
	// the consumer's Reset.
	packetReceived
)

// stateType represents the state of the receive process.
type stateType int

// StatusIndicator is switched on when the receiver acquires a frame and
// off on every full reset. A nil indicator is allowed.
type StatusIndicator interface {
	Set(on bool)
}

// Stats are the receive counters, readable from any goroutine.
type Stats struct {
	// Packets is the count of completed packets handed to the consumer.
	Packets uint64
	// Dropped is the count of completed packets discarded because the
	// consumer had not drained the previous one.
	Dropped uint64
	// FramingErrors is the count of mid-frame resets.
	FramingErrors uint64
}

// Receiver is the synchronization state machine and bit decoder.
// All state is owned by the run goroutine; the consumer interacts only
// through the C channel, Reset and Stats.
type Receiver struct {
	// state contains the current receive state.
	state stateType
	// shortCount is the count of consecutive short pulses while idle.
	shortCount int
	// cursor is the index of the next bit to write.
	cursor int
	// pendingBit is the bit value currently being decoded, flipped by
	// every long period.
	pendingBit bool
	// halfSeen remembers that the previous short period still waits for
	// its pair.
	halfSeen bool
	// buf collects the decoded bits of the current frame.
	buf BitBuffer

	// lastTimestamp is the time of the last edge event.
	lastTimestamp time.Duration

	indicator StatusIndicator

	packets       uint64
	dropped       uint64
	framingErrors uint64

	// C is the single slot handoff channel for completed packets.
	C chan Packet

	// rx is the channel delivering the line events.
	rx chan port.Event

	// resetc carries the consumer's reset into the run goroutine.
	resetc chan struct{}

	// quit stops the receiver, done signals that run() has stopped.
	quit chan bool
	done chan bool
}

// New initials a new receiver and starts decoding events from c.
// indicator may be nil.
func New(c chan port.Event, indicator StatusIndicator) *Receiver {
	r := &Receiver{
		C:         make(chan Packet, 1),
		rx:        c,
		resetc:    make(chan struct{}),
		quit:      make(chan bool),
		done:      make(chan bool),
		indicator: indicator,
	}

	r.reset()
	debug.InfoLog.Print("hunting for preamble")

	go r.run()
	return r
}

// Reset returns the receiver to preamble hunting. The consumer must
// call it after draining a packet from C; until then all further pulses
// are ignored and nothing is written over the completed frame.
func (r *Receiver) Reset() {
	r.resetc <- struct{}{}
}

// Stats returns the current receive counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Packets:       atomic.LoadUint64(&r.packets),
		Dropped:       atomic.LoadUint64(&r.dropped),
		FramingErrors: atomic.LoadUint64(&r.framingErrors),
	}
}

// Close stops the receiver.
func (r *Receiver) Close() error {
	r.quit <- true

	// wait until run() is terminated
	<-r.done

	close(r.C)
	close(r.quit)
	close(r.done)
	return nil
}

// run receives line events and consumer resets. It is the only
// goroutine touching the receive state, which makes the handoff to the
// consumer a plain channel send instead of a shared buffer.
func (r *Receiver) run() {
	for {
		select {
		case <-r.quit:
			r.done <- true
			return
		case <-r.resetc:
			r.reset()
		case evt, open := <-r.rx:
			if !open {
				r.quit <- true
				continue
			}

			r.eventHandler(evt)
		}
	}
}

// eventHandler turns an edge event into a classified period and feeds
// it to the state machine. Overflow events carry no edge and are
// discarded; the decode logic never looks at edge polarity, only at the
// time between edges.
func (r *Receiver) eventHandler(evt port.Event) {
	if evt.Type == port.Overflow {
		return
	}

	period := evt.Timestamp - r.lastTimestamp
	r.lastTimestamp = evt.Timestamp

	r.handlePulse(pulse.Classify(period))
}

// handlePulse advances the receive state machine by one classified
// period.
func (r *Receiver) handlePulse(w pulse.Width) {
	switch r.state {
	case idle:
		switch w {
		case pulse.Short:
			r.shortCount++
		case pulse.Long:
			if r.shortCount > SyncThreshold {
				r.shortCount = 0
				r.state = receiving
				if r.indicator != nil {
					r.indicator.Set(true)
				}
				debug.DebugLog.Print("preamble found, receiving frame")
				return
			}

			r.reset()
		default:
			r.reset()
		}

	case receiving:
		switch w {
		case pulse.Short:
			if r.halfSeen {
				// second half of a pair, the bit level is unchanged
				r.halfSeen = false
				r.emit(r.pendingBit)
				return
			}

			r.halfSeen = true
		case pulse.Long:
			if r.halfSeen {
				// a long period splitting a short pair cannot be
				// produced by the line code, resynchronize
				atomic.AddUint64(&r.framingErrors, 1)
				debug.DebugLog.Printf("long pulse inside a short pair after %v bits, hunting for preamble", r.cursor)
				r.reset()
				return
			}

			r.pendingBit = !r.pendingBit
			r.emit(r.pendingBit)
		}
		// invalid periods while receiving are ignored

	case packetReceived:
		// frozen until the consumer resets
	}
}

// emit appends one decoded bit and checks for frame completion. The
// transmitter keeps sending after the 64th bit, so completion triggers
// on the first bit past the packet length; that bit belongs to the next
// repetition and is not stored.
func (r *Receiver) emit(value bool) {
	r.buf.Set(r.cursor, value)
	r.cursor++

	if r.cursor > PacketBits {
		r.complete()
	}
}

// complete publishes the finished packet and freezes the receiver until
// the consumer resets it.
func (r *Receiver) complete() {
	r.state = packetReceived

	p := Packet{Data: r.buf}
	select {
	case r.C <- p:
		atomic.AddUint64(&r.packets, 1)
		debug.DebugLog.Printf("packet received: station 0x%02X type %v", p.StationID(), p.TypeCode())
	default:
		atomic.AddUint64(&r.dropped, 1)
		debug.ErrorLog.Print("packet dropped, consumer did not drain the previous one")
	}
}

// reset performs the full reset: counters and cursor cleared, pending
// bit zero, pair flag cleared, state idle, indicator off.
func (r *Receiver) reset() {
	r.shortCount = 0
	r.cursor = 0
	r.pendingBit = false
	r.halfSeen = false
	r.state = idle

	if r.indicator != nil {
		r.indicator.Set(false)
	}
}
