package thermor

import (
	"os"
	"testing"
	"time"

	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/port"
	"github.com/kayno/ThermorWeatherRx/pkg/pulse"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, 0)
	os.Exit(m.Run())
}

// newTestReceiver builds a receiver without the run goroutine, so tests
// can drive the state machine synchronously.
func newTestReceiver() *Receiver {
	r := &Receiver{C: make(chan Packet, 1)}
	r.reset()
	return r
}

func feed(r *Receiver, widths ...pulse.Width) {
	for _, w := range widths {
		r.handlePulse(w)
	}
}

func feedShorts(r *Receiver, n int) {
	for i := 0; i < n; i++ {
		r.handlePulse(pulse.Short)
	}
}

// encodeBits returns the pulse sequence carrying the given bits, for a
// decoder whose pending level currently is pending: an unchanged bit
// level is two short half periods, a changed level is one long period.
func encodeBits(pending bool, bits ...int) []pulse.Width {
	var out []pulse.Width
	for _, b := range bits {
		if v := b == 1; v != pending {
			out = append(out, pulse.Long)
			pending = v
		} else {
			out = append(out, pulse.Short, pulse.Short)
		}
	}
	return out
}

// encodeBytes expands bytes MSB first into encodeBits.
func encodeBytes(pending bool, data []byte) []pulse.Width {
	var bits []int
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int(b>>i)&1)
		}
	}
	return encodeBits(pending, bits...)
}

func TestSyncAcquisition(t *testing.T) {
	tests := []struct {
		name      string
		shorts    int
		wantState stateType
	}{
		{"no preamble", 0, idle},
		{"half preamble", 50, idle},
		{"threshold not exceeded", 100, idle},
		{"threshold exceeded", 101, receiving},
		{"generous preamble", 500, receiving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReceiver()
			feedShorts(r, tt.shorts)
			r.handlePulse(pulse.Long)

			if r.state != tt.wantState {
				t.Errorf("state after %v shorts + long = %v, want %v", tt.shorts, r.state, tt.wantState)
			}
			if r.shortCount != 0 {
				t.Errorf("shortCount = %v, want 0", r.shortCount)
			}
		})
	}
}

func TestInvalidMidPreamble(t *testing.T) {
	r := newTestReceiver()

	feedShorts(r, 50)
	r.handlePulse(pulse.Invalid)

	if r.state != idle {
		t.Fatalf("state = %v, want idle", r.state)
	}
	if r.shortCount != 0 {
		t.Fatalf("shortCount = %v, want 0", r.shortCount)
	}

	// the receiver must still lock onto the next good preamble
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)

	if r.state != receiving {
		t.Fatalf("state after new preamble = %v, want receiving", r.state)
	}
}

func TestManchesterRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		bits []int
	}{
		{"all zero", []int{0, 0, 0, 0, 0, 0, 0, 0}},
		{"all one", []int{1, 1, 1, 1, 1, 1, 1, 1}},
		{"alternating", []int{1, 0, 1, 0, 1, 0, 1, 0}},
		{"mixed", []int{1, 0, 0, 1, 1, 1, 0, 1, 0, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReceiver()
			feedShorts(r, 101)
			r.handlePulse(pulse.Long)

			feed(r, encodeBits(false, tt.bits...)...)

			if r.cursor != len(tt.bits) {
				t.Fatalf("cursor = %v, want %v", r.cursor, len(tt.bits))
			}
			for i, b := range tt.bits {
				if got := r.buf.Bit(i); got != (b == 1) {
					t.Errorf("bit %v = %v, want %v", i, got, b == 1)
				}
			}
		})
	}
}

func TestResetIdempotent(t *testing.T) {
	r := newTestReceiver()
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)
	feed(r, encodeBits(false, 1, 1, 0, 1)...)

	r.reset()
	once := *r
	r.reset()
	twice := *r

	if once != twice {
		t.Errorf("reset not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
	if r.state != idle || r.cursor != 0 || r.shortCount != 0 || r.pendingBit || r.halfSeen {
		t.Errorf("unexpected state after reset: %+v", *r)
	}
}

func TestPacketCompletion(t *testing.T) {
	r := newTestReceiver()
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)

	var bits []int
	for i := 0; i < PacketBits; i++ {
		bits = append(bits, i%2)
	}
	feed(r, encodeBits(false, bits...)...)

	// 64 bits decoded: the frame is full but completion has not
	// triggered yet, the transmitter keeps going
	if r.state != receiving {
		t.Fatalf("state after 64 bits = %v, want receiving", r.state)
	}
	if r.cursor != PacketBits {
		t.Fatalf("cursor = %v, want %v", r.cursor, PacketBits)
	}

	// the 65th decoded bit (first of the next repetition) triggers
	// completion and is not stored
	feed(r, encodeBits(false, 1)...)

	if r.state != packetReceived {
		t.Fatalf("state after 65th bit = %v, want packetReceived", r.state)
	}

	var p Packet
	select {
	case p = <-r.C:
	default:
		t.Fatal("no packet on handoff channel")
	}

	want := r.buf
	for i, b := range bits {
		if got := p.Data[i/8]&(0x80>>(i%8)) != 0; got != (b == 1) {
			t.Errorf("packet bit %v = %v, want %v", i, got, b == 1)
		}
	}

	// frozen: further pulses must not change the buffer or the cursor
	feed(r, pulse.Short, pulse.Short, pulse.Long, pulse.Invalid, pulse.Long)
	if r.buf != want {
		t.Error("buffer changed while frozen")
	}
	if r.state != packetReceived {
		t.Errorf("state = %v, want packetReceived", r.state)
	}

	r.reset()
	if r.state != idle || r.cursor != 0 {
		t.Errorf("state/cursor after reset = %v/%v, want idle/0", r.state, r.cursor)
	}
}

// TestScenarioEndToEnd drives the receiver through eventHandler with
// real edge timestamps: preamble, frame start, one known 64-bit packet
// and the first bit of its repetition.
func TestScenarioEndToEnd(t *testing.T) {
	want := [PacketBytes]byte{0x80, 0xC0, 0x44, 0x02, 0x00, 0x00, 0x02, 0x0E}

	r := newTestReceiver()

	now := time.Duration(0)
	edge := func(width time.Duration) {
		now += width
		r.eventHandler(port.Event{Timestamp: now, Type: port.RisingEdge})
	}

	widths := make([]pulse.Width, 0, 300)
	for i := 0; i < 110; i++ {
		widths = append(widths, pulse.Short)
	}
	widths = append(widths, pulse.Long)
	widths = append(widths, encodeBytes(false, want[:])...)
	widths = append(widths, encodeBits(false, 1)...) // next repetition

	for _, w := range widths {
		switch w {
		case pulse.Short:
			edge(500 * time.Microsecond)
		case pulse.Long:
			edge(1000 * time.Microsecond)
		}
	}

	// an overflow of the capture timer must not disturb anything
	r.eventHandler(port.Event{Type: port.Overflow})

	var p Packet
	select {
	case p = <-r.C:
	default:
		t.Fatal("no packet on handoff channel")
	}

	if p.Data != want {
		t.Fatalf("packet = % X, want % X", p.Data, want)
	}
	if p.StationID() != 0x80 {
		t.Errorf("station id = 0x%02X, want 0x80", p.StationID())
	}
	if p.TypeCode() != 0 {
		t.Errorf("type code = %v, want 0 (sync)", p.TypeCode())
	}
	if s := r.Stats(); s.Packets != 1 || s.Dropped != 0 || s.FramingErrors != 0 {
		t.Errorf("stats = %+v, want 1 packet", s)
	}
}

// TestDoubleLongAfterSync checks the toggle rule in isolation: two long
// periods right after frame start decode to the bits 1, 0.
func TestDoubleLongAfterSync(t *testing.T) {
	r := newTestReceiver()
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)

	feed(r, pulse.Long, pulse.Long)

	if r.cursor != 2 {
		t.Fatalf("cursor = %v, want 2", r.cursor)
	}
	if !r.buf.Bit(0) {
		t.Error("bit 0 = 0, want 1")
	}
	if r.buf.Bit(1) {
		t.Error("bit 1 = 1, want 0")
	}
}

// TestLongMidPair checks that a long period arriving while a short
// period still waits for its pair is treated as a framing error.
func TestLongMidPair(t *testing.T) {
	r := newTestReceiver()
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)
	feed(r, encodeBits(false, 1, 0)...)

	r.handlePulse(pulse.Short)
	r.handlePulse(pulse.Long)

	if r.state != idle {
		t.Errorf("state = %v, want idle", r.state)
	}
	if r.cursor != 0 || r.halfSeen {
		t.Errorf("cursor/halfSeen = %v/%v, want 0/false", r.cursor, r.halfSeen)
	}
	if s := r.Stats(); s.FramingErrors != 1 {
		t.Errorf("framing errors = %v, want 1", s.FramingErrors)
	}
}

// TestInvalidWhileReceiving checks the state table: an invalid period
// during a frame is ignored, it neither emits a bit nor resets.
func TestInvalidWhileReceiving(t *testing.T) {
	r := newTestReceiver()
	feedShorts(r, 101)
	r.handlePulse(pulse.Long)

	r.handlePulse(pulse.Short)
	r.handlePulse(pulse.Invalid)

	if r.state != receiving {
		t.Errorf("state = %v, want receiving", r.state)
	}
	if !r.halfSeen {
		t.Error("halfSeen cleared by invalid period")
	}
	if r.cursor != 0 {
		t.Errorf("cursor = %v, want 0", r.cursor)
	}
}

// TestIndicator checks that the status indicator follows sync
// acquisition and reset.
func TestIndicator(t *testing.T) {
	var led fakeIndicator
	r := &Receiver{C: make(chan Packet, 1), indicator: &led}
	r.reset()

	if led.on {
		t.Fatal("indicator on after reset")
	}

	feedShorts(r, 101)
	r.handlePulse(pulse.Long)
	if !led.on {
		t.Fatal("indicator off while receiving")
	}

	r.handlePulse(pulse.Short)
	r.handlePulse(pulse.Long) // framing error
	if led.on {
		t.Fatal("indicator on after framing reset")
	}
}

type fakeIndicator struct {
	on bool
}

func (f *fakeIndicator) Set(on bool) {
	f.on = on
}
