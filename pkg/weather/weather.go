// Package weather decodes the completed packets of the receiver into
// typed measurement frames. The payload layout is owned entirely by
// this consumer side, the receiver only reconstructs the 64 bits.
package weather

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/kayno/ThermorWeatherRx/pkg/thermor"
)

var (
	ErrInvalidTemperature = errors.New("implausible temperature")
	ErrInvalidWindSpeed   = errors.New("implausible wind speed")
)

// packet type codes, the low nibble of byte 1
const (
	syncPacket = 0x0
	tempPacket = 0x1
	windPacket = 0x2
	rainPacket = 0x3
)

// plausibility limits for the outdoor sensors
const (
	tMax     = 70
	tMin     = -40
	windVMax = 200
)

// directionNames are the 16 compass sectors of the wind vane.
var directionNames = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Frame is one decoded measurement.
type Frame interface {
	fmt.Stringer
	// Kind is the short frame name, used as mqtt subtopic and as key of
	// the web data endpoint.
	Kind() string
}

// SyncFrame announces that a station (re)started transmitting.
type SyncFrame struct {
	TimeStamp time.Time
	StationID byte
}

// TempFrame is an outdoor temperature measurement.
type TempFrame struct {
	TimeStamp   time.Time
	StationID   byte
	Temperature float64
}

// WindFrame is a wind speed and direction measurement.
type WindFrame struct {
	TimeStamp time.Time
	StationID byte
	// Speed in km/h.
	Speed float64
	// Direction is the compass sector name of the wind vane.
	Direction string
}

// RainFrame is the tip counter of the rain gauge.
type RainFrame struct {
	TimeStamp time.Time
	StationID byte
	Tips      uint16
}

// RawFrame carries a packet of unrecognized type.
type RawFrame struct {
	TimeStamp time.Time
	StationID byte
	TypeCode  byte
	Payload   []byte
}

// Decode converts a received packet into its typed frame.
// Unrecognized packet types decode to a RawFrame; implausible sensor
// values are reported as errors so the consumer can discard RF noise
// that survived the framing (the protocol has no checksum).
func Decode(p thermor.Packet) (Frame, error) {
	now := time.Now()
	payload := p.Payload()

	switch p.TypeCode() {
	case syncPacket:
		return SyncFrame{TimeStamp: now, StationID: p.StationID()}, nil

	case tempPacket:
		// whole degrees as signed byte, tenths as digit
		whole := float64(int8(payload[0]))
		tenth := float64(payload[1]) / 10

		if payload[1] > 9 {
			return nil, ErrInvalidTemperature
		}

		t := whole + tenth
		if whole < 0 {
			t = whole - tenth
		}
		if t > tMax || t < tMin {
			return nil, ErrInvalidTemperature
		}

		return TempFrame{TimeStamp: now, StationID: p.StationID(), Temperature: t}, nil

	case windPacket:
		v := float64(payload[0])
		if v > windVMax {
			return nil, ErrInvalidWindSpeed
		}

		return WindFrame{
			TimeStamp: now,
			StationID: p.StationID(),
			Speed:     v,
			Direction: directionNames[payload[1]&0x0f],
		}, nil

	case rainPacket:
		return RainFrame{
			TimeStamp: now,
			StationID: p.StationID(),
			Tips:      binary.BigEndian.Uint16(payload[0:2]),
		}, nil
	}

	return RawFrame{
		TimeStamp: now,
		StationID: p.StationID(),
		TypeCode:  p.TypeCode(),
		Payload:   append([]byte(nil), payload...),
	}, nil
}

func (f SyncFrame) Kind() string { return "sync" }
func (f SyncFrame) String() string {
	return fmt.Sprintf("SYNC station 0x%02X", f.StationID)
}

func (f TempFrame) Kind() string { return "temperature" }
func (f TempFrame) String() string {
	return fmt.Sprintf("TEMP station 0x%02X %.1fC", f.StationID, f.Temperature)
}

func (f WindFrame) Kind() string { return "wind" }
func (f WindFrame) String() string {
	return fmt.Sprintf("WIND station 0x%02X %.0f km/h %s", f.StationID, f.Speed, f.Direction)
}

func (f RainFrame) Kind() string { return "rain" }
func (f RainFrame) String() string {
	return fmt.Sprintf("RAIN station 0x%02X %d tips", f.StationID, f.Tips)
}

func (f RawFrame) Kind() string { return "raw" }
func (f RawFrame) String() string {
	return fmt.Sprintf("UNKNOWN station 0x%02X type %d payload % X", f.StationID, f.TypeCode, f.Payload)
}
