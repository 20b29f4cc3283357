// Package pulse classifies the period between two line edges into the
// pulse widths of the Thermor 433MHz protocol.
//
// The transmitter keys the carrier with two pulse lengths: a half bit
// period of nominally 500µs and a full bit period of nominally 1000µs.
// Everything outside the tolerance windows is noise.
package pulse

import "time"

// Width is the classification of a single period.
type Width int

const (
	// Invalid is a period outside both tolerance windows.
	Invalid Width = iota
	// Short is a half bit period (nominally 500µs).
	Short
	// Long is a full bit period (nominally 1000µs).
	Long
)

// Tolerance windows, symmetric around the nominal pulse widths.
const (
	ShortMin = 450 * time.Microsecond
	ShortMax = 550 * time.Microsecond
	LongMin  = 950 * time.Microsecond
	LongMax  = 1050 * time.Microsecond
)

// Classify returns the width of a period between two consecutive edges.
func Classify(period time.Duration) Width {
	switch {
	case period >= ShortMin && period <= ShortMax:
		return Short
	case period >= LongMin && period <= LongMax:
		return Long
	default:
		return Invalid
	}
}

// String returns the name of the width.
func (w Width) String() string {
	switch w {
	case Short:
		return "short"
	case Long:
		return "long"
	default:
		return "invalid"
	}
}
