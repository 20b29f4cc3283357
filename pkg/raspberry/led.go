package raspberry

import "github.com/warthog618/gpio"

// Led drives the status led that shows an acquired frame. It uses the
// memory mapped gpio interface, the led has no timing requirements.
type Led struct {
	pin *gpio.Pin
}

// OpenLed maps the gpio memory and configures the pin as output.
// The pin number provided is the BCM GPIO number.
func OpenLed(bcm int) (*Led, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	l := &Led{pin: gpio.NewPin(bcm)}
	l.pin.Output()
	l.pin.Low()
	return l, nil
}

// Set switches the led.
func (l *Led) Set(on bool) {
	if on {
		l.pin.High()
		return
	}
	l.pin.Low()
}

// Close switches the led off and unmaps the GPIO memory.
func (l *Led) Close() error {
	l.pin.Low()
	return gpio.Close()
}
