package app

import (
	"encoding/json"

	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/mqtt"
	"github.com/kayno/ThermorWeatherRx/pkg/weather"
)

// readPackets waits in an endless loop for completed packets, decodes
// them and publishes the measurements. Resetting the receiver after the
// packet is consumed is what re-arms it for the next preamble.
func (app *App) readPackets() {
	for p := range app.rx.C {
		frame, err := weather.Decode(p)
		if err != nil {
			debug.ErrorLog.Printf("discarding packet % X: %v", p.Data, err)
			app.rx.Reset()
			continue
		}

		debug.InfoLog.Print(frame)

		app.frames.Lock()
		app.frames.data[frame.Kind()] = frame
		app.frames.Unlock()

		app.sendMQTT(app.config.MQTT.Topic+"/"+frame.Kind(), frame)

		app.rx.Reset()
	}
}

// sendMQTT sends a frame to the mqtt broker.
func (app *App) sendMQTT(topic string, frame weather.Frame) {
	go func(t string, f weather.Frame) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, f)

		b, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, frame)
}
