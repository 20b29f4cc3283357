package app

import (
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/app/config"
	"github.com/kayno/ThermorWeatherRx/pkg/mqtt"
	"github.com/kayno/ThermorWeatherRx/pkg/raspberry"
	"github.com/kayno/ThermorWeatherRx/pkg/thermor"
	"github.com/kayno/ThermorWeatherRx/pkg/weather"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Webserver.URL parameter
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// chip is the handler to the gpio character device
	chip *raspberry.Chip

	// line is the watched gpio line of the 433MHz receiver module
	line *raspberry.Line

	// led is the frame status led (nil if disabled)
	led *raspberry.Led

	// rx is the thermor packet receiver
	rx *thermor.Receiver

	// frames holds the last decoded measurement per frame kind
	frames struct {
		sync.RWMutex
		data map[string]weather.Frame
	}
}

// New checks the web server URL and initializes the main app structure.
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	app := &App{
		config:    config,
		urlParsed: u,
		web:       fiber.New(),
		mqtt:      mqtt.New(),
	}
	app.frames.data = map[string]weather.Frame{}

	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.readPackets()

	return nil
}

// init opens the gpio resources, starts the receiver and connects to
// the mqtt broker.
func (app *App) init() (err error) {
	if app.chip, err = raspberry.Open(); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	if app.line, err = app.chip.NewLine(app.config.Gpio, app.config.Terminator); err != nil {
		debug.ErrorLog.Printf("can't watch line %v: %v", app.config.Gpio, err)
		return err
	}

	if app.config.Led >= 0 {
		if app.led, err = raspberry.OpenLed(app.config.Led); err != nil {
			debug.ErrorLog.Printf("can't open status led %v: %v", app.config.Led, err)
			return err
		}
	}

	// a nil led is a valid (dark) indicator
	var indicator thermor.StatusIndicator
	if app.led != nil {
		indicator = app.led
	}
	app.rx = thermor.New(app.line.C, indicator)

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker: %v", err)
		return err
	}

	// initDefaultRoutes should always be called last because it may
	// access things which must be initialized before
	app.initDefaultRoutes()

	return nil
}

func (app *App) Close() error {
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.rx != nil {
		_ = app.rx.Close()
	}
	if app.line != nil {
		_ = app.line.Close()
	}
	if app.chip != nil {
		_ = app.chip.Close()
	}
	if app.led != nil {
		_ = app.led.Close()
	}
	return nil
}
