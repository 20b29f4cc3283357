package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"github.com/kayno/ThermorWeatherRx/pkg/weather"
)

// runWebServer starts the applications web server and listens for web
// requests. It's designed to run in a separate go function to not block
// the main go function, see app.Run().
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData is the web handler returning the last decoded measurement
// of every frame kind.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		app.frames.RLock()
		data := make(map[string]weather.Frame, len(app.frames.data))
		for k, f := range app.frames.data {
			data[k] = f
		}
		app.frames.RUnlock()

		return ctx.JSON(data)
	}
}
