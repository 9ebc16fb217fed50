// main.go — project-tracker HTTP server
// Wires up the SQLite visit store, geolocation client, Echo middleware, and
// the track/stats API routes. All settings come from environment variables.
package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alley-rs/project-tracker/tracker"
)

func main() {
	cfg := loadConfig()

	store, err := tracker.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	geo := tracker.NewGeolocator(cfg.GeoAPIURL)
	handler := tracker.NewHandler(store, geo, cfg.TrackRateLimit)

	e := echo.New()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORS())

	handler.RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := e.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
