package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-tracker-client/internal/agent"
	httpapi "github.com/i474232898/weather-tracker-client/internal/api/http"
	"github.com/i474232898/weather-tracker-client/internal/scheduler"
	"github.com/i474232898/weather-tracker-client/internal/session"
	"github.com/i474232898/weather-tracker-client/internal/weather"
)

// cityRefreshTimeout bounds one scheduled refresh of every preset city.
const cityRefreshTimeout = 5 * time.Minute

func cmdServe(a *app) error {
	dashboard := &httpapi.Dashboard{
		Sessions:     a.sessions,
		Weather:      a.weather,
		Aggregator:   a.aggregator,
		Geocoder:     a.gateway,
		Conversation: agent.NewConversation(a.channel),
		Cities:       a.cfg.Cities,
	}

	a.aggregator.OnUpdate(func(res weather.Result) {
		log.Printf("DEBUG: locations updated: %d shown, %d pending", len(res.Locations), res.Pending)
	})

	// Load the forecast view whenever a session starts.
	a.sessions.Subscribe(func(s session.Session) {
		if !s.Authenticated() {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout)
			defer cancel()
			if _, err := dashboard.Refresh(ctx); err != nil {
				log.Printf("ERROR: loading forecasts: %v", err)
			}
		}()
	})

	startCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout)
	if a.cfg.Identity != "" && a.cfg.Secret != "" {
		if err := a.ensureSession(startCtx); err != nil {
			log.Printf("INFO: starting without a session: %v", err)
		}
	} else {
		a.sessions.CheckSession(startCtx)
	}
	cancel()

	// Scheduler that periodically fetches preset cities.
	if a.cfg.FetchInterval > 0 {
		sched := scheduler.New("city-refresh", a.cfg.FetchInterval, func() { refreshCities(a, dashboard) })
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-tracker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-tracker",
			"session": a.sessions.Current().Status,
			"labels":  a.labels.Len(),
		})
	})

	httpapi.RegisterRoutes(app, dashboard)

	go func() {
		log.Printf("INFO: dashboard listening on :%s", a.cfg.Port)
		if err := app.Listen(":" + a.cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	return app.ShutdownWithContext(shutdownCtx)
}

// refreshCities fetches every preset city, then reloads the view. It skips
// the run while nobody is logged in.
func refreshCities(a *app, dashboard *httpapi.Dashboard) {
	if a.sessions.Require() != nil {
		log.Printf("DEBUG: city refresh skipped: no session")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cityRefreshTimeout)
	defer cancel()

	for _, city := range a.cfg.Cities {
		res, err := a.weather.FetchForecast(ctx, city.Latitude, city.Longitude)
		if err != nil {
			log.Printf("ERROR: fetch %s: %v", city.Name, err)
			continue
		}
		log.Printf("INFO: %s", weather.Describe(city.Name, res))
	}

	if _, err := dashboard.Refresh(ctx); err != nil {
		log.Printf("ERROR: reloading forecasts: %v", err)
	}
}
