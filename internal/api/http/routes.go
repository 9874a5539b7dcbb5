package httpapi

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-tracker-client/internal/agent"
	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/config"
	"github.com/i474232898/weather-tracker-client/internal/geocoding"
	"github.com/i474232898/weather-tracker-client/internal/session"
	"github.com/i474232898/weather-tracker-client/internal/weather"
)

var validate = validator.New()

// waitTimeout bounds how long a locations request may wait for labels.
const waitTimeout = 15 * time.Second

// Dashboard bundles what the local JSON surface reads from and drives.
type Dashboard struct {
	Sessions     *session.Store
	Weather      *weather.Service
	Aggregator   *weather.Aggregator
	Geocoder     *geocoding.Gateway
	Conversation *agent.Conversation
	Cities       []config.City
}

// Refresh reloads every stored forecast into the aggregator.
func (d *Dashboard) Refresh(ctx context.Context) (weather.Result, error) {
	records, err := d.Weather.ListAll(ctx)
	if err != nil {
		return weather.Result{}, err
	}
	return d.Aggregator.Aggregate(records), nil
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Everything but
// the session endpoints and the city presets requires an active session.
func RegisterRoutes(app *fiber.App, d *Dashboard) {
	v1 := app.Group("/api/v1")

	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(d.sessionView())
	})

	v1.Post("/session/check", func(c *fiber.Ctx) error {
		d.Sessions.CheckSession(c.UserContext())
		return c.JSON(d.sessionView())
	})

	v1.Post("/session/login", func(c *fiber.Ctx) error {
		req, err := parseCredentials(c)
		if err != nil {
			return err
		}
		res := d.Sessions.Login(c.UserContext(), req.Email, req.Password)
		if !res.OK {
			return fiber.NewError(fiber.StatusUnauthorized, res.Reason)
		}
		return c.JSON(d.sessionView())
	})

	v1.Post("/session/register", func(c *fiber.Ctx) error {
		req, err := parseCredentials(c)
		if err != nil {
			return err
		}
		res := d.Sessions.Register(c.UserContext(), req.Email, req.Password)
		if !res.OK {
			return fiber.NewError(fiber.StatusBadRequest, res.Reason)
		}
		return c.Status(fiber.StatusCreated).JSON(d.sessionView())
	})

	v1.Post("/session/logout", func(c *fiber.Ctx) error {
		d.Sessions.Logout(c.UserContext())
		return c.JSON(d.sessionView())
	})

	v1.Get("/cities", func(c *fiber.Ctx) error {
		return c.JSON(d.Cities)
	})

	w := v1.Group("/weather", d.requireSession)

	w.Get("/locations", func(c *fiber.Ctx) error {
		if !c.QueryBool("wait") {
			return c.JSON(d.Aggregator.Current())
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), waitTimeout)
		defer cancel()
		res, err := d.Aggregator.Wait(ctx)
		if err != nil {
			log.Printf("INFO: locations returned before labels settled: %v", err)
		}
		return c.JSON(res)
	})

	w.Get("/locations/:key/dates/:date", func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("key"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location key")
		}
		q := dayQuery{Date: c.Params("date")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		res := d.Aggregator.Current()
		if _, ok := res.Location(key); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown location")
		}
		forecasts := res.ForecastsOn(key, q.Date)
		if forecasts == nil {
			forecasts = []weather.Record{}
		}
		return c.JSON(fiber.Map{
			"location":  key,
			"date":      q.Date,
			"label":     weather.DayLabel(q.Date, time.Now()),
			"forecasts": forecasts,
		})
	})

	w.Get("/range", func(c *fiber.Ctx) error {
		records, err := d.Weather.ListRange(c.UserContext(), c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"weather": records})
	})

	w.Get("/location", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("longitude"), 64)
		if errLat != nil || errLon != nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude are required")
		}
		records, err := d.Weather.ListByLocation(c.UserContext(), lat, lon)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"weather": records})
	})

	w.Post("/fetch", func(c *fiber.Ctx) error {
		var req fetchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		name, lat, lon, err := req.target(d.Cities)
		if err != nil {
			return err
		}

		res, err := d.Weather.FetchForecastDays(c.UserContext(), lat, lon, req.Days)
		if err != nil {
			return toFiberError(err)
		}
		if _, err := d.Refresh(c.UserContext()); err != nil {
			log.Printf("ERROR: refresh after fetch: %v", err)
		}
		return c.JSON(fiber.Map{
			"message": weather.Describe(name, res),
			"result":  res,
		})
	})

	w.Post("/refresh", func(c *fiber.Ctx) error {
		res, err := d.Refresh(c.UserContext())
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(res)
	})

	v1.Get("/geocode", d.requireSession, func(c *fiber.Ctx) error {
		place, ok := d.Geocoder.Geocode(c.UserContext(), c.Query("q"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no match")
		}
		return c.JSON(place)
	})

	a := v1.Group("/agent", d.requireSession)

	a.Post("/ask", func(c *fiber.Ctx) error {
		var req askRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		msgs, err := d.Conversation.Send(c.UserContext(), req.Question)
		if err != nil {
			if errors.Is(err, agent.ErrBusy) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"id": d.Conversation.ID, "messages": msgs})
	})

	a.Get("/messages", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":       d.Conversation.ID,
			"busy":     d.Conversation.Busy(),
			"messages": d.Conversation.Messages(),
		})
	})
}

func (d *Dashboard) requireSession(c *fiber.Ctx) error {
	if err := d.Sessions.Require(); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	return c.Next()
}

func (d *Dashboard) sessionView() fiber.Map {
	view := fiber.Map{"session": d.Sessions.Current()}
	if u, ok := d.Sessions.User(); ok {
		view["user"] = u
	}
	return view
}

// toFiberError maps domain errors to HTTP statuses.
func toFiberError(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrRequestFailed):
		return fiber.NewError(fiber.StatusBadGateway, common.Reason(err))
	case errors.Is(err, common.ErrTransportFailure):
		return fiber.NewError(fiber.StatusServiceUnavailable, "backend unreachable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
