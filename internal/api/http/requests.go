package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/config"
)

// credentialsRequest is the login/register body.
type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func parseCredentials(c *fiber.Ctx) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}
	return req, nil
}

// fetchRequest names either a preset city or an explicit coordinate pair.
type fetchRequest struct {
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Days      int      `json:"days" validate:"gte=0,lte=16"`
}

// target resolves the request to a display name and coordinates.
func (r fetchRequest) target(cities []config.City) (string, float64, float64, error) {
	if r.City != "" {
		city, ok := config.FindCity(cities, r.City)
		if !ok {
			return "", 0, 0, fiber.NewError(fiber.StatusNotFound, "unknown city")
		}
		return city.Name, city.Latitude, city.Longitude, nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return "", 0, 0, fiber.NewError(fiber.StatusBadRequest, "city or latitude and longitude are required")
	}
	return common.FormatCoordinates(*r.Latitude, *r.Longitude), *r.Latitude, *r.Longitude, nil
}

type askRequest struct {
	Question string `json:"question"`
}

// dayQuery is a calendar day path parameter.
type dayQuery struct {
	Date string `validate:"required,datetime=2006-01-02"`
}
