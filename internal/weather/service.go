package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-tracker-client/internal/common"
)

var validate = validator.New()

// coordinates holds a coordinate pair for validation.
type coordinates struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

// dateRange holds the bounds of a range query.
type dateRange struct {
	Start string `validate:"required"`
	End   string `validate:"required"`
}

// Service is the command surface for forecast operations on the backend.
// Backend non-success surfaces as *common.RequestError; nothing is retried.
type Service struct {
	api backend
}

// NewService creates a new Service.
func NewService(api backend) *Service {
	return &Service{api: api}
}

// FetchForecast asks the backend to retrieve and store forecasts for a
// coordinate pair. Invalid coordinates fail before any request is made.
func (s *Service) FetchForecast(ctx context.Context, lat, lon float64) (FetchResult, error) {
	return s.FetchForecastDays(ctx, lat, lon, 0)
}

// FetchForecastDays is FetchForecast with an explicit horizon of 1 to 16
// days; zero leaves the backend default.
func (s *Service) FetchForecastDays(ctx context.Context, lat, lon float64, days int) (FetchResult, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return FetchResult{}, err
	}
	if days < 0 || days > 16 {
		return FetchResult{}, fmt.Errorf("%w: forecast days must be between 1 and 16", common.ErrInvalidInput)
	}

	q := coordinateQuery(lat, lon)
	if days > 0 {
		q.Set("forecast_days", strconv.Itoa(days))
	}

	var res FetchResult
	if err := s.api.Get(ctx, "/weather/fetch", q, &res); err != nil {
		if errors.Is(err, common.ErrMalformedPayload) {
			log.Printf("INFO: fetch %s: unreadable summary: %v", CoordinateKey(lat, lon), err)
			return FetchResult{Latitude: lat, Longitude: lon}, nil
		}
		return FetchResult{}, fmt.Errorf("fetch forecast: %w", err)
	}
	return res, nil
}

// ListAll returns every stored forecast record. An empty or malformed
// payload yields an empty slice.
func (s *Service) ListAll(ctx context.Context) ([]Record, error) {
	return s.list(ctx, "/weather/", nil)
}

// ListByLocation returns the stored records for one coordinate pair.
func (s *Service) ListByLocation(ctx context.Context, lat, lon float64) ([]Record, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return s.list(ctx, "/weather/location", coordinateQuery(lat, lon))
}

// ListRange returns the stored records whose timestamps fall in [start, end].
func (s *Service) ListRange(ctx context.Context, start, end string) ([]Record, error) {
	if err := validate.Struct(dateRange{Start: start, End: end}); err != nil {
		return nil, fmt.Errorf("%w: start and end dates are required", common.ErrInvalidInput)
	}
	q := url.Values{}
	q.Set("start_date", start)
	q.Set("end_date", end)
	return s.list(ctx, "/weather/range", q)
}

func (s *Service) list(ctx context.Context, path string, q url.Values) ([]Record, error) {
	var payload struct {
		Weather json.RawMessage `json:"weather"`
	}
	if err := s.api.Get(ctx, path, q, &payload); err != nil {
		if errors.Is(err, common.ErrMalformedPayload) {
			log.Printf("INFO: %s: %v", path, err)
			return []Record{}, nil
		}
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return decodeRecords(payload.Weather), nil
}

// decodeRecords keeps every row that decodes and skips the rest.
func decodeRecords(raw json.RawMessage) []Record {
	records := []Record{}
	if len(raw) == 0 {
		return records
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return records
	}

	for _, row := range rows {
		var r Record
		if err := json.Unmarshal(row, &r); err != nil {
			log.Printf("DEBUG: skipping unreadable forecast row: %v", err)
			continue
		}
		records = append(records, r)
	}
	return records
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: latitude and longitude must be finite numbers", common.ErrInvalidInput)
	}
	if err := validate.Struct(coordinates{Latitude: lat, Longitude: lon}); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return nil
}

func coordinateQuery(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}
