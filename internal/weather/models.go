package weather

import (
	"strconv"
)

// Record is one stored hourly forecast row as the backend returns it.
// Records are read-only once received.
type Record struct {
	ID          *int64   `json:"id,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Time        string   `json:"time"` // ISO-8601, hour granularity
	Temperature *float64 `json:"temperature"`
}

// CoordinateKey returns the "lat,lon" key records are grouped by. Each value
// uses its shortest exact decimal form, so keys match only for identical floats.
func (r Record) CoordinateKey() string {
	return CoordinateKey(r.Latitude, r.Longitude)
}

// Day returns the calendar-day prefix (YYYY-MM-DD) of the timestamp, or "".
func (r Record) Day() string {
	if len(r.Time) < 10 {
		return ""
	}
	return r.Time[:10]
}

// CoordinateKey formats a coordinate pair as a grouping key.
func CoordinateKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// Summary is the short current-conditions view returned by a fetch.
type Summary struct {
	CurrentTemp  *float64 `json:"current_temp"`
	WeatherLabel string   `json:"weather_label"`
}

// FetchResult is the backend's answer to a forecast fetch.
type FetchResult struct {
	Message   string   `json:"message"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Stored    int      `json:"stored"`
	Summary   *Summary `json:"summary"`
}

// CoordinateGroup is a bucket of records sharing one coordinate key, in
// first-seen order.
type CoordinateGroup struct {
	Key       string   `json:"key"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Forecasts []Record `json:"forecasts"`
}

// Location is one or more coordinate groups under a single label.
// Key is the resolved place name, or the coordinate key while Resolved is false.
type Location struct {
	Key         string   `json:"key"`
	Resolved    bool     `json:"resolved"`
	Coordinates []string `json:"coordinates"`
	Forecasts   []Record `json:"forecasts"`
}

// DateIndex maps a location key to its ascending distinct calendar days.
type DateIndex map[string][]string

// Result is the aggregated, navigable view of a forecast set.
type Result struct {
	Locations []Location `json:"locations"`
	Dates     DateIndex  `json:"dates"`
	// Pending counts coordinate groups still shown under a placeholder key.
	Pending int `json:"pending"`
}

// Complete reports whether every location carries a resolved label.
func (r Result) Complete() bool {
	return r.Pending == 0
}

// Location looks a location up by key.
func (r Result) Location(key string) (Location, bool) {
	for _, loc := range r.Locations {
		if loc.Key == key {
			return loc, true
		}
	}
	return Location{}, false
}

// ForecastsOn returns the location's forecasts whose timestamp falls on day.
func (r Result) ForecastsOn(key, day string) []Record {
	loc, ok := r.Location(key)
	if !ok {
		return nil
	}
	var out []Record
	for _, f := range loc.Forecasts {
		if f.Day() == day {
			out = append(out, f)
		}
	}
	return out
}
