package geocoding

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/i474232898/weather-tracker-client/internal/common"
)

// minQueryLength is the shortest free-text query worth sending to the provider.
const minQueryLength = 2

// Place is a forward-geocoding hit.
type Place struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// Address holds the locality fields a reverse lookup may return.
type Address struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
}

// Match is a provider's raw answer to a free-text search.
type Match struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// Reverse is a provider's raw answer to a coordinate lookup.
type Reverse struct {
	Address     Address
	DisplayName string
}

// Backend abstracts a geocoding provider (Nominatim, Google).
// Search returns nil, nil when nothing matched.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string) (*Match, error)
	Reverse(ctx context.Context, lat, lon float64) (*Reverse, error)
}

// Gateway gives failure-tolerant access to a Backend: lookups never return
// errors, they degrade to "absent" or to a coordinate label.
type Gateway struct {
	backend Backend
}

// NewGateway wraps backend. Callers pace batches of lookups with a Throttle.
func NewGateway(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// Geocode resolves free text to coordinates. Queries shorter than two
// characters are answered without contacting the provider.
func (g *Gateway) Geocode(ctx context.Context, query string) (Place, bool) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minQueryLength {
		return Place{}, false
	}

	m, err := g.backend.Search(ctx, q)
	if err != nil {
		log.Printf("INFO: geocode %q via %s: %v", q, g.backend.Name(), err)
		return Place{}, false
	}
	if m == nil {
		return Place{}, false
	}

	label := common.FirstSegment(m.DisplayName)
	if label == "" {
		label = q
	}
	return Place{Latitude: m.Latitude, Longitude: m.Longitude, Label: label}, true
}

// ReverseGeocode returns the best human label for a coordinate pair, falling
// back to the formatted coordinates.
func (g *Gateway) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	r, err := g.backend.Reverse(ctx, lat, lon)
	if err != nil {
		log.Printf("INFO: reverse geocode %s via %s: %v", common.FormatCoordinates(lat, lon), g.backend.Name(), err)
		return common.FormatCoordinates(lat, lon)
	}
	return Label(r, lat, lon)
}

// Label applies the locality precedence: city, town, village, municipality,
// county, first segment of the display name, then the coordinates.
func Label(r *Reverse, lat, lon float64) string {
	if r == nil {
		return common.FormatCoordinates(lat, lon)
	}
	a := r.Address
	if label := common.FirstNonEmpty(a.City, a.Town, a.Village, a.Municipality, a.County, common.FirstSegment(r.DisplayName)); label != "" {
		return label
	}
	return common.FormatCoordinates(lat, lon)
}
