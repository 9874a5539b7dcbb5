package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/transport"
)

// Nominatim implements Backend against an OpenStreetMap Nominatim server.
type Nominatim struct {
	baseURL   string
	userAgent string
	language  string
	httpCfg   transport.HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

// NewNominatim builds the backend. The provider's usage policy requires an
// identifying User-Agent.
func NewNominatim(client *http.Client, baseURL, userAgent, language string) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		language:  language,
		// No retries: a failed lookup degrades to a coordinate label.
		httpCfg: transport.HTTPClientConfig{Client: client},
		circuit: transport.NewCircuitBreaker("nominatim"),
	}
}

func (n *Nominatim) Name() string {
	return "nominatim"
}

func (n *Nominatim) Search(ctx context.Context, query string) (*Match, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("q", query)
	values.Set("limit", "1")

	var payload []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := n.get(ctx, "/search", values, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}

	first := payload[0]
	lat, errLat := strconv.ParseFloat(first.Lat, 64)
	lon, errLon := strconv.ParseFloat(first.Lon, 64)
	if first.Lat == "" || first.Lon == "" || errLat != nil || errLon != nil {
		return nil, fmt.Errorf("%w: result without usable coordinates", common.ErrResolutionUnavailable)
	}

	return &Match{Latitude: lat, Longitude: lon, DisplayName: first.DisplayName}, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (*Reverse, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var payload struct {
		Address     Address `json:"address"`
		DisplayName string  `json:"display_name"`
		Error       string  `json:"error"`
	}
	if err := n.get(ctx, "/reverse", values, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", common.ErrResolutionUnavailable, payload.Error)
	}

	return &Reverse{Address: payload.Address, DisplayName: payload.DisplayName}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, values url.Values, out any) error {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", n.baseURL, path, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", n.userAgent)
		req.Header.Set("Accept-Language", n.language)
		return req, nil
	}

	resp, err := transport.DoWithResilience(ctx, n.httpCfg, n.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrResolutionUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w: %v", common.ErrResolutionUnavailable, common.ErrMalformedPayload, err)
	}
	return nil
}

// DefaultHTTPClient is used when the caller does not share one.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
