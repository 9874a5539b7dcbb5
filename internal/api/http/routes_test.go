package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-tracker-client/internal/agent"
	"github.com/i474232898/weather-tracker-client/internal/config"
	"github.com/i474232898/weather-tracker-client/internal/geocoding"
	"github.com/i474232898/weather-tracker-client/internal/session"
	"github.com/i474232898/weather-tracker-client/internal/transport"
	"github.com/i474232898/weather-tracker-client/internal/weather"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Name() string { return "fake" }

func (fakeGeocoder) Search(_ context.Context, q string) (*geocoding.Match, error) {
	if q != "Paris" {
		return nil, nil
	}
	return &geocoding.Match{Latitude: 48.8566, Longitude: 2.3522, DisplayName: "Paris, Île-de-France, France"}, nil
}

func (fakeGeocoder) Reverse(_ context.Context, lat, lon float64) (*geocoding.Reverse, error) {
	if lat > 46 {
		return &geocoding.Reverse{Address: geocoding.Address{City: "Paris"}}, nil
	}
	return &geocoding.Reverse{Address: geocoding.Address{Town: "Lyon"}}, nil
}

// newBackend fakes the REST API: cookie auth, stored forecasts and the agent.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(r *http.Request) bool {
		c, err := r.Cookie("access_token")
		return err == nil && c.Value == "ok"
	}

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Email ou mot de passe incorrect"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "ok", Path: "/"})
		_, _ = w.Write([]byte(`{"message":"ok","user":{"id":1,"email":"` + body.Email + `","is_active":true}}`))
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1})
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/weather/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"weather":[
			{"id":1,"latitude":48.8566,"longitude":2.3522,"time":"2024-01-01T10:00","temperature":5},
			{"id":2,"latitude":48.8566,"longitude":2.3522,"time":"2024-01-02T10:00","temperature":6},
			{"id":3,"latitude":45.764,"longitude":4.8357,"time":"2024-01-01T10:00","temperature":7}
		]}`))
	})
	mux.HandleFunc("/weather/location", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "45.764" {
			_, _ = w.Write([]byte(`{"weather":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"weather":[{"id":3,"latitude":45.764,"longitude":4.8357,"time":"2024-01-01T10:00","temperature":7}]}`))
	})
	mux.HandleFunc("/weather/fetch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok","stored":24,"summary":{"current_temp":14.2,"weather_label":"Nuageux"}}`))
	})
	mux.HandleFunc("/agent/ask", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"18°C, ensoleillé"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*fiber.App, *Dashboard) {
	t.Helper()
	srv := newBackend(t)
	client, err := transport.New(transport.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	sessions := session.New(client, time.Hour)
	t.Cleanup(sessions.Close)

	gateway := geocoding.NewGateway(fakeGeocoder{})
	aggregator := weather.NewAggregator(gateway, nil, 0)
	t.Cleanup(aggregator.Close)

	d := &Dashboard{
		Sessions:     sessions,
		Weather:      weather.NewService(client),
		Aggregator:   aggregator,
		Geocoder:     gateway,
		Conversation: agent.NewConversation(agent.NewChannel(client)),
		Cities:       config.DefaultCities,
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, d)
	return app, d
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App) {
	t.Helper()
	status, _ := call(t, app, http.MethodPost, "/api/v1/session/login", map[string]string{"email": "a@b.fr", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
}

func TestGatedRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t)

	gated := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/weather/locations"},
		{http.MethodPost, "/api/v1/weather/refresh"},
		{http.MethodPost, "/api/v1/weather/fetch"},
		{http.MethodGet, "/api/v1/geocode?q=Paris"},
		{http.MethodPost, "/api/v1/agent/ask"},
		{http.MethodGet, "/api/v1/agent/messages"},
	}
	for _, g := range gated {
		status, body := call(t, app, g.method, g.path, nil)
		assert.Equal(t, http.StatusUnauthorized, status, g.path)
		assert.Equal(t, true, body["error"], g.path)
	}

	status, _ := call(t, app, http.MethodGet, "/api/v1/cities", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSessionLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "unknown", body["session"].(map[string]any)["status"])

	status, body = call(t, app, http.MethodPost, "/api/v1/session/login", map[string]string{"email": "a@b.fr", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Email ou mot de passe incorrect", body["message"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/session/login", map[string]string{"email": "", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/api/v1/session/login", map[string]string{"email": "a@b.fr", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	sess := body["session"].(map[string]any)
	assert.Equal(t, "authenticated", sess["status"])
	assert.Equal(t, "a@b.fr", sess["identity"])
	assert.Equal(t, "a@b.fr", body["user"].(map[string]any)["email"])

	status, body = call(t, app, http.MethodPost, "/api/v1/session/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body["session"].(map[string]any)["status"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/weather/locations", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshAndBrowseLocations(t *testing.T) {
	app, _ := newTestApp(t)
	login(t, app)

	status, _ := call(t, app, http.MethodPost, "/api/v1/weather/refresh", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, "/api/v1/weather/locations?wait=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["pending"])
	locations := body["locations"].([]any)
	require.Len(t, locations, 2)
	assert.Equal(t, "Paris", locations[0].(map[string]any)["key"])
	assert.Equal(t, "Lyon", locations[1].(map[string]any)["key"])
	assert.Equal(t, []any{"2024-01-01", "2024-01-02"}, body["dates"].(map[string]any)["Paris"])

	status, body = call(t, app, http.MethodGet, "/api/v1/weather/locations/Paris/dates/2024-01-02", nil)
	require.Equal(t, http.StatusOK, status)
	forecasts := body["forecasts"].([]any)
	require.Len(t, forecasts, 1)
	assert.Equal(t, float64(6), forecasts[0].(map[string]any)["temperature"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/weather/locations/Paris/dates/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = call(t, app, http.MethodGet, "/api/v1/weather/locations/Nice/dates/2024-01-02", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFetchForecast(t *testing.T) {
	app, _ := newTestApp(t)
	login(t, app)

	status, body := call(t, app, http.MethodPost, "/api/v1/weather/fetch", map[string]any{"city": "lyon"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Lyon : 14°C, Nuageux. Prévisions enregistrées.", body["message"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/weather/fetch", map[string]any{"city": "Atlantis"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/weather/fetch", map[string]any{"latitude": 100, "longitude": 2})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/weather/fetch", map[string]any{"latitude": 48.1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/weather/fetch", map[string]any{"city": "Paris", "days": 30})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGeocode(t *testing.T) {
	app, _ := newTestApp(t)
	login(t, app)

	status, body := call(t, app, http.MethodGet, "/api/v1/geocode?q=Paris", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Paris", body["label"])
	assert.Equal(t, 48.8566, body["latitude"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/geocode?q=P", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAgentAsk(t *testing.T) {
	app, d := newTestApp(t)
	login(t, app)

	status, body := call(t, app, http.MethodPost, "/api/v1/agent/ask", map[string]string{"question": "Quel temps à Paris ?"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, d.Conversation.ID, body["id"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "18°C, ensoleillé", msgs[1].(map[string]any)["content"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/agent/ask", map[string]string{"question": " "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodGet, "/api/v1/agent/messages", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"].([]any), 2)
}

func TestListByLocation(t *testing.T) {
	app, _ := newTestApp(t)
	login(t, app)

	status, body := call(t, app, http.MethodGet, "/api/v1/weather/location?latitude=45.764&longitude=4.8357", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["weather"].([]any), 1)

	status, _ = call(t, app, http.MethodGet, "/api/v1/weather/location?latitude=north", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/weather/location?latitude=95&longitude=0", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
