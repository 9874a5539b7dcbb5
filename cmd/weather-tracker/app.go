package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/i474232898/weather-tracker-client/internal/agent"
	"github.com/i474232898/weather-tracker-client/internal/config"
	"github.com/i474232898/weather-tracker-client/internal/geocoding"
	"github.com/i474232898/weather-tracker-client/internal/session"
	"github.com/i474232898/weather-tracker-client/internal/store"
	"github.com/i474232898/weather-tracker-client/internal/transport"
	"github.com/i474232898/weather-tracker-client/internal/weather"
)

const userAgent = "weather-tracker/1.0"

// app holds the services every command shares. One process owns one
// credential jar, so each command starts from an unknown session.
type app struct {
	cfg        *config.AppConfig
	sessions   *session.Store
	weather    *weather.Service
	gateway    *geocoding.Gateway
	aggregator *weather.Aggregator
	labels     *store.LabelStore
	channel    *agent.Channel
}

func newApp(cfg *config.AppConfig) (*app, error) {
	client, err := transport.New(transport.Config{
		BaseURL:   cfg.APIURL,
		APIKey:    cfg.APIKey,
		UserAgent: userAgent,
		Timeout:   cfg.HTTPTimeout,
		Backoff: transport.BackoffConfig{
			MaxRetries:      cfg.BackendMaxRetries,
			InitialInterval: cfg.BackendRetryInterval,
			MaxInterval:     cfg.BackendRetryMaxInterval,
		},
	})
	if err != nil {
		return nil, err
	}

	var backend geocoding.Backend
	if cfg.GeocoderAPIKey != "" {
		backend = geocoding.NewGoogle(cfg.GeocoderAPIKey)
	} else {
		backend = geocoding.NewNominatim(geocoding.DefaultHTTPClient(), cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderLanguage)
	}
	gateway := geocoding.NewGateway(backend)
	labels := store.NewLabelStore(cfg.LabelCacheMaxEntries, cfg.LabelCacheMaxAge)

	return &app{
		cfg:        cfg,
		sessions:   session.New(client, cfg.SessionRefreshInterval),
		weather:    weather.NewService(client),
		gateway:    gateway,
		aggregator: weather.NewAggregator(gateway, labels, cfg.GeocoderInterval),
		labels:     labels,
		channel:    agent.NewChannel(client),
	}, nil
}

func (a *app) Close() {
	a.aggregator.Close()
	a.sessions.Close()
}

// ensureSession reuses the ambient session if there is one, otherwise logs
// in with the configured identity.
func (a *app) ensureSession(ctx context.Context) error {
	if a.sessions.CheckSession(ctx).Authenticated() {
		return nil
	}
	if a.cfg.Identity == "" || a.cfg.Secret == "" {
		return fmt.Errorf("not logged in: set WEATHER_IDENTITY and WEATHER_SECRET")
	}
	if res := a.sessions.Login(ctx, a.cfg.Identity, a.cfg.Secret); !res.OK {
		return fmt.Errorf("%s", res.Reason)
	}
	return nil
}

// prompt reads one trimmed line from stdin.
func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
