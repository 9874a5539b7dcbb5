package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tracker-client/internal/common"
)

// maxErrorBody bounds how much of a non-success body is kept for messages.
const maxErrorBody = 64 << 10

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero disables retries entirely.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// NewCircuitBreaker returns the breaker settings shared by every outbound client.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// DoWithResilience executes the request behind a circuit breaker, retrying
// transport failures, 429 and 5xx responses with exponential backoff.
//
// A 2xx response is returned open; the caller closes it. Any other status is
// read, closed and returned as a *common.RequestError. Failures where no
// response arrived wrap common.ErrTransportFailure.
func DoWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTransportFailure, ctx.Err())
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrTransportFailure, execErr)
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			reqErr := readRequestError(resp)
			// Rate limiting and server errors count against the breaker.
			if retryableStatus(resp.StatusCode) {
				return nil, reqErr
			}
			// Client errors are a valid answer from a healthy backend.
			return reqErr, nil
		})

		if err == nil {
			switch v := result.(type) {
			case *http.Response:
				return v, nil
			case *common.RequestError:
				return nil, v
			default:
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: %v", common.ErrTransportFailure, errCircuitOpen, err)
		}

		if attempt >= cfg.Backoff.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", common.ErrTransportFailure, ctx.Err())
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func readRequestError(resp *http.Response) *common.RequestError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return common.NewRequestError(resp.StatusCode, body)
}
