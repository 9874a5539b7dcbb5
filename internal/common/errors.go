package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput is returned before any network call when arguments are unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRequestFailed marks a non-success response from the backend.
	ErrRequestFailed = errors.New("request failed")
	// ErrTransportFailure marks a request that never got a response (network, DNS, timeout).
	ErrTransportFailure = errors.New("transport failure")
	// ErrSessionExpired is returned when the backend refuses to renew the session.
	ErrSessionExpired = errors.New("session expired")
	// ErrResolutionUnavailable is used internally when the geocoding provider gives nothing usable.
	ErrResolutionUnavailable = errors.New("resolution unavailable")
	// ErrUnauthenticated is returned by session gates when nobody is logged in.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrMalformedPayload is returned when a 2xx response body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// RequestError carries a backend non-success response.
type RequestError struct {
	Status  int
	Message string
	// Body is the raw response body, kept for callers that know the error schema.
	Body []byte
}

// NewRequestError builds a RequestError from a status code and the raw body.
// An empty body falls back to a status-derived message.
func NewRequestError(status int, body []byte) *RequestError {
	msg := string(trimSpace(body))
	if msg == "" {
		msg = StatusMessage(status)
	}
	return &RequestError{Status: status, Message: msg, Body: body}
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrRequestFailed) match any RequestError.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// StatusMessage is the generic message shown when the backend sent no body.
func StatusMessage(status int) string {
	return fmt.Sprintf("Erreur %d: %s", status, http.StatusText(status))
}

// Reason extracts a message suitable for direct display from any error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}
