package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/scheduler"
)

var validate = validator.New()

// renewTimeout bounds a single background renewal call.
const renewTimeout = 30 * time.Second

// Store owns the session state and its renewal timer. Only its own methods
// and the timer callback mutate the state.
//
// Concurrent Login/Refresh calls and the renewal job are not serialized:
// whichever response settles last decides the state.
type Store struct {
	api     backend
	renewer timer

	mu        sync.RWMutex
	session   Session
	user      *User
	listeners []func(Session)
}

// New creates a store in the Unknown state. refreshInterval must be shorter
// than the server-side credential lifetime.
func New(api backend, refreshInterval time.Duration) *Store {
	s := &Store{api: api}
	s.renewer = scheduler.New("session-refresh", refreshInterval, s.renew)
	return s
}

// Current returns a copy of the session state.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// User returns the last profile the backend sent, if any.
func (s *Store) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Require returns common.ErrUnauthenticated unless a session is active.
func (s *Store) Require() error {
	if !s.Current().Authenticated() {
		return common.ErrUnauthenticated
	}
	return nil
}

// Subscribe registers fn to be called after every state change. A renewal
// that keeps the same identity does not notify.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// CheckSession asks the backend who the ambient credentials belong to.
// Any failure resolves to an anonymous session.
func (s *Store) CheckSession(ctx context.Context) Session {
	s.mu.Lock()
	if s.session.Status == StatusUnknown {
		s.session.Status = StatusAuthenticating
	}
	s.mu.Unlock()

	var payload authPayload
	if err := s.api.Get(ctx, "/auth/me", nil, &payload); err != nil {
		log.Printf("INFO: session check: %v", err)
		s.setAnonymous()
		return s.Current()
	}

	u, ok := payload.user()
	if !ok {
		log.Printf("INFO: session check: response carried no identity")
		s.setAnonymous()
		return s.Current()
	}

	s.setAuthenticated(u)
	return s.Current()
}

// Login submits credentials. On failure the existing session is left untouched.
func (s *Store) Login(ctx context.Context, identity, secret string) Result {
	return s.authenticate(ctx, "/auth/login", identity, secret, "Login failed")
}

// Register creates an account and logs into it.
func (s *Store) Register(ctx context.Context, identity, secret string) Result {
	return s.authenticate(ctx, "/auth/register", identity, secret, "Registration failed")
}

func (s *Store) authenticate(ctx context.Context, path, identity, secret, fallback string) Result {
	creds := credentials{Email: identity, Password: secret}
	if err := validate.Struct(creds); err != nil {
		return Result{Reason: "identity and secret are required"}
	}

	var payload authPayload
	if err := s.api.Post(ctx, path, creds, &payload); err != nil {
		return Result{Reason: failureReason(err, fallback)}
	}

	u, ok := payload.user()
	if !ok {
		return Result{Reason: fallback}
	}

	s.setAuthenticated(u)
	return Result{OK: true}
}

// Logout asks the backend to drop the credentials, then clears the session
// whether or not that request succeeded.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Post(ctx, "/auth/logout", nil, nil); err != nil {
		log.Printf("ERROR: logout request failed: %v", err)
	}
	s.setAnonymous()
}

// Refresh renews the credentials. A failure wraps common.ErrSessionExpired and
// leaves the state alone; the caller decides to force a logout.
func (s *Store) Refresh(ctx context.Context) error {
	var payload authPayload
	if err := s.api.Post(ctx, "/auth/refresh", nil, &payload); err != nil {
		return fmt.Errorf("%w: %w", common.ErrSessionExpired, err)
	}

	u, ok := payload.user()
	if !ok {
		return fmt.Errorf("%w: refresh response carried no identity", common.ErrSessionExpired)
	}

	s.setAuthenticated(u)
	return nil
}

// Close stops the renewal timer.
func (s *Store) Close() {
	s.renewer.Stop()
}

// renew is the timer callback.
func (s *Store) renew() {
	ctx, cancel := context.WithTimeout(context.Background(), renewTimeout)
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		log.Printf("ERROR: session auto-refresh failed, logging out: %v", err)
		s.expire()
	}
}

// expire forces an authenticated session to anonymous. It is a no-op once the
// session already left the authenticated state.
func (s *Store) expire() {
	s.mu.RLock()
	authenticated := s.session.Status == StatusAuthenticated
	s.mu.RUnlock()

	if authenticated {
		s.setAnonymous()
	}
}

func (s *Store) setAuthenticated(u *User) {
	s.mu.Lock()
	previous := s.session
	s.session = Session{Identity: u.Email, Status: StatusAuthenticated}
	s.user = u
	if previous.Status != StatusAuthenticated {
		if err := s.renewer.Start(); err != nil {
			log.Printf("ERROR: starting session renewal: %v", err)
		}
	}
	current, listeners := s.session, s.listeners
	s.mu.Unlock()

	// Renewals that keep the same identity are not a change.
	if current != previous {
		notify(listeners, current)
	}
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	previous := s.session
	if previous.Status == StatusAuthenticated {
		s.renewer.Stop()
	}
	s.session = Session{Status: StatusAnonymous}
	s.user = nil
	current, listeners := s.session, s.listeners
	s.mu.Unlock()

	if current != previous {
		notify(listeners, current)
	}
}

func notify(listeners []func(Session), current Session) {
	for _, fn := range listeners {
		fn(current)
	}
}

// failureReason prefers the backend's `detail` field, then the fallback.
func failureReason(err error, fallback string) string {
	var reqErr *common.RequestError
	if !errors.As(err, &reqErr) {
		if errors.Is(err, common.ErrTransportFailure) {
			return fallback + ": server unreachable"
		}
		return fallback
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(reqErr.Body, &body) != nil || len(body.Detail) == 0 {
		return fallback
	}

	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}

	// Validation errors arrive as a list of {loc, msg, type}.
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body.Detail, &items) == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return fallback
}
