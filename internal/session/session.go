package session

import (
	"context"
	"net/url"
)

// Status is the client's belief about the current authentication state.
type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the client-visible session state. It never contains credentials.
type Session struct {
	Identity string `json:"identity,omitempty"`
	Status   Status `json:"status"`
}

// Authenticated reports whether an identity is currently held.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// User is the profile the backend returns for the authenticated account.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// Result is the outcome of a login or register attempt.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// backend is the slice of the transport client the store needs.
type backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// timer is the renewal schedule owned by a Store.
type timer interface {
	Start() error
	Stop()
	Running() bool
}

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// authPayload accepts the shapes the auth endpoints answer with:
// {"user": {...}} from login/register/refresh, a bare user object from
// /auth/me, or {"identity": "..."}.
type authPayload struct {
	Nested    *User  `json:"user"`
	Identity  string `json:"identity"`
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func (p authPayload) user() (*User, bool) {
	switch {
	case p.Nested != nil && p.Nested.Email != "":
		return p.Nested, true
	case p.Email != "":
		return &User{ID: p.ID, Email: p.Email, IsActive: p.IsActive, CreatedAt: p.CreatedAt}, true
	case p.Identity != "":
		return &User{Email: p.Identity}, true
	default:
		return nil, false
	}
}
