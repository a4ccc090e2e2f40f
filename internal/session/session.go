package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNoSession indicates that no user is logged in or the session expired.
var ErrNoSession = errors.New("session: no active session")

// Session is the logged-in user as seen by the client.
type Session struct {
	Username    string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session has an expiry at or before now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuthorizationHeader renders the bearer header value for the session.
func (s Session) AuthorizationHeader() string {
	return "Bearer " + s.AccessToken
}

// Provider supplies the current session to components that call the API.
type Provider interface {
	Current(ctx context.Context) (Session, error)
}

// NewFromLogin builds a session from a login response. When expiresIn is not
// positive the expiry is read from the token claims.
func NewFromLogin(username, accessToken string, expiresIn int64, now time.Time) (Session, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return Session{}, ErrMissingAccessToken
	}
	current := Session{
		Username:    strings.TrimSpace(username),
		AccessToken: token,
	}
	if expiresIn > 0 {
		current.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second).UTC()
	}
	if current.Username == "" || current.ExpiresAt.IsZero() {
		details, err := InspectToken(token)
		if err != nil {
			return Session{}, err
		}
		if current.Username == "" {
			current.Username = details.Username
		}
		if current.ExpiresAt.IsZero() {
			current.ExpiresAt = details.ExpiresAt
		}
	}
	return current, nil
}

// Static is an in-memory Provider.
type Static struct {
	mu      sync.RWMutex
	session *Session
	clock   func() time.Time
}

// NewStatic returns a Provider holding the given session.
func NewStatic(current Session) *Static {
	return &Static{session: &current, clock: time.Now}
}

// Current returns the held session unless it is missing or expired.
func (s *Static) Current(context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Expired(s.clock()) {
		return Session{}, ErrNoSession
	}
	return *s.session, nil
}

// Clear forgets the held session.
func (s *Static) Clear() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}
