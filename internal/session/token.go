package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAccessToken = errors.New("session: access token required")
	ErrInvalidAccessToken = errors.New("session: invalid access token")
)

// AccessClaims mirrors the JWT payload emitted by the Momentos API on login.
type AccessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenDetails is what the client can learn from an access token it cannot verify.
type TokenDetails struct {
	Username  string
	Issuer    string
	ExpiresAt time.Time
}

// Expired reports whether the token has an expiry at or before now.
func (d TokenDetails) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

// InspectToken decodes the claims of an access token without verifying its
// signature. The signing secret lives with the API server; the client uses the
// claims only to label the session and to avoid sending expired tokens.
func InspectToken(tokenString string) (TokenDetails, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return TokenDetails{}, ErrMissingAccessToken
	}

	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenDetails{}, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	details := TokenDetails{
		Username: strings.TrimSpace(claims.Username),
		Issuer:   claims.Issuer,
	}
	if details.Username == "" {
		details.Username = strings.TrimSpace(claims.Subject)
	}
	if claims.ExpiresAt != nil {
		details.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return details, nil
}
