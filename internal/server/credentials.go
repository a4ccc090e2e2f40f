package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	clientCookieName    = "momentos_client"
	clientTokenIssuer   = "momentos"
	generatedSecretSize = 32
)

var (
	errMissingClientToken   = errors.New("client credential: token required")
	errInvalidClientToken   = errors.New("client credential: invalid token")
	errClientSessionChanged = errors.New("client credential: session does not match")
)

// clientClaims binds a browser to the stored session it logged in with.
type clientClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// clientCredentials issues and validates the HttpOnly cookie presented by
// the browser on protected routes.
type clientCredentials struct {
	signingSecret []byte
	secureCookies bool
	clock         func() time.Time
}

func newClientCredentials(signingSecret []byte, secureCookies bool, clock func() time.Time) (*clientCredentials, error) {
	secret := append([]byte(nil), signingSecret...)
	if len(secret) == 0 {
		secret = make([]byte, generatedSecretSize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("client credential: generate secret: %w", err)
		}
	}
	return &clientCredentials{
		signingSecret: secret,
		secureCookies: secureCookies,
		clock:         clock,
	}, nil
}

func (c *clientCredentials) issue(current session.Session) (string, error) {
	now := c.clock().UTC()
	claims := clientClaims{
		SessionID: sessionFingerprint(current.AccessToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   current.Username,
			Issuer:    clientTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(current.ExpiresAt.UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingSecret)
}

func (c *clientCredentials) validate(tokenString string) (clientClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return clientClaims{}, errMissingClientToken
	}
	claims := &clientClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (interface{}, error) {
			return c.signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(clientTokenIssuer),
		jwt.WithTimeFunc(c.clock),
	)
	if err != nil {
		return clientClaims{}, fmt.Errorf("%w: %v", errInvalidClientToken, err)
	}
	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" || claims.SessionID == "" {
		return clientClaims{}, errInvalidClientToken
	}
	return *claims, nil
}

// matches reports whether the claims were issued for current.
func (c *clientCredentials) matches(claims clientClaims, current session.Session) error {
	if claims.Subject != current.Username || claims.SessionID != sessionFingerprint(current.AccessToken) {
		return errClientSessionChanged
	}
	return nil
}

func (c *clientCredentials) setCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(c.clock()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(clientCookieName, token, maxAge, "/", "", c.secureCookies, true)
}

func (c *clientCredentials) clearCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(clientCookieName, "", -1, "/", "", c.secureCookies, true)
}

func sessionFingerprint(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:16])
}
