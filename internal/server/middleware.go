package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type uuidProvider struct{}

// NewUUIDProvider constructs a RequestIDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() RequestIDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// assignRequestID propagates an incoming X-Request-ID or issues a new one.
func (h *httpHandler) assignRequestID(c *gin.Context) {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		issued, err := h.requestIDs.NewID()
		if err != nil {
			h.logger.Warn("request id generation failed", zap.Error(err))
		}
		requestID = issued
	}
	if requestID != "" {
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDContextKey, requestID)
	}
	c.Next()
}

// requireSession admits requests whose client cookie was issued for the
// stored session.
func (h *httpHandler) requireSession(c *gin.Context) {
	token, err := c.Cookie(clientCookieName)
	if err != nil {
		h.logger.Info("request without client credential", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims, err := h.credentials.validate(token)
	if err != nil {
		h.logger.Warn("client credential rejected", zap.String("path", c.FullPath()), zap.Error(err))
		h.rejectUnauthorized(c)
		return
	}

	current, err := h.sessions.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			h.logger.Info("request without session", zap.String("path", c.FullPath()))
		} else {
			h.logger.Warn("session lookup failed", zap.Error(err))
		}
		h.rejectUnauthorized(c)
		return
	}
	if err := h.credentials.matches(claims, current); err != nil {
		h.logger.Warn("client credential does not match session",
			zap.String("path", c.FullPath()),
			zap.String("subject", claims.Subject))
		h.rejectUnauthorized(c)
		return
	}
	c.Set(sessionContextKey, current)
	c.Next()
}

func (h *httpHandler) rejectUnauthorized(c *gin.Context) {
	h.credentials.clearCookie(c)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func currentSession(c *gin.Context) (session.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return session.Session{}, false
	}
	current, ok := value.(session.Session)
	return current, ok
}
