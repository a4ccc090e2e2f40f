package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequestPayload struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponsePayload struct {
	Username         string        `json:"username"`
	ExpiresAtSeconds int64         `json:"expires_at_s"`
	Status           statusPayload `json:"status"`
}

type registerRequestPayload struct {
	FullName        string `json:"fullname" form:"fullname"`
	BirthDate       string `json:"birthdate" form:"birthdate"`
	Email           string `json:"email" form:"emailid"`
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type statusResponsePayload struct {
	Status statusPayload `json:"status"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBind(&request); err != nil || strings.TrimSpace(request.Username) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, statusResponsePayload{Status: h.transientStatus(true, "Username and password are required")})
		return
	}

	result, err := h.accounts.Login(requestContext(c), request.Username, request.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.String("username", request.Username), zap.Error(err))
		c.JSON(upstreamStatusCode(err), statusResponsePayload{Status: h.transientStatus(true, apiclient.Message(err, "Login failed - either server is down or some other error occurred"))})
		return
	}

	username := result.Username
	if strings.TrimSpace(username) == "" {
		username = strings.TrimSpace(request.Username)
	}
	current, err := session.NewFromLogin(username, result.AccessToken, result.ExpiresIn, h.clock())
	if err != nil {
		h.logger.Error("login returned an unusable token", zap.Error(err))
		c.JSON(http.StatusBadGateway, statusResponsePayload{Status: h.transientStatus(true, "Login failed - the server returned an invalid token")})
		return
	}
	if err := h.sessions.Save(c.Request.Context(), current); err != nil {
		h.logger.Error("failed to persist session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, statusResponsePayload{Status: h.transientStatus(true, "Failed to store session")})
		return
	}
	token, err := h.credentials.issue(current)
	if err != nil {
		h.logger.Error("failed to issue client credential", zap.Error(err))
		c.JSON(http.StatusInternalServerError, statusResponsePayload{Status: h.transientStatus(true, "Failed to store session")})
		return
	}
	h.credentials.setCookie(c, token, current.ExpiresAt)

	c.JSON(http.StatusOK, loginResponsePayload{
		Username:         current.Username,
		ExpiresAtSeconds: current.ExpiresAt.Unix(),
		Status:           h.transientStatus(false, "Logged in successfully"),
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context()); err != nil {
		h.logger.Error("failed to clear session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, statusResponsePayload{Status: h.transientStatus(true, "Failed to log out")})
		return
	}
	h.credentials.clearCookie(c)
	c.JSON(http.StatusOK, statusResponsePayload{Status: h.transientStatus(false, "Logged out")})
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBind(&request); err != nil {
		c.JSON(http.StatusBadRequest, statusResponsePayload{Status: h.transientStatus(true, "Invalid registration request")})
		return
	}
	if request.ConfirmPassword != "" && request.Password != request.ConfirmPassword {
		c.JSON(http.StatusBadRequest, statusResponsePayload{Status: h.transientStatus(true, "Passwords do not match")})
		return
	}

	err := h.accounts.CreateAccount(requestContext(c), apiclient.Account{
		FullName:  request.FullName,
		BirthDate: request.BirthDate,
		Email:     request.Email,
		Username:  request.Username,
		Password:  request.Password,
	})
	if err != nil {
		if errors.Is(err, apiclient.ErrMissingCredentials) {
			c.JSON(http.StatusBadRequest, statusResponsePayload{Status: h.transientStatus(true, "Username and password are required")})
			return
		}
		h.logger.Warn("account creation failed", zap.String("username", request.Username), zap.Error(err))
		c.JSON(upstreamStatusCode(err), statusResponsePayload{Status: h.transientStatus(true, apiclient.Message(err, "Failed to create account"))})
		return
	}
	c.JSON(http.StatusCreated, statusResponsePayload{Status: h.transientStatus(false, "Account created successfully")})
}

// upstreamStatusCode forwards client errors reported by the API and maps
// everything else to 502.
func upstreamStatusCode(err error) int {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return statusErr.StatusCode
	}
	if errors.Is(err, apiclient.ErrMissingCredentials) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
