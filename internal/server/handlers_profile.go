package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgProfileLoadFailed   = "Failed to retrieve profile"
	msgProfileUpdateFailed = "Failed to update profile"
	msgProfileUpdated      = "Updated profile successfully"
	msgInvalidBirthDate    = "Birth date must be a valid date"
	birthDateLayout        = "2006-01-02"
)

type profileView struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
}

type profileResponsePayload struct {
	Profile *profileView   `json:"profile,omitempty"`
	Status  *statusPayload `json:"status,omitempty"`
}

// profileRequestPayload leaves a field nil when the request omits it.
type profileRequestPayload struct {
	FullName  *string `json:"full_name" form:"full_name"`
	BirthDate *string `json:"birth_date" form:"birth_date"`
}

func newProfileView(username string, profile apiclient.Profile) *profileView {
	return &profileView{Username: username, FullName: profile.FullName, BirthDate: profile.BirthDate}
}

func (h *httpHandler) handleShowProfile(c *gin.Context) {
	current, _ := currentSession(c)
	profile, err := h.accounts.Profile(requestContext(c))
	if err != nil {
		h.logger.Warn("profile retrieval failed", zap.Error(err))
		status := persistentError(apiclient.Message(err, msgProfileLoadFailed))
		c.JSON(upstreamStatusCode(err), profileResponsePayload{Status: &status})
		return
	}
	c.JSON(http.StatusOK, profileResponsePayload{Profile: newProfileView(current.Username, profile)})
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	current, _ := currentSession(c)
	var request profileRequestPayload
	if err := c.ShouldBind(&request); err != nil {
		status := h.transientStatus(true, "Invalid profile request")
		c.JSON(http.StatusBadRequest, profileResponsePayload{Status: &status})
		return
	}

	var profile apiclient.Profile
	if request.FullName == nil || request.BirthDate == nil {
		stored, err := h.accounts.Profile(requestContext(c))
		if err != nil {
			h.logger.Warn("profile retrieval failed", zap.Error(err))
			status := h.transientStatus(true, apiclient.Message(err, msgProfileLoadFailed))
			c.JSON(upstreamStatusCode(err), profileResponsePayload{Status: &status})
			return
		}
		profile = stored
	}
	if request.FullName != nil {
		profile.FullName = strings.TrimSpace(*request.FullName)
	}
	if request.BirthDate != nil {
		profile.BirthDate = strings.TrimSpace(*request.BirthDate)
	}
	if profile.BirthDate != "" {
		if _, err := time.Parse(birthDateLayout, profile.BirthDate); err != nil {
			status := h.transientStatus(true, msgInvalidBirthDate)
			c.JSON(http.StatusBadRequest, profileResponsePayload{Status: &status})
			return
		}
	}

	if err := h.accounts.UpdateProfile(requestContext(c), profile); err != nil {
		h.logger.Warn("profile update failed", zap.String("username", current.Username), zap.Error(err))
		status := h.transientStatus(true, apiclient.Message(err, msgProfileUpdateFailed))
		c.JSON(upstreamStatusCode(err), profileResponsePayload{Status: &status})
		return
	}
	status := h.transientStatus(false, msgProfileUpdated)
	c.JSON(http.StatusOK, profileResponsePayload{Profile: newProfileView(current.Username, profile), Status: &status})
}
