package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgLoadFailed   = "Failed to retrieve moment - either server is down or some other error occurred"
	msgAddFailed    = "Failed to add moment - either server is down or some other error occurred"
	msgUpdateFailed = "Failed to update moment - either server is down or some other error occurred"
	msgAdded        = "Added moment successfully"
	msgUpdated      = "Updated moment successfully"
	msgNoChanges    = "Nothing to update"
	msgImageBroken  = "Stored image could not be displayed"
)

type submitResponsePayload struct {
	Status   statusPayload        `json:"status"`
	Fields   []string             `json:"fields,omitempty"`
	Problems []fieldProblemOutput `json:"problems,omitempty"`
}

type fieldProblemOutput struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type momentResponsePayload struct {
	Moment momentView `json:"moment"`
}

func (h *httpHandler) handleShowMoment(c *gin.Context) {
	id, err := moments.NewMomentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, statusResponsePayload{Status: persistentError("Invalid moment id")})
		return
	}
	moment, ok := h.loadMoment(c, id)
	if !ok {
		return
	}
	view, err := newMomentView(moment)
	if err != nil {
		h.logger.Warn("stored image could not be decoded", zap.String("moment_id", id.String()), zap.Error(err))
		status := persistentError(msgImageBroken)
		view.Status = &status
	}
	c.JSON(http.StatusOK, momentResponsePayload{Moment: view})
}

func (h *httpHandler) handleCreateMoment(c *gin.Context) {
	form, ok := h.bindForm(c, moments.Form{})
	if !ok {
		return
	}
	if err := moments.ValidateCreateForm(form); err != nil {
		h.respondInvalidForm(c, err)
		return
	}

	payload := moments.BuildCreatePayload(form)
	if err := h.moments.CreateMoment(requestContext(c), payload); err != nil {
		h.logger.Warn("moment creation failed", zap.Error(err))
		c.JSON(upstreamStatusCode(err), submitResponsePayload{Status: h.transientStatus(true, apiclient.Message(err, msgAddFailed))})
		return
	}
	c.JSON(http.StatusCreated, submitResponsePayload{
		Status: h.transientStatus(false, msgAdded),
		Fields: fieldNames(payload),
	})
}

func (h *httpHandler) handleUpdateMoment(c *gin.Context) {
	id, err := moments.NewMomentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, statusResponsePayload{Status: persistentError("Invalid moment id")})
		return
	}
	original, ok := h.loadMoment(c, id)
	if !ok {
		return
	}
	form, ok := h.bindForm(c, moments.FormFromMoment(original))
	if !ok {
		return
	}
	if err := moments.ValidateUpdateForm(original, form); err != nil {
		h.respondInvalidForm(c, err)
		return
	}

	payload := moments.BuildUpdatePayload(original, form)
	if payload.Empty() {
		c.JSON(http.StatusOK, submitResponsePayload{Status: h.transientStatus(false, msgNoChanges)})
		return
	}
	if err := h.moments.UpdateMoment(requestContext(c), id, payload); err != nil {
		h.logger.Warn("moment update failed", zap.String("moment_id", id.String()), zap.Error(err))
		c.JSON(upstreamStatusCode(err), submitResponsePayload{Status: h.transientStatus(true, apiclient.Message(err, msgUpdateFailed))})
		return
	}
	c.JSON(http.StatusOK, submitResponsePayload{
		Status: h.transientStatus(false, msgUpdated),
		Fields: fieldNames(payload),
	})
}

// loadMoment writes a persistent error response and reports false when the
// moment cannot be retrieved.
func (h *httpHandler) loadMoment(c *gin.Context, id moments.MomentID) (moments.Moment, bool) {
	moment, err := h.moments.GetMoment(requestContext(c), id)
	if err != nil {
		h.logger.Warn("moment retrieval failed", zap.String("moment_id", id.String()), zap.Error(err))
		c.JSON(upstreamStatusCode(err), statusResponsePayload{Status: persistentError(apiclient.Message(err, msgLoadFailed))})
		return moments.Moment{}, false
	}
	return moment, true
}

func (h *httpHandler) bindForm(c *gin.Context, base moments.Form) (moments.Form, bool) {
	form, err := bindMomentForm(c, base)
	if err == nil {
		return form, true
	}
	switch {
	case errors.Is(err, errUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, submitResponsePayload{Status: h.transientStatus(true, errUnsupportedImage.Error())})
	case errors.Is(err, errImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, submitResponsePayload{Status: h.transientStatus(true, errImageTooLarge.Error())})
	default:
		h.logger.Warn("moment form could not be read", zap.Error(err))
		c.JSON(http.StatusBadRequest, submitResponsePayload{Status: h.transientStatus(true, "Invalid form submission")})
	}
	return moments.Form{}, false
}

func (h *httpHandler) respondInvalidForm(c *gin.Context, err error) {
	response := submitResponsePayload{Status: h.transientStatus(true, "Please correct the highlighted fields")}
	var validationErr *moments.ValidationError
	if errors.As(err, &validationErr) {
		for _, problem := range validationErr.Problems {
			response.Problems = append(response.Problems, fieldProblemOutput{
				Field:   string(problem.Field),
				Message: problem.Message,
			})
		}
	}
	c.JSON(http.StatusBadRequest, response)
}

func fieldNames(payload moments.Payload) []string {
	fields := payload.Fields()
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, string(field))
	}
	return names
}
