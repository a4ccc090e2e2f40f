package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const snapshotEventName = "snapshot"

// handleDashboard applies the requested list transitions, refreshes the list
// and returns the settled snapshot.
func (h *httpHandler) handleDashboard(c *gin.Context) {
	if raw, ok := c.GetQuery("page_size"); ok {
		size, err := strconv.Atoi(raw)
		if err == nil {
			err = h.lists.SetPageSize(size)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, statusResponsePayload{Status: persistentError("Unsupported page size")})
			return
		}
	}
	if raw, ok := c.GetQuery("sort_by"); ok {
		if err := h.lists.SetSortBy(moments.SortKey(raw)); err != nil {
			c.JSON(http.StatusBadRequest, statusResponsePayload{Status: persistentError("Unsupported sort order")})
			return
		}
	}
	if raw, ok := c.GetQuery("search"); ok {
		h.lists.SetSearchText(raw)
	}
	if raw, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(raw)
		if err != nil || !h.lists.GoToPage(page) {
			h.logger.Debug("page navigation ignored", zap.String("page", raw))
		}
	}

	snapshot := h.lists.RefreshAndWait(requestContext(c))
	current, _ := currentSession(c)
	c.JSON(http.StatusOK, newDashboardView(current.Username, snapshot))
}

// handleDashboardEvents streams list snapshots as server-sent events until
// the client disconnects.
func (h *httpHandler) handleDashboardEvents(c *gin.Context) {
	current, _ := currentSession(c)
	stream, cleanup := h.lists.Subscribe(c.Request.Context())
	defer cleanup()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent(snapshotEventName, newDashboardView(current.Username, h.lists.Snapshot()))
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		snapshot, ok := <-stream
		if !ok {
			return false
		}
		c.SSEvent(snapshotEventName, newDashboardView(current.Username, snapshot))
		return true
	})
}
