package handler

import (
	"net/http"

	"boundless/internal/service/status"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatusHandler struct {
	tracker *status.Tracker
	logger  *zap.Logger
}

func NewStatusHandler(tracker *status.Tracker, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{tracker: tracker, logger: logger}
}

// GetStatus derives the canonical phase on demand; it is never persisted.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	projectID := c.Param("id")

	phase, err := h.tracker.Resolve(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "phase": phase})
}
