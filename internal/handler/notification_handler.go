package handler

import (
	"net/http"
	"strconv"

	"boundless/internal/auth"
	"boundless/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 20

type NotificationHandler struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationHandler(repo *repository.NotificationRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, logger: logger}
}

// ListNotifications returns the acting user's notifications, newest first.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.repo.ListByUser(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}
