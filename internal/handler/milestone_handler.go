package handler

import (
	"net/http"

	"boundless/internal/auth"
	"boundless/internal/repository"
	"boundless/internal/service/milestone"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MilestoneHandler struct {
	machine *milestone.StateMachine
	repo    *repository.MilestoneRepository
	logger  *zap.Logger
}

func NewMilestoneHandler(machine *milestone.StateMachine, repo *repository.MilestoneRepository, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{machine: machine, repo: repo, logger: logger}
}

type updateProgressRequest struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

func (h *MilestoneHandler) UpdateProgress(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	milestoneID := c.Param("id")

	var req updateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.machine.UpdateProgress(c.Request.Context(), actor, milestoneID, req.Progress, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": m})
}

func (h *MilestoneHandler) Complete(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	milestoneID := c.Param("id")

	m, err := h.machine.Complete(c.Request.Context(), actor, milestoneID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": m})
}

func (h *MilestoneHandler) Reject(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	milestoneID := c.Param("id")

	m, err := h.machine.Reject(c.Request.Context(), actor, milestoneID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": m})
}

func (h *MilestoneHandler) CloseProject(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	projectID := c.Param("id")

	if err := h.machine.CloseProject(c.Request.Context(), actor, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	projectID := c.Param("id")

	milestones, err := h.repo.ListMilestones(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}
