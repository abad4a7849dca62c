package handler

import (
	"net/http"
	"time"

	"boundless/internal/auth"
	"boundless/internal/service/voting"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoteHandler struct {
	engine *voting.Engine
	logger *zap.Logger
}

func NewVoteHandler(engine *voting.Engine, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{engine: engine, logger: logger}
}

type castVoteRequest struct {
	Value int `json:"value" binding:"required"`
}

func (h *VoteHandler) CastVote(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	projectID := c.Param("id")

	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tally, err := h.engine.CastVote(c.Request.Context(), projectID, actor.UserID, req.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tally": tally})
}

func (h *VoteHandler) WithdrawVote(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	projectID := c.Param("id")

	tally, err := h.engine.WithdrawVote(c.Request.Context(), projectID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tally": tally})
}

func (h *VoteHandler) GetTally(c *gin.Context) {
	projectID := c.Param("id")

	tally, err := h.engine.Tally(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tally":   tally,
		"outcome": voting.Outcome(tally, time.Now()),
	})
}
