package handler

import (
	"net/http"

	"boundless/internal/auth"
	"boundless/internal/service/funding"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FundingHandler struct {
	ledger *funding.Ledger
	logger *zap.Logger
}

func NewFundingHandler(ledger *funding.Ledger, logger *zap.Logger) *FundingHandler {
	return &FundingHandler{ledger: ledger, logger: logger}
}

type contributeRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Contribute records a funding intent. Settlement is asynchronous; the
// response carries the PENDING contribution.
func (h *FundingHandler) Contribute(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	projectID := c.Param("id")

	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	contribution, err := h.ledger.RecordContributionIntent(c.Request.Context(), projectID, actor.UserID, req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"contribution": contribution})
}

func (h *FundingHandler) Refund(c *gin.Context) {
	actor, ok := auth.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	contributionID := c.Param("id")

	if err := h.ledger.Refund(c.Request.Context(), actor, contributionID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

func (h *FundingHandler) GetFunding(c *gin.Context) {
	projectID := c.Param("id")

	stats, err := h.ledger.Stats(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	percentage, err := h.ledger.FundingPercentage(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":      stats,
		"percentage": percentage,
	})
}
