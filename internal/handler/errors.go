package handler

import (
	"net/http"

	"boundless/internal/domain"
	"boundless/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError translates the domain error taxonomy into HTTP statuses.
// Undecoded errors are internal.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		logger.WithTrace(c.Request.Context(), log).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var status int
	switch kind {
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindWindowClosed:
		status = http.StatusGone
	case domain.KindInsufficientFunds, domain.KindLedgerRejected:
		status = http.StatusUnprocessableEntity
	case domain.KindLedgerUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}
