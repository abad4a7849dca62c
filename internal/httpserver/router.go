package httpserver

import (
	"context"
	"time"

	"boundless/internal/auth"
	"boundless/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	voteHandler *handler.VoteHandler,
	fundingHandler *handler.FundingHandler,
	milestoneHandler *handler.MilestoneHandler,
	statusHandler *handler.StatusHandler,
	notificationHandler *handler.NotificationHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware(), MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public reads
	r.GET("/projects/:id/status", statusHandler.GetStatus)
	r.GET("/projects/:id/votes", voteHandler.GetTally)
	r.GET("/projects/:id/funding", fundingHandler.GetFunding)
	r.GET("/projects/:id/milestones", milestoneHandler.ListMilestones)

	// Protected mutations
	protected := r.Group("/")
	protected.Use(auth.Middleware(jwtSecret))
	{
		protected.POST("/projects/:id/votes", voteHandler.CastVote)
		protected.DELETE("/projects/:id/votes", voteHandler.WithdrawVote)
		protected.POST("/projects/:id/contributions", fundingHandler.Contribute)
		protected.POST("/contributions/:id/refund", fundingHandler.Refund)
		protected.PATCH("/milestones/:id", milestoneHandler.UpdateProgress)
		protected.POST("/milestones/:id/complete", milestoneHandler.Complete)
		protected.POST("/milestones/:id/reject", milestoneHandler.Reject)
		protected.POST("/projects/:id/close", milestoneHandler.CloseProject)
		protected.GET("/notifications", notificationHandler.ListNotifications)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
