package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/model"
	"boundless/internal/repository"
	"boundless/pkg/metrics"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

// ProjectNotificationHandler handles project-level events: validation
// threshold crossings and derived phase changes.
type ProjectNotificationHandler struct {
	notifications *repository.NotificationRepository
	projects      *repository.ProjectRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewProjectNotificationHandler(
	notifications *repository.NotificationRepository,
	projects *repository.ProjectRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *ProjectNotificationHandler {
	return &ProjectNotificationHandler{
		notifications: notifications,
		projects:      projects,
		deduper:       deduper,
		logger:        logger,
	}
}

func (h *ProjectNotificationHandler) HandleValidated(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingProjectValidated, "notifications", time.Since(start))
	}()

	var p mqcontracts.ProjectValidatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProjectValidatedPayload", zap.Error(err))
		return err
	}
	if !h.deduper.AcquireOnce(ctx, "project_validated", p.EventID) {
		return nil
	}

	n := &model.Notification{
		UserID:      p.OwnerID,
		Title:       "Project validated",
		Description: fmt.Sprintf("Project %q reached its validation threshold with %d votes", p.ProjectTitle, p.VoteCount),
	}
	if err := h.notifications.Insert(ctx, n); err != nil {
		h.logger.Error("Failed to insert validated notification",
			zap.String("project_id", p.ProjectID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Project validated notification written",
		zap.String("project_id", p.ProjectID),
		zap.String("owner_id", p.OwnerID),
	)
	return nil
}

func (h *ProjectNotificationHandler) HandlePhaseChanged(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingProjectPhaseChanged, "notifications", time.Since(start))
	}()

	var p mqcontracts.ProjectPhaseChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProjectPhaseChangedPayload", zap.Error(err))
		return err
	}
	if !h.deduper.AcquireOnce(ctx, "project_phase_changed", p.EventID) {
		return nil
	}

	// 事件只带 project_id，所有者需回查
	project, err := h.projects.GetProject(ctx, p.ProjectID)
	if err != nil {
		h.logger.Error("Failed to load project for phase change",
			zap.String("project_id", p.ProjectID),
			zap.Error(err),
		)
		return err
	}

	n := &model.Notification{
		UserID:      project.OwnerID,
		Title:       "Project phase changed",
		Description: fmt.Sprintf("Project %q moved from %s to %s", project.Title, p.PreviousPhase, p.NewPhase),
	}
	if err := h.notifications.Insert(ctx, n); err != nil {
		h.logger.Error("Failed to insert phase change notification",
			zap.String("project_id", p.ProjectID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Phase change notification written",
		zap.String("project_id", p.ProjectID),
		zap.String("previous_phase", p.PreviousPhase),
		zap.String("new_phase", p.NewPhase),
	)
	return nil
}
