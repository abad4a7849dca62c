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

// MilestoneNotificationHandler turns milestone events into notification rows
// for each recipient. Event IDs are deduped so redelivery never fans out
// twice.
type MilestoneNotificationHandler struct {
	repo    *repository.NotificationRepository
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewMilestoneNotificationHandler(
	repo *repository.NotificationRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *MilestoneNotificationHandler {
	return &MilestoneNotificationHandler{
		repo:    repo,
		deduper: deduper,
		logger:  logger,
	}
}

func (h *MilestoneNotificationHandler) HandleUpdated(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingMilestoneUpdated, "notifications", time.Since(start))
	}()

	var p mqcontracts.MilestoneUpdatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneUpdatedPayload", zap.Error(err))
		return err
	}
	if !h.deduper.AcquireOnce(ctx, "milestone_updated", p.EventID) {
		return nil
	}

	title := "Milestone progress updated"
	description := fmt.Sprintf("%s updated milestone %q of project %q", p.UpdaterName, p.MilestoneTitle, p.ProjectTitle)
	return h.fanOut(ctx, p.RecipientUserIDs, title, description)
}

func (h *MilestoneNotificationHandler) HandleCompleted(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingMilestoneCompleted, "notifications", time.Since(start))
	}()

	var p mqcontracts.MilestoneCompletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneCompletedPayload", zap.Error(err))
		return err
	}
	if !h.deduper.AcquireOnce(ctx, "milestone_completed", p.EventID) {
		return nil
	}

	title := "Milestone completed"
	description := fmt.Sprintf("%s completed milestone %q of project %q, escrowed funds were released", p.UpdaterName, p.MilestoneTitle, p.ProjectTitle)
	return h.fanOut(ctx, p.RecipientUserIDs, title, description)
}

func (h *MilestoneNotificationHandler) HandleRejected(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingMilestoneRejected, "notifications", time.Since(start))
	}()

	var p mqcontracts.MilestoneRejectedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneRejectedPayload", zap.Error(err))
		return err
	}
	if !h.deduper.AcquireOnce(ctx, "milestone_rejected", p.EventID) {
		return nil
	}

	title := "Milestone rejected"
	description := fmt.Sprintf("Milestone %q of project %q was rejected by an administrator", p.MilestoneTitle, p.ProjectTitle)
	return h.fanOut(ctx, p.RecipientUserIDs, title, description)
}

func (h *MilestoneNotificationHandler) fanOut(ctx context.Context, recipients []string, title, description string) error {
	for _, userID := range recipients {
		n := &model.Notification{
			UserID:      userID,
			Title:       title,
			Description: description,
		}
		if err := h.repo.Insert(ctx, n); err != nil {
			h.logger.Error("Failed to insert notification",
				zap.String("user_id", userID),
				zap.String("title", title),
				zap.Error(err),
			)
			return err
		}
	}
	h.logger.Info("Notifications written",
		zap.String("title", title),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}
