package notify

import (
	"context"

	mqcontracts "boundless/contracts/mq"
	"boundless/pkg/metrics"
	"boundless/pkg/outbox"
	"boundless/pkg/trace"
	"boundless/pkg/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Dispatcher enqueues notification events through the transactional outbox.
// The outbox dispatcher publishes them to MQ; the worker turns them into
// notification rows. Delivery is at-least-once, the worker dedupes.
type Dispatcher struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewDispatcher(db *pgxpool.Pool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// enqueue 使用事务写入 Outbox 事件
func (d *Dispatcher) enqueue(ctx context.Context, projectID, routingKey string, payload interface{}) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		d.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	if err := outbox.InsertEventInTx(ctx, tx, d.outboxRepo, "project", &projectID, routingKey, payload); err != nil {
		d.logger.Error("Failed to insert event to outbox",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		d.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	metrics.IncrementNotification(routingKey)
	d.logger.Info("Notification event enqueued",
		zap.String("routing_key", routingKey),
		zap.String("project_id", projectID),
	)
	return nil
}

func (d *Dispatcher) ProjectValidated(ctx context.Context, payload mqcontracts.ProjectValidatedPayload) error {
	if payload.EventID == "" {
		payload.EventID = util.NewEventID()
	}
	if payload.TraceID == "" {
		payload.TraceID = trace.FromContext(ctx)
	}
	return d.enqueue(ctx, payload.ProjectID, mqcontracts.RoutingProjectValidated, payload)
}

func (d *Dispatcher) MilestoneUpdated(ctx context.Context, payload mqcontracts.MilestoneUpdatedPayload) error {
	if payload.EventID == "" {
		payload.EventID = util.NewEventID()
	}
	if payload.TraceID == "" {
		payload.TraceID = trace.FromContext(ctx)
	}
	return d.enqueue(ctx, payload.ProjectID, mqcontracts.RoutingMilestoneUpdated, payload)
}

func (d *Dispatcher) MilestoneCompleted(ctx context.Context, payload mqcontracts.MilestoneCompletedPayload) error {
	if payload.EventID == "" {
		payload.EventID = util.NewEventID()
	}
	if payload.TraceID == "" {
		payload.TraceID = trace.FromContext(ctx)
	}
	return d.enqueue(ctx, payload.ProjectID, mqcontracts.RoutingMilestoneCompleted, payload)
}

func (d *Dispatcher) MilestoneRejected(ctx context.Context, payload mqcontracts.MilestoneRejectedPayload) error {
	if payload.EventID == "" {
		payload.EventID = util.NewEventID()
	}
	if payload.TraceID == "" {
		payload.TraceID = trace.FromContext(ctx)
	}
	return d.enqueue(ctx, payload.ProjectID, mqcontracts.RoutingMilestoneRejected, payload)
}

func (d *Dispatcher) ProjectPhaseChanged(ctx context.Context, payload mqcontracts.ProjectPhaseChangedPayload) error {
	if payload.EventID == "" {
		payload.EventID = util.NewEventID()
	}
	if payload.TraceID == "" {
		payload.TraceID = trace.FromContext(ctx)
	}
	return d.enqueue(ctx, payload.ProjectID, mqcontracts.RoutingProjectPhaseChanged, payload)
}
