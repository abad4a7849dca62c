package mqhandler

import (
	"context"
	"encoding/json"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/domain"
	"boundless/internal/service/funding"
	"boundless/pkg/metrics"
	"boundless/pkg/mq"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

// 结算重试上限，超过后进死信队列
const settlementMaxRetries = 5

// FundBridge is the slice of the ledger gateway settlement needs.
type FundBridge interface {
	FundProject(ctx context.Context, projectID, funder string, amountStroops int64, idemKey string) (string, error)
}

// ContributionSettlementHandler settles PENDING contributions against the
// escrow ledger. The contribution ID is the ledger idempotency key, so
// redelivery and retry are safe without a dedup gate.
type ContributionSettlementHandler struct {
	funding   *funding.Ledger
	bridge    FundBridge
	retries   *util.RetryCounter
	publisher *mq.Publisher
	logger    *zap.Logger
}

func NewContributionSettlementHandler(
	fundingLedger *funding.Ledger,
	bridge FundBridge,
	retries *util.RetryCounter,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *ContributionSettlementHandler {
	return &ContributionSettlementHandler{
		funding:   fundingLedger,
		bridge:    bridge,
		retries:   retries,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *ContributionSettlementHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(mqcontracts.RoutingContributionInitiated, "contribution_settlement", time.Since(start))
	}()

	var p mqcontracts.ContributionInitiatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ContributionInitiatedPayload", zap.Error(err))
		// 消息本身损坏，重试无意义，直接进 DLQ
		return h.deadLetter(raw, err)
	}

	h.logger.Info("Handling contribution.initiated event",
		zap.String("contribution_id", p.ContributionID),
		zap.String("project_id", p.ProjectID),
		zap.Int64("amount", p.Amount),
		zap.String("trace_id", p.TraceID),
	)

	receipt, err := h.bridge.FundProject(ctx, p.ProjectID, p.BackerID, p.Amount, p.ContributionID)
	if err != nil {
		kind, _ := domain.KindOf(err)
		if kind.Retryable() {
			return h.retryOrDeadLetter(ctx, p, raw, err)
		}

		// 账本确定性拒绝：出资转 FAILED，消息视为处理完成
		h.logger.Warn("Ledger rejected contribution",
			zap.String("contribution_id", p.ContributionID),
			zap.Error(err),
		)
		if err := h.funding.MarkFailed(ctx, p.ContributionID); err != nil {
			return err
		}
		return nil
	}

	if err := h.funding.ConfirmContribution(ctx, p.ContributionID, receipt); err != nil {
		return err
	}

	retryKey := util.FormatRetryKey("contribution_settlement", p.ContributionID)
	if err := h.retries.Reset(ctx, retryKey); err != nil {
		h.logger.Warn("Failed to reset retry counter", zap.String("key", retryKey), zap.Error(err))
	}

	h.logger.Info("Contribution settled",
		zap.String("contribution_id", p.ContributionID),
		zap.String("ledger_receipt", receipt),
	)
	return nil
}

// retryOrDeadLetter 账本暂不可用：有限次 nack 重回队列，超限进 DLQ
func (h *ContributionSettlementHandler) retryOrDeadLetter(ctx context.Context, p mqcontracts.ContributionInitiatedPayload, raw json.RawMessage, cause error) error {
	retryKey := util.FormatRetryKey("contribution_settlement", p.ContributionID)
	count, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		h.logger.Warn("Failed to increment retry counter", zap.String("key", retryKey), zap.Error(err))
		return cause
	}

	if count <= settlementMaxRetries {
		h.logger.Warn("Ledger unavailable, will retry",
			zap.String("contribution_id", p.ContributionID),
			zap.Int64("attempt", count),
			zap.Error(cause),
		)
		return cause
	}

	h.logger.Error("Settlement retries exhausted, dead-lettering",
		zap.String("contribution_id", p.ContributionID),
		zap.Int64("attempts", count),
		zap.Error(cause),
	)
	if err := h.retries.Reset(ctx, retryKey); err != nil {
		h.logger.Warn("Failed to reset retry counter", zap.String("key", retryKey), zap.Error(err))
	}
	return h.deadLetter(raw, cause)
}

func (h *ContributionSettlementHandler) deadLetter(raw json.RawMessage, cause error) error {
	if err := h.publisher.PublishToDLQ(mqcontracts.RoutingContributionInitiated, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
		return err
	}
	return nil
}
