package funding

import (
	"context"
	"math"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/auth"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/metrics"
	"boundless/pkg/trace"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

// 募资窗口长度，自项目创建起算
const fundingWindowDays = 30

// Store is the persistence surface the funding ledger needs.
// CreateContributionIntent must insert the contribution row and the
// settlement event in the same transaction; it assigns the contribution ID
// and stamps it into the payload before enqueueing.
type Store interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	CreateContributionIntent(ctx context.Context, c *model.Contribution, payload mqcontracts.ContributionInitiatedPayload) error
	GetContribution(ctx context.Context, contributionID string) (*model.Contribution, error)
	SetContributionStatus(ctx context.Context, contributionID, status, ledgerReceipt string) error
	Raised(ctx context.Context, projectID string) (int64, error)
	CountBackers(ctx context.Context, projectID string) (int, error)
}

// Bridge is the slice of the ledger gateway refunds need.
type Bridge interface {
	Refund(ctx context.Context, projectID, contributionID, idemKey string) (string, error)
}

// PhaseObserver recomputes the derived project phase after a mutation.
type PhaseObserver interface {
	Observe(ctx context.Context, projectID string)
}

// Ledger 跟踪项目出资。出资分两阶段：先落 PENDING 意向，
// 账本结算确认后才转 COMPLETED 并计入募资总额。
type Ledger struct {
	store  Store
	locks  *util.KeyedMutex
	bridge Bridge
	phases PhaseObserver
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(store Store, locks *util.KeyedMutex, bridge Bridge, phases PhaseObserver, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		locks:  locks,
		bridge: bridge,
		phases: phases,
		logger: logger,
		now:    time.Now,
	}
}

// RecordContributionIntent creates a PENDING contribution and enqueues its
// ledger settlement. The returned contribution is not yet counted toward
// funding totals.
func (l *Ledger) RecordContributionIntent(ctx context.Context, projectID, backerID string, amount int64) (*model.Contribution, error) {
	if amount <= 0 {
		return nil, domain.E(domain.KindInvalidInput, "invalid amount")
	}

	if _, err := l.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	c := &model.Contribution{
		ProjectID: projectID,
		BackerID:  backerID,
		Amount:    amount,
		Status:    model.ContributionPending,
	}
	payload := mqcontracts.ContributionInitiatedPayload{
		ProjectID: projectID,
		BackerID:  backerID,
		Amount:    amount,
		TraceID:   trace.FromContext(ctx),
	}
	if err := l.store.CreateContributionIntent(ctx, c, payload); err != nil {
		return nil, err
	}

	metrics.IncrementContribution("pending")
	l.logger.Info("contribution intent recorded",
		zap.String("contribution_id", c.ID),
		zap.String("project_id", projectID),
		zap.Int64("amount", amount),
	)
	return c, nil
}

// ConfirmContribution transitions PENDING to COMPLETED once the ledger has
// settled. Re-confirmation of a COMPLETED contribution is a no-op because
// settlement confirmations may be delivered more than once.
func (l *Ledger) ConfirmContribution(ctx context.Context, contributionID, ledgerReceipt string) error {
	c, err := l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}

	l.locks.Lock(c.ProjectID)
	defer l.locks.Unlock(c.ProjectID)

	c, err = l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}

	switch c.Status {
	case model.ContributionCompleted:
		return nil
	case model.ContributionPending:
	default:
		return domain.Ef(domain.KindConflict, "contribution is %s", c.Status)
	}

	if err := l.store.SetContributionStatus(ctx, contributionID, model.ContributionCompleted, ledgerReceipt); err != nil {
		return err
	}

	metrics.IncrementContribution("completed")
	l.logger.Info("contribution confirmed",
		zap.String("contribution_id", contributionID),
		zap.String("project_id", c.ProjectID),
		zap.String("ledger_receipt", ledgerReceipt),
	)

	if l.phases != nil {
		l.phases.Observe(ctx, c.ProjectID)
	}
	return nil
}

// MarkFailed records a deterministic ledger rejection of a PENDING
// contribution. Idempotent for already-FAILED contributions.
func (l *Ledger) MarkFailed(ctx context.Context, contributionID string) error {
	c, err := l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}

	l.locks.Lock(c.ProjectID)
	defer l.locks.Unlock(c.ProjectID)

	c, err = l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}

	switch c.Status {
	case model.ContributionFailed:
		return nil
	case model.ContributionPending:
	default:
		return domain.Ef(domain.KindConflict, "contribution is %s", c.Status)
	}

	if err := l.store.SetContributionStatus(ctx, contributionID, model.ContributionFailed, ""); err != nil {
		return err
	}
	metrics.IncrementContribution("failed")
	return nil
}

// Refund reverses a settled contribution, or writes off a failed one. Only
// legal from COMPLETED or FAILED; the ledger transfer for a COMPLETED
// contribution is a new operation, not a rollback.
func (l *Ledger) Refund(ctx context.Context, actor auth.ActingContext, contributionID string) error {
	c, err := l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && actor.UserID != c.BackerID {
		return domain.E(domain.KindInvalidInput, "refund not permitted")
	}

	l.locks.Lock(c.ProjectID)
	defer l.locks.Unlock(c.ProjectID)

	c, err = l.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}

	switch c.Status {
	case model.ContributionRefunded:
		return domain.E(domain.KindConflict, "already refunded")
	case model.ContributionCompleted:
		// 合约侧真正转账，失败时状态保持不变
		if _, err := l.bridge.Refund(ctx, c.ProjectID, c.ID, c.ID); err != nil {
			return err
		}
	case model.ContributionFailed:
		// 从未入账，无需账本操作
	default:
		return domain.E(domain.KindConflict, "contribution not settled")
	}

	if err := l.store.SetContributionStatus(ctx, contributionID, model.ContributionRefunded, c.LedgerReceipt); err != nil {
		return err
	}

	metrics.IncrementContribution("refunded")
	l.logger.Info("contribution refunded",
		zap.String("contribution_id", contributionID),
		zap.String("project_id", c.ProjectID),
	)

	if l.phases != nil {
		l.phases.Observe(ctx, c.ProjectID)
	}
	return nil
}

// FundingPercentage is the COMPLETED total against the goal, clamped to
// 0-100. Overfunding stays visible in raw totals only.
func (l *Ledger) FundingPercentage(ctx context.Context, projectID string) (int, error) {
	project, err := l.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if project.FundingGoal <= 0 {
		return 0, nil
	}

	raised, err := l.store.Raised(ctx, projectID)
	if err != nil {
		return 0, err
	}

	pct := int(math.Round(float64(raised) / float64(project.FundingGoal) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// Stats returns the aggregate funding view for a project.
func (l *Ledger) Stats(ctx context.Context, projectID string) (*model.FundingStats, error) {
	project, err := l.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	raised, err := l.store.Raised(ctx, projectID)
	if err != nil {
		return nil, err
	}
	backers, err := l.store.CountBackers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	elapsed := int(l.now().Sub(project.CreatedAt).Hours() / 24)
	daysLeft := fundingWindowDays - elapsed
	if daysLeft < 0 {
		daysLeft = 0
	}

	return &model.FundingStats{
		ProjectID: projectID,
		Raised:    raised,
		Goal:      project.FundingGoal,
		Backers:   backers,
		DaysLeft:  daysLeft,
	}, nil
}
