package repository

import (
	"context"
	"errors"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/outbox"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ContributionRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewContributionRepository(db *pgxpool.Pool, logger *zap.Logger) *ContributionRepository {
	return &ContributionRepository{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// CreateContributionIntent 在同一事务里落 PENDING 出资行和结算事件，
// 保证意向和账本结算请求要么都存在要么都不存在。
func (r *ContributionRepository) CreateContributionIntent(ctx context.Context, c *model.Contribution, payload mqcontracts.ContributionInitiatedPayload) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO contributions (project_id, backer_id, amount, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRow(ctx, query,
		c.ProjectID,
		c.BackerID,
		c.Amount,
		c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert contribution", zap.Error(err))
		return err
	}

	payload.ContributionID = c.ID
	if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "contribution", &c.ID, mqcontracts.RoutingContributionInitiated, payload); err != nil {
		r.logger.Error("Failed to insert settlement event to outbox", zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	r.logger.Info("Contribution intent inserted",
		zap.String("id", c.ID),
		zap.String("project_id", c.ProjectID),
		zap.Int64("amount", c.Amount),
	)
	return nil
}

func (r *ContributionRepository) GetContribution(ctx context.Context, contributionID string) (*model.Contribution, error) {
	query := `
        SELECT id, project_id, backer_id, amount, status, COALESCE(ledger_receipt, ''), created_at, updated_at
        FROM contributions
        WHERE id = $1
    `
	var c model.Contribution
	err := r.db.QueryRow(ctx, query, contributionID).Scan(
		&c.ID,
		&c.ProjectID,
		&c.BackerID,
		&c.Amount,
		&c.Status,
		&c.LedgerReceipt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "contribution not found")
	}
	if err != nil {
		r.logger.Error("Failed to get contribution", zap.Error(err))
		return nil, err
	}
	return &c, nil
}

func (r *ContributionRepository) SetContributionStatus(ctx context.Context, contributionID, status, ledgerReceipt string) error {
	query := `
        UPDATE contributions
        SET status = $2,
            ledger_receipt = COALESCE(NULLIF($3, ''), ledger_receipt),
            updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, contributionID, status, ledgerReceipt)
	if err != nil {
		r.logger.Error("Failed to update contribution status", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "contribution not found")
	}

	r.logger.Info("Contribution status updated",
		zap.String("contribution_id", contributionID),
		zap.String("status", status),
	)
	return nil
}

// Raised 只统计 COMPLETED 出资，PENDING 不计入募资总额
func (r *ContributionRepository) Raised(ctx context.Context, projectID string) (int64, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM contributions
        WHERE project_id = $1 AND status = 'COMPLETED'
    `
	var sum int64
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum contributions", zap.Error(err))
		return 0, err
	}
	return sum, nil
}

func (r *ContributionRepository) CountBackers(ctx context.Context, projectID string) (int, error) {
	query := `
        SELECT COUNT(DISTINCT backer_id)
        FROM contributions
        WHERE project_id = $1 AND status = 'COMPLETED'
    `
	var count int
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&count); err != nil {
		r.logger.Error("Failed to count backers", zap.Error(err))
		return 0, err
	}
	return count, nil
}
