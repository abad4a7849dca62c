package repository

import (
	"context"
	"errors"

	"boundless/internal/domain"
	"boundless/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

const milestoneColumns = `
    id, project_id, title, description, status, progress, ordinal,
    funding_amount, due_date, completed_at, COALESCE(updated_by, ''), created_at, updated_at
`

func (r *MilestoneRepository) scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Title,
		&m.Description,
		&m.Status,
		&m.Progress,
		&m.Ordinal,
		&m.FundingAmount,
		&m.DueDate,
		&m.CompletedAt,
		&m.UpdatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) GetMilestone(ctx context.Context, milestoneID string) (*model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`
	m, err := r.scanMilestone(r.db.QueryRow(ctx, query, milestoneID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "milestone not found")
	}
	if err != nil {
		r.logger.Error("Failed to get milestone", zap.Error(err))
		return nil, err
	}
	return m, nil
}

// GetMilestoneByOrdinal 不存在时返回 (nil, nil)，序号门禁据此判断首个里程碑
func (r *MilestoneRepository) GetMilestoneByOrdinal(ctx context.Context, projectID string, ordinal int) (*model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE project_id = $1 AND ordinal = $2`
	m, err := r.scanMilestone(r.db.QueryRow(ctx, query, projectID, ordinal))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get milestone by ordinal", zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (r *MilestoneRepository) ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE project_id = $1 ORDER BY ordinal ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		m, err := r.scanMilestone(rows)
		if err != nil {
			r.logger.Error("Failed to scan milestone", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

func (r *MilestoneRepository) UpdateMilestone(ctx context.Context, m *model.Milestone) error {
	query := `
        UPDATE milestones
        SET status = $2, progress = $3, completed_at = $4, updated_by = $5, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, m.ID, m.Status, m.Progress, m.CompletedAt, m.UpdatedBy)
	if err != nil {
		r.logger.Error("Failed to update milestone", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "milestone not found")
	}

	r.logger.Info("Milestone updated",
		zap.String("id", m.ID),
		zap.String("status", m.Status),
		zap.Int("progress", m.Progress),
	)
	return nil
}

func (r *MilestoneRepository) AnyMilestoneInProgress(ctx context.Context, projectID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM milestones WHERE project_id = $1 AND status = 'IN_PROGRESS')`
	var exists bool
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check in-progress milestones", zap.Error(err))
		return false, err
	}
	return exists, nil
}
