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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProjectRepository) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	query := `
        SELECT id, owner_id, title, description, status, funding_goal, created_at, updated_at
        FROM projects
        WHERE id = $1
    `
	var p model.Project
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Status,
		&p.FundingGoal,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "project not found")
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) SetProjectStatus(ctx context.Context, projectID, status string) error {
	query := `
        UPDATE projects
        SET status = $2, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, projectID, status)
	if err != nil {
		r.logger.Error("Failed to update project status", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "project not found")
	}

	r.logger.Info("Project status updated",
		zap.String("project_id", projectID),
		zap.String("status", status),
	)
	return nil
}
