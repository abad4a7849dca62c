package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TeamRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTeamRepository(db *pgxpool.Pool, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TeamRepository) IsTeamMember(ctx context.Context, projectID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM team_members WHERE project_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, projectID, userID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check team membership", zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *TeamRepository) TeamMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	query := `SELECT user_id FROM team_members WHERE project_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list team members", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan team member", zap.Error(err))
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
