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

type VoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewVoteRepository(db *pgxpool.Pool, logger *zap.Logger) *VoteRepository {
	return &VoteRepository{
		db:     db,
		logger: logger,
	}
}

// GetTally 计票：阈值与截止时间来自 vote_tallies，票数实时从 votes 聚合，
// 保证 totalVotes 恒等于当前有效投票人数。
func (r *VoteRepository) GetTally(ctx context.Context, projectID string) (*model.VoteTally, error) {
	query := `
        SELECT t.project_id, t.threshold_votes, t.vote_deadline,
               COUNT(v.id), COUNT(v.id) FILTER (WHERE v.value > 0)
        FROM vote_tallies t
        LEFT JOIN votes v ON v.project_id = t.project_id
        WHERE t.project_id = $1
        GROUP BY t.project_id, t.threshold_votes, t.vote_deadline
    `
	var t model.VoteTally
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&t.ProjectID,
		&t.ThresholdVotes,
		&t.VoteDeadline,
		&t.TotalVotes,
		&t.PositiveVotes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "vote tally not found")
	}
	if err != nil {
		r.logger.Error("Failed to get vote tally", zap.Error(err))
		return nil, err
	}
	return &t, nil
}

func (r *VoteRepository) GetVote(ctx context.Context, projectID, voterID string) (*model.Vote, error) {
	query := `
        SELECT id, project_id, voter_id, value, created_at, updated_at
        FROM votes
        WHERE project_id = $1 AND voter_id = $2
    `
	var v model.Vote
	err := r.db.QueryRow(ctx, query, projectID, voterID).Scan(
		&v.ID,
		&v.ProjectID,
		&v.VoterID,
		&v.Value,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vote", zap.Error(err))
		return nil, err
	}
	return &v, nil
}

func (r *VoteRepository) UpsertVote(ctx context.Context, vote *model.Vote) error {
	query := `
        INSERT INTO votes (project_id, voter_id, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (project_id, voter_id)
        DO UPDATE SET value = EXCLUDED.value, updated_at = now()
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, vote.ProjectID, vote.VoterID, vote.Value).Scan(&vote.ID)
	if err != nil {
		r.logger.Error("Failed to upsert vote", zap.Error(err))
		return err
	}
	return nil
}

func (r *VoteRepository) DeleteVote(ctx context.Context, projectID, voterID string) error {
	query := `DELETE FROM votes WHERE project_id = $1 AND voter_id = $2`
	tag, err := r.db.Exec(ctx, query, projectID, voterID)
	if err != nil {
		r.logger.Error("Failed to delete vote", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "no vote found")
	}
	return nil
}
