package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store composes the entity repositories into the single persistence surface
// the services consume.
type Store struct {
	*ProjectRepository
	*VoteRepository
	*ContributionRepository
	*MilestoneRepository
	*TeamRepository
}

func NewStore(db *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		ProjectRepository:      NewProjectRepository(db, logger),
		VoteRepository:         NewVoteRepository(db, logger),
		ContributionRepository: NewContributionRepository(db, logger),
		MilestoneRepository:    NewMilestoneRepository(db, logger),
		TeamRepository:         NewTeamRepository(db, logger),
	}
}
