package voting

import (
	"context"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/metrics"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

// Store is the persistence surface the engine needs. GetVote returns
// (nil, nil) when the voter has no active vote.
type Store interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	GetTally(ctx context.Context, projectID string) (*model.VoteTally, error)
	GetVote(ctx context.Context, projectID, voterID string) (*model.Vote, error)
	UpsertVote(ctx context.Context, vote *model.Vote) error
	DeleteVote(ctx context.Context, projectID, voterID string) error
}

// Notifier enqueues the owner notification fired when a cast crosses the
// validation threshold.
type Notifier interface {
	ProjectValidated(ctx context.Context, payload mqcontracts.ProjectValidatedPayload) error
}

// PhaseObserver recomputes the derived project phase after a mutation.
type PhaseObserver interface {
	Observe(ctx context.Context, projectID string)
}

// Engine 负责创意验证投票的计票。所有修改都在项目级互斥锁下执行，
// 保证并发投票不丢更新。
type Engine struct {
	store    Store
	locks    *util.KeyedMutex
	notifier Notifier
	phases   PhaseObserver
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(store Store, locks *util.KeyedMutex, notifier Notifier, phases PhaseObserver, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		locks:    locks,
		notifier: notifier,
		phases:   phases,
		logger:   logger,
		now:      time.Now,
	}
}

// CastVote records a +1/-1 validation vote. Re-casting the same value is a
// conflict no-op; a changed value overwrites the prior vote without changing
// the distinct-voter count.
func (e *Engine) CastVote(ctx context.Context, projectID, voterID string, value int) (*model.VoteTally, error) {
	if value != 1 && value != -1 {
		return nil, domain.E(domain.KindInvalidInput, "vote value must be +1 or -1")
	}

	e.locks.Lock(projectID)
	defer e.locks.Unlock(projectID)

	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	tally, err := e.store.GetTally(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !e.now().Before(tally.VoteDeadline) {
		metrics.IncrementVoteCast("closed")
		return nil, domain.E(domain.KindWindowClosed, "voting period has ended")
	}

	existing, err := e.store.GetVote(ctx, projectID, voterID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Value == value {
		metrics.IncrementVoteCast("conflict")
		return nil, domain.E(domain.KindConflict, "already voted")
	}

	wasValidated := IsValidated(tally)

	vote := &model.Vote{
		ProjectID: projectID,
		VoterID:   voterID,
		Value:     value,
	}
	if existing != nil {
		vote.ID = existing.ID
	}
	if err := e.store.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}

	after, err := e.store.GetTally(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := "cast"
	if existing != nil {
		result = "changed"
	}
	metrics.IncrementVoteCast(result)
	e.logger.Info("vote cast",
		zap.String("project_id", projectID),
		zap.String("voter_id", voterID),
		zap.Int("value", value),
		zap.Int("total_votes", after.TotalVotes),
	)

	// 首次越过阈值时通知项目所有者。通知入队失败不回滚已提交的投票。
	if !wasValidated && IsValidated(after) {
		payload := mqcontracts.ProjectValidatedPayload{
			ProjectID:    projectID,
			ProjectTitle: project.Title,
			OwnerID:      project.OwnerID,
			VoteCount:    after.TotalVotes,
		}
		if err := e.notifier.ProjectValidated(ctx, payload); err != nil {
			e.logger.Warn("failed to enqueue project validated notification",
				zap.String("project_id", projectID),
				zap.Error(err),
			)
		}
	}

	if e.phases != nil {
		e.phases.Observe(ctx, projectID)
	}
	return after, nil
}

// WithdrawVote removes the voter's contribution to the tally.
func (e *Engine) WithdrawVote(ctx context.Context, projectID, voterID string) (*model.VoteTally, error) {
	e.locks.Lock(projectID)
	defer e.locks.Unlock(projectID)

	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	tally, err := e.store.GetTally(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !e.now().Before(tally.VoteDeadline) {
		return nil, domain.E(domain.KindWindowClosed, "voting period has ended")
	}

	existing, err := e.store.GetVote(ctx, projectID, voterID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.E(domain.KindNotFound, "no vote found")
	}

	if err := e.store.DeleteVote(ctx, projectID, voterID); err != nil {
		return nil, err
	}

	after, err := e.store.GetTally(ctx, projectID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("vote withdrawn",
		zap.String("project_id", projectID),
		zap.String("voter_id", voterID),
		zap.Int("total_votes", after.TotalVotes),
	)

	if e.phases != nil {
		e.phases.Observe(ctx, projectID)
	}
	return after, nil
}

// Tally returns the current tally for a project.
func (e *Engine) Tally(ctx context.Context, projectID string) (*model.VoteTally, error) {
	return e.store.GetTally(ctx, projectID)
}

// IsValidated reports whether the tally has reached its threshold.
func IsValidated(tally *model.VoteTally) bool {
	return tally.TotalVotes >= tally.ThresholdVotes
}

// Outcome resolves the validation result at now. Deadline expiry below the
// threshold is an explicit rejection, not a silent pending state.
func Outcome(tally *model.VoteTally, now time.Time) model.VoteOutcome {
	if IsValidated(tally) {
		return model.VoteOutcomeValidated
	}
	if !now.Before(tally.VoteDeadline) {
		return model.VoteOutcomeRejected
	}
	return model.VoteOutcomePending
}
