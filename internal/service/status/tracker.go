package status

import (
	"context"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const phaseKeyPrefix = "project_phase:"

// Store is the read surface the tracker resolves phases from.
type Store interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	GetTally(ctx context.Context, projectID string) (*model.VoteTally, error)
	Raised(ctx context.Context, projectID string) (int64, error)
}

// PhaseStore holds the last-observed phase per project.
type PhaseStore interface {
	Get(ctx context.Context, projectID string) (string, error)
	Set(ctx context.Context, projectID, phase string) error
}

// Notifier receives the synthesized phase-change events.
type Notifier interface {
	ProjectPhaseChanged(ctx context.Context, payload mqcontracts.ProjectPhaseChangedPayload) error
}

// RedisPhaseStore keeps the last-observed phase in Redis so phase-change
// synthesis survives restarts and is shared across instances.
type RedisPhaseStore struct {
	rdb *redis.Client
}

func NewRedisPhaseStore(rdb *redis.Client) *RedisPhaseStore {
	return &RedisPhaseStore{rdb: rdb}
}

func (s *RedisPhaseStore) Get(ctx context.Context, projectID string) (string, error) {
	v, err := s.rdb.Get(ctx, phaseKeyPrefix+projectID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (s *RedisPhaseStore) Set(ctx context.Context, projectID, phase string) error {
	return s.rdb.Set(ctx, phaseKeyPrefix+projectID, phase, 0).Err()
}

// Tracker 在每次状态重算后比对上次观察到的阶段，不同则合成 phase_changed 事件。
type Tracker struct {
	store    Store
	phases   PhaseStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(store Store, phases PhaseStore, notifier Notifier, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:    store,
		phases:   phases,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve computes the current phase of a project.
func (t *Tracker) Resolve(ctx context.Context, projectID string) (Phase, error) {
	project, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	tally, err := t.store.GetTally(ctx, projectID)
	if err != nil {
		return "", err
	}
	raised, err := t.store.Raised(ctx, projectID)
	if err != nil {
		return "", err
	}
	return Resolve(project, tally, raised, t.now()), nil
}

// Observe recomputes the phase after a mutation and emits a change event when
// it differs from the last observation. Best-effort: failures are logged, the
// triggering mutation has already committed.
func (t *Tracker) Observe(ctx context.Context, projectID string) {
	phase, err := t.Resolve(ctx, projectID)
	if err != nil {
		t.logger.Warn("phase recomputation failed",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return
	}

	prev, err := t.phases.Get(ctx, projectID)
	if err != nil {
		t.logger.Warn("failed to read last-observed phase",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return
	}
	if prev == string(phase) {
		return
	}

	if err := t.phases.Set(ctx, projectID, string(phase)); err != nil {
		t.logger.Warn("failed to store observed phase",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return
	}

	// 首次观察只登记，不发事件
	if prev == "" {
		return
	}

	t.logger.Info("project phase changed",
		zap.String("project_id", projectID),
		zap.String("previous_phase", prev),
		zap.String("new_phase", string(phase)),
	)
	payload := mqcontracts.ProjectPhaseChangedPayload{
		ProjectID:     projectID,
		PreviousPhase: prev,
		NewPhase:      string(phase),
	}
	if err := t.notifier.ProjectPhaseChanged(ctx, payload); err != nil {
		t.logger.Warn("failed to enqueue phase change notification",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}
}
