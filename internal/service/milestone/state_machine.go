package milestone

import (
	"context"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/auth"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/metrics"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

// 进度变化达到该幅度才通知干系人，避免小幅进度刷屏
const significantProgressDelta = 20

// Store is the persistence surface the state machine needs.
// GetMilestoneByOrdinal returns (nil, nil) when no such ordinal exists.
type Store interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	SetProjectStatus(ctx context.Context, projectID, status string) error
	GetMilestone(ctx context.Context, milestoneID string) (*model.Milestone, error)
	GetMilestoneByOrdinal(ctx context.Context, projectID string, ordinal int) (*model.Milestone, error)
	UpdateMilestone(ctx context.Context, m *model.Milestone) error
	AnyMilestoneInProgress(ctx context.Context, projectID string) (bool, error)
	IsTeamMember(ctx context.Context, projectID, userID string) (bool, error)
	TeamMemberIDs(ctx context.Context, projectID string) ([]string, error)
}

// Bridge is the slice of the ledger gateway milestone operations need.
type Bridge interface {
	ReleaseMilestone(ctx context.Context, projectID string, milestoneNumber int, admin, idemKey string) (string, error)
	CloseProject(ctx context.Context, projectID, creator, idemKey string) (string, error)
}

// Notifier enqueues stakeholder notifications.
type Notifier interface {
	MilestoneUpdated(ctx context.Context, payload mqcontracts.MilestoneUpdatedPayload) error
	MilestoneCompleted(ctx context.Context, payload mqcontracts.MilestoneCompletedPayload) error
	MilestoneRejected(ctx context.Context, payload mqcontracts.MilestoneRejectedPayload) error
}

// PhaseObserver recomputes the derived project phase after a mutation.
type PhaseObserver interface {
	Observe(ctx context.Context, projectID string)
}

// StateMachine 驱动里程碑生命周期。完成操作先过序号门禁，
// 账本确认放款之后才落 COMPLETED，绝不乐观提交。
type StateMachine struct {
	store    Store
	locks    *util.KeyedMutex
	bridge   Bridge
	notifier Notifier
	phases   PhaseObserver
	logger   *zap.Logger
	now      func() time.Time
}

func NewStateMachine(store Store, locks *util.KeyedMutex, bridge Bridge, notifier Notifier, phases PhaseObserver, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		store:    store,
		locks:    locks,
		bridge:   bridge,
		notifier: notifier,
		phases:   phases,
		logger:   logger,
		now:      time.Now,
	}
}

// UpdateProgress records a progress tick and, when the change is significant
// (status change or a >=20-point delta), notifies the team minus the actor.
// newStatus may be empty to keep the current status; terminal statuses must
// go through Complete or Reject.
func (sm *StateMachine) UpdateProgress(ctx context.Context, actor auth.ActingContext, milestoneID string, newProgress int, newStatus string) (*model.Milestone, error) {
	if newProgress < 0 || newProgress > 100 {
		return nil, domain.E(domain.KindInvalidInput, "progress must be between 0 and 100")
	}
	switch newStatus {
	case "", model.MilestonePending, model.MilestoneInProgress:
	case model.MilestoneCompleted, model.MilestoneRejected:
		return nil, domain.E(domain.KindInvalidInput, "terminal status requires complete or reject")
	default:
		return nil, domain.Ef(domain.KindInvalidInput, "unknown status %q", newStatus)
	}

	m, err := sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	sm.locks.Lock(m.ProjectID)
	defer sm.locks.Unlock(m.ProjectID)

	m, err = sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.Terminal() {
		return nil, domain.Ef(domain.KindConflict, "milestone is %s", m.Status)
	}

	project, err := sm.store.GetProject(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := sm.requireTeam(ctx, actor, project, true); err != nil {
		return nil, err
	}

	oldProgress := m.Progress
	oldStatus := m.Status

	m.Progress = newProgress
	if newStatus != "" {
		m.Status = newStatus
	}
	m.UpdatedBy = actor.UserID
	if err := sm.store.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}

	statusChanged := newStatus != "" && newStatus != oldStatus
	delta := newProgress - oldProgress
	if delta < 0 {
		delta = -delta
	}
	isSignificant := statusChanged || delta >= significantProgressDelta

	sm.logger.Info("milestone progress updated",
		zap.String("milestone_id", milestoneID),
		zap.String("project_id", m.ProjectID),
		zap.Int("progress", newProgress),
		zap.Bool("significant", isSignificant),
	)

	if isSignificant {
		recipients, err := sm.recipients(ctx, project, actor.UserID)
		if err != nil {
			return nil, err
		}
		payload := mqcontracts.MilestoneUpdatedPayload{
			ProjectID:        project.ID,
			ProjectTitle:     project.Title,
			MilestoneID:      m.ID,
			MilestoneTitle:   m.Title,
			UpdaterName:      actor.UserID,
			RecipientUserIDs: recipients,
		}
		if err := sm.notifier.MilestoneUpdated(ctx, payload); err != nil {
			sm.logger.Warn("failed to enqueue milestone updated notification",
				zap.String("milestone_id", milestoneID),
				zap.Error(err),
			)
		}
	}

	if sm.phases != nil {
		sm.phases.Observe(ctx, m.ProjectID)
	}
	return m, nil
}

// Complete releases the milestone's escrowed tranche and marks it COMPLETED.
// The ordinal gate is checked before any ledger call; on ledger failure the
// milestone keeps its pre-completion status.
func (sm *StateMachine) Complete(ctx context.Context, actor auth.ActingContext, milestoneID string) (*model.Milestone, error) {
	m, err := sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	sm.locks.Lock(m.ProjectID)
	defer sm.locks.Unlock(m.ProjectID)

	m, err = sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.Terminal() {
		return nil, domain.Ef(domain.KindConflict, "milestone is %s", m.Status)
	}

	project, err := sm.store.GetProject(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := sm.requireTeam(ctx, actor, project, false); err != nil {
		return nil, err
	}

	// 序号门禁先于任何账本调用
	if m.Ordinal > 1 {
		prev, err := sm.store.GetMilestoneByOrdinal(ctx, m.ProjectID, m.Ordinal-1)
		if err != nil {
			return nil, err
		}
		if prev == nil || prev.Status != model.MilestoneCompleted {
			metrics.IncrementMilestoneRelease("blocked")
			return nil, domain.Ef(domain.KindInvalidInput, "milestone %d cannot complete before milestone %d", m.Ordinal, m.Ordinal-1)
		}
	}

	receipt, err := sm.bridge.ReleaseMilestone(ctx, m.ProjectID, m.Ordinal, actor.UserID, m.ID)
	if err != nil {
		metrics.IncrementMilestoneRelease("rejected")
		return nil, err
	}

	completedAt := sm.now()
	m.Status = model.MilestoneCompleted
	m.Progress = 100
	m.CompletedAt = &completedAt
	m.UpdatedBy = actor.UserID
	if err := sm.store.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}

	metrics.IncrementMilestoneRelease("released")
	sm.logger.Info("milestone completed",
		zap.String("milestone_id", milestoneID),
		zap.String("project_id", m.ProjectID),
		zap.Int("ordinal", m.Ordinal),
		zap.String("ledger_receipt", receipt),
	)

	recipients, err := sm.recipients(ctx, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	updated := mqcontracts.MilestoneUpdatedPayload{
		ProjectID:        project.ID,
		ProjectTitle:     project.Title,
		MilestoneID:      m.ID,
		MilestoneTitle:   m.Title,
		UpdaterName:      actor.UserID,
		RecipientUserIDs: recipients,
	}
	if err := sm.notifier.MilestoneUpdated(ctx, updated); err != nil {
		sm.logger.Warn("failed to enqueue milestone updated notification", zap.Error(err))
	}
	completed := mqcontracts.MilestoneCompletedPayload{
		ProjectID:        project.ID,
		ProjectTitle:     project.Title,
		MilestoneID:      m.ID,
		MilestoneTitle:   m.Title,
		UpdaterName:      actor.UserID,
		RecipientUserIDs: recipients,
		IsOwnerRecipient: actor.UserID != project.OwnerID,
	}
	if err := sm.notifier.MilestoneCompleted(ctx, completed); err != nil {
		sm.logger.Warn("failed to enqueue milestone completed notification", zap.Error(err))
	}

	if sm.phases != nil {
		sm.phases.Observe(ctx, m.ProjectID)
	}
	return m, nil
}

// Reject marks a milestone REJECTED without touching the ledger. Admin only.
func (sm *StateMachine) Reject(ctx context.Context, actor auth.ActingContext, milestoneID string) (*model.Milestone, error) {
	if !actor.IsAdmin {
		return nil, domain.E(domain.KindInvalidInput, "admin required")
	}

	m, err := sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	sm.locks.Lock(m.ProjectID)
	defer sm.locks.Unlock(m.ProjectID)

	m, err = sm.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.Terminal() {
		return nil, domain.Ef(domain.KindConflict, "milestone is %s", m.Status)
	}

	project, err := sm.store.GetProject(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}

	m.Status = model.MilestoneRejected
	m.UpdatedBy = actor.UserID
	if err := sm.store.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}

	metrics.IncrementMilestoneRelease("rejected")
	sm.logger.Info("milestone rejected",
		zap.String("milestone_id", milestoneID),
		zap.String("project_id", m.ProjectID),
		zap.String("admin", actor.UserID),
	)

	// 拒绝通知发给所有者和全部团队成员，管理员不在收件人里
	recipients, err := sm.recipients(ctx, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	payload := mqcontracts.MilestoneRejectedPayload{
		ProjectID:        project.ID,
		ProjectTitle:     project.Title,
		MilestoneID:      m.ID,
		MilestoneTitle:   m.Title,
		RecipientUserIDs: recipients,
	}
	if err := sm.notifier.MilestoneRejected(ctx, payload); err != nil {
		sm.logger.Warn("failed to enqueue milestone rejected notification", zap.Error(err))
	}

	if sm.phases != nil {
		sm.phases.Observe(ctx, m.ProjectID)
	}
	return m, nil
}

// CloseProject closes a project's escrow. Admin only, and only while no
// milestone is mid-flight.
func (sm *StateMachine) CloseProject(ctx context.Context, actor auth.ActingContext, projectID string) error {
	if !actor.IsAdmin {
		return domain.E(domain.KindInvalidInput, "admin required")
	}

	sm.locks.Lock(projectID)
	defer sm.locks.Unlock(projectID)

	project, err := sm.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status == model.ProjectStatusClosed {
		return domain.E(domain.KindConflict, "project already closed")
	}

	inProgress, err := sm.store.AnyMilestoneInProgress(ctx, projectID)
	if err != nil {
		return err
	}
	if inProgress {
		return domain.E(domain.KindConflict, "project has a milestone in progress")
	}

	if _, err := sm.bridge.CloseProject(ctx, projectID, project.OwnerID, projectID+":close"); err != nil {
		return err
	}

	if err := sm.store.SetProjectStatus(ctx, projectID, model.ProjectStatusClosed); err != nil {
		return err
	}
	sm.logger.Info("project closed",
		zap.String("project_id", projectID),
		zap.String("admin", actor.UserID),
	)

	if sm.phases != nil {
		sm.phases.Observe(ctx, projectID)
	}
	return nil
}

// requireTeam checks that the actor may mutate milestones of the project.
func (sm *StateMachine) requireTeam(ctx context.Context, actor auth.ActingContext, project *model.Project, allowAdmin bool) error {
	if actor.UserID == project.OwnerID {
		return nil
	}
	if allowAdmin && actor.IsAdmin {
		return nil
	}
	member, err := sm.store.IsTeamMember(ctx, project.ID, actor.UserID)
	if err != nil {
		return err
	}
	if !member {
		return domain.E(domain.KindInvalidInput, "not a project team member")
	}
	return nil
}

// recipients is the owner plus all team members, minus the acting user.
func (sm *StateMachine) recipients(ctx context.Context, project *model.Project, actorID string) ([]string, error) {
	members, err := sm.store.TeamMemberIDs(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{actorID: {}}
	var recipients []string
	for _, id := range append([]string{project.OwnerID}, members...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients, nil
}
