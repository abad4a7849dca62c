package status

import (
	"context"
	"testing"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/model"

	"go.uber.org/zap"
)

type fakeStore struct {
	project *model.Project
	tally   *model.VoteTally
	raised  int64
}

func (s *fakeStore) GetProject(context.Context, string) (*model.Project, error) {
	return s.project, nil
}

func (s *fakeStore) GetTally(context.Context, string) (*model.VoteTally, error) {
	return s.tally, nil
}

func (s *fakeStore) Raised(context.Context, string) (int64, error) {
	return s.raised, nil
}

type mapPhaseStore struct {
	phases map[string]string
}

func (s *mapPhaseStore) Get(_ context.Context, projectID string) (string, error) {
	return s.phases[projectID], nil
}

func (s *mapPhaseStore) Set(_ context.Context, projectID, phase string) error {
	s.phases[projectID] = phase
	return nil
}

type fakeNotifier struct {
	changes []mqcontracts.ProjectPhaseChangedPayload
}

func (n *fakeNotifier) ProjectPhaseChanged(_ context.Context, p mqcontracts.ProjectPhaseChangedPayload) error {
	n.changes = append(n.changes, p)
	return nil
}

func TestObserveEmitsOnPhaseChangeOnly(t *testing.T) {
	store := &fakeStore{
		project: &model.Project{ID: "p1", Status: model.ProjectStatusIdea, FundingGoal: 10_000},
		tally:   &model.VoteTally{ProjectID: "p1", TotalVotes: 2, ThresholdVotes: 10, VoteDeadline: time.Now().Add(time.Hour)},
	}
	phases := &mapPhaseStore{phases: make(map[string]string)}
	notifier := &fakeNotifier{}
	tracker := NewTracker(store, phases, notifier, zap.NewNop())
	ctx := context.Background()

	// first observation registers without emitting
	tracker.Observe(ctx, "p1")
	if len(notifier.changes) != 0 {
		t.Fatalf("changes after first observation = %d, want 0", len(notifier.changes))
	}

	// same phase, no event
	tracker.Observe(ctx, "p1")
	if len(notifier.changes) != 0 {
		t.Fatalf("changes after repeat observation = %d, want 0", len(notifier.changes))
	}

	// threshold reached closes the voting window: Validation -> Idea
	store.tally.TotalVotes = 10
	tracker.Observe(ctx, "p1")
	if len(notifier.changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(notifier.changes))
	}
	got := notifier.changes[0]
	if got.PreviousPhase != string(PhaseValidation) || got.NewPhase != string(PhaseIdea) {
		t.Fatalf("change = %s -> %s, want Validation -> Idea", got.PreviousPhase, got.NewPhase)
	}
}
