package voting

import (
	"context"
	"fmt"
	"testing"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

type fakeStore struct {
	project  *model.Project
	votes    map[string]*model.Vote // voterID -> vote
	threshold int
	deadline time.Time
	nextID   int
}

func newFakeStore(threshold int, deadline time.Time) *fakeStore {
	return &fakeStore{
		project: &model.Project{
			ID:      "p1",
			OwnerID: "owner-1",
			Title:   "Solar Microgrid",
			Status:  model.ProjectStatusIdea,
		},
		votes:     make(map[string]*model.Vote),
		threshold: threshold,
		deadline:  deadline,
	}
}

func (s *fakeStore) GetProject(_ context.Context, projectID string) (*model.Project, error) {
	if projectID != s.project.ID {
		return nil, domain.E(domain.KindNotFound, "project not found")
	}
	return s.project, nil
}

func (s *fakeStore) GetTally(_ context.Context, projectID string) (*model.VoteTally, error) {
	tally := &model.VoteTally{
		ProjectID:      projectID,
		ThresholdVotes: s.threshold,
		VoteDeadline:   s.deadline,
	}
	for _, v := range s.votes {
		tally.TotalVotes++
		if v.Value > 0 {
			tally.PositiveVotes++
		}
	}
	return tally, nil
}

func (s *fakeStore) GetVote(_ context.Context, _, voterID string) (*model.Vote, error) {
	return s.votes[voterID], nil
}

func (s *fakeStore) UpsertVote(_ context.Context, vote *model.Vote) error {
	if vote.ID == "" {
		s.nextID++
		vote.ID = fmt.Sprintf("v%d", s.nextID)
	}
	s.votes[vote.VoterID] = vote
	return nil
}

func (s *fakeStore) DeleteVote(_ context.Context, _, voterID string) error {
	delete(s.votes, voterID)
	return nil
}

type fakeNotifier struct {
	validated []mqcontracts.ProjectValidatedPayload
}

func (n *fakeNotifier) ProjectValidated(_ context.Context, p mqcontracts.ProjectValidatedPayload) error {
	n.validated = append(n.validated, p)
	return nil
}

func newTestEngine(store *fakeStore, notifier *fakeNotifier) *Engine {
	return NewEngine(store, util.NewKeyedMutex(), notifier, nil, zap.NewNop())
}

func TestCastVoteSameValueIsConflictNoOp(t *testing.T) {
	store := newFakeStore(10, time.Now().Add(time.Hour))
	e := newTestEngine(store, &fakeNotifier{})

	tally, err := e.CastVote(context.Background(), "p1", "alice", 1)
	if err != nil {
		t.Fatalf("first cast returned error: %v", err)
	}
	if tally.TotalVotes != 1 {
		t.Fatalf("TotalVotes = %d, want 1", tally.TotalVotes)
	}

	_, err = e.CastVote(context.Background(), "p1", "alice", 1)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("second cast error = %v, want conflict", err)
	}
	after, _ := store.GetTally(context.Background(), "p1")
	if after.TotalVotes != 1 {
		t.Fatalf("TotalVotes after duplicate cast = %d, want 1", after.TotalVotes)
	}
}

func TestCastVoteChangedValueOverwrites(t *testing.T) {
	store := newFakeStore(10, time.Now().Add(time.Hour))
	e := newTestEngine(store, &fakeNotifier{})

	if _, err := e.CastVote(context.Background(), "p1", "alice", 1); err != nil {
		t.Fatalf("cast +1 returned error: %v", err)
	}
	tally, err := e.CastVote(context.Background(), "p1", "alice", -1)
	if err != nil {
		t.Fatalf("cast -1 returned error: %v", err)
	}
	if tally.TotalVotes != 1 {
		t.Fatalf("TotalVotes = %d, want 1 (overwrite keeps distinct-voter count)", tally.TotalVotes)
	}
	if tally.PositiveVotes != 0 {
		t.Fatalf("PositiveVotes = %d, want 0", tally.PositiveVotes)
	}
}

func TestTallyMatchesDistinctVoters(t *testing.T) {
	store := newFakeStore(10, time.Now().Add(time.Hour))
	e := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	e.CastVote(ctx, "p1", "alice", 1)
	e.CastVote(ctx, "p1", "bob", -1)
	e.CastVote(ctx, "p1", "carol", 1)
	e.CastVote(ctx, "p1", "bob", 1) // change
	e.WithdrawVote(ctx, "p1", "alice")

	tally, _ := store.GetTally(ctx, "p1")
	if tally.TotalVotes != len(store.votes) {
		t.Fatalf("TotalVotes = %d, want %d distinct voters", tally.TotalVotes, len(store.votes))
	}
	if tally.TotalVotes != 2 {
		t.Fatalf("TotalVotes = %d, want 2", tally.TotalVotes)
	}
}

func TestCastVoteAfterDeadline(t *testing.T) {
	store := newFakeStore(10, time.Now().Add(-time.Minute))
	e := newTestEngine(store, &fakeNotifier{})

	_, err := e.CastVote(context.Background(), "p1", "alice", 1)
	if !domain.IsKind(err, domain.KindWindowClosed) {
		t.Fatalf("error = %v, want window_closed", err)
	}
}

func TestCastVoteRejectsBadValue(t *testing.T) {
	e := newTestEngine(newFakeStore(10, time.Now().Add(time.Hour)), &fakeNotifier{})

	_, err := e.CastVote(context.Background(), "p1", "alice", 2)
	if !domain.IsKind(err, domain.KindInvalidInput) {
		t.Fatalf("error = %v, want invalid_input", err)
	}
}

func TestWithdrawVoteWithoutVote(t *testing.T) {
	e := newTestEngine(newFakeStore(10, time.Now().Add(time.Hour)), &fakeNotifier{})

	_, err := e.WithdrawVote(context.Background(), "p1", "alice")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestThresholdCrossingNotifiesOwnerOnce(t *testing.T) {
	store := newFakeStore(2, time.Now().Add(time.Hour))
	notifier := &fakeNotifier{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	e.CastVote(ctx, "p1", "alice", 1)
	if len(notifier.validated) != 0 {
		t.Fatalf("notified below threshold")
	}
	e.CastVote(ctx, "p1", "bob", 1)
	if len(notifier.validated) != 1 {
		t.Fatalf("validated notifications = %d, want 1", len(notifier.validated))
	}
	if notifier.validated[0].OwnerID != "owner-1" {
		t.Fatalf("notification owner = %q, want owner-1", notifier.validated[0].OwnerID)
	}

	// a vote change above the threshold must not re-notify
	e.CastVote(ctx, "p1", "bob", -1)
	if len(notifier.validated) != 1 {
		t.Fatalf("validated notifications after change = %d, want 1", len(notifier.validated))
	}
}

func TestConcurrentCastsLoseNoUpdate(t *testing.T) {
	store := newFakeStore(1000, time.Now().Add(time.Hour))
	e := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			e.CastVote(ctx, "p1", fmt.Sprintf("voter-%d", n), 1)
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	tally, _ := store.GetTally(ctx, "p1")
	if tally.TotalVotes != 50 {
		t.Fatalf("TotalVotes = %d, want 50", tally.TotalVotes)
	}
}

func TestOutcome(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		tally model.VoteTally
		want  model.VoteOutcome
	}{
		{"threshold reached", model.VoteTally{TotalVotes: 5, ThresholdVotes: 5, VoteDeadline: now.Add(time.Hour)}, model.VoteOutcomeValidated},
		{"threshold reached after deadline", model.VoteTally{TotalVotes: 6, ThresholdVotes: 5, VoteDeadline: now.Add(-time.Hour)}, model.VoteOutcomeValidated},
		{"expired below threshold", model.VoteTally{TotalVotes: 3, ThresholdVotes: 5, VoteDeadline: now.Add(-time.Hour)}, model.VoteOutcomeRejected},
		{"open below threshold", model.VoteTally{TotalVotes: 3, ThresholdVotes: 5, VoteDeadline: now.Add(time.Hour)}, model.VoteOutcomePending},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Outcome(&c.tally, now); got != c.want {
				t.Fatalf("Outcome = %v, want %v", got, c.want)
			}
		})
	}
}
