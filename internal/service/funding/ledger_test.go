package funding

import (
	"context"
	"fmt"
	"testing"
	"time"

	mqcontracts "boundless/contracts/mq"
	"boundless/internal/auth"
	"boundless/internal/domain"
	"boundless/internal/model"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

type fakeStore struct {
	project       *model.Project
	contributions map[string]*model.Contribution
	intents       []mqcontracts.ContributionInitiatedPayload
	nextID        int
}

func newFakeStore(goal int64) *fakeStore {
	return &fakeStore{
		project: &model.Project{
			ID:          "p1",
			OwnerID:     "owner-1",
			Status:      model.ProjectStatusCampaigning,
			FundingGoal: goal,
			CreatedAt:   time.Now().Add(-5 * 24 * time.Hour),
		},
		contributions: make(map[string]*model.Contribution),
	}
}

func (s *fakeStore) GetProject(_ context.Context, projectID string) (*model.Project, error) {
	if projectID != s.project.ID {
		return nil, domain.E(domain.KindNotFound, "project not found")
	}
	return s.project, nil
}

func (s *fakeStore) CreateContributionIntent(_ context.Context, c *model.Contribution, payload mqcontracts.ContributionInitiatedPayload) error {
	s.nextID++
	c.ID = fmt.Sprintf("c%d", s.nextID)
	c.CreatedAt = time.Now()
	clone := *c
	s.contributions[c.ID] = &clone
	payload.ContributionID = c.ID
	s.intents = append(s.intents, payload)
	return nil
}

func (s *fakeStore) GetContribution(_ context.Context, id string) (*model.Contribution, error) {
	c, ok := s.contributions[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "contribution not found")
	}
	clone := *c
	return &clone, nil
}

func (s *fakeStore) SetContributionStatus(_ context.Context, id, status, receipt string) error {
	c, ok := s.contributions[id]
	if !ok {
		return domain.E(domain.KindNotFound, "contribution not found")
	}
	c.Status = status
	if receipt != "" {
		c.LedgerReceipt = receipt
	}
	return nil
}

func (s *fakeStore) Raised(_ context.Context, projectID string) (int64, error) {
	var sum int64
	for _, c := range s.contributions {
		if c.ProjectID == projectID && c.Status == model.ContributionCompleted {
			sum += c.Amount
		}
	}
	return sum, nil
}

func (s *fakeStore) CountBackers(_ context.Context, projectID string) (int, error) {
	backers := make(map[string]struct{})
	for _, c := range s.contributions {
		if c.ProjectID == projectID && c.Status == model.ContributionCompleted {
			backers[c.BackerID] = struct{}{}
		}
	}
	return len(backers), nil
}

type fakeBridge struct {
	refunds []string
	err     error
}

func (b *fakeBridge) Refund(_ context.Context, _, contributionID, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.refunds = append(b.refunds, contributionID)
	return "tx-refund", nil
}

func newTestLedger(store *fakeStore, bridge *fakeBridge) *Ledger {
	return NewLedger(store, util.NewKeyedMutex(), bridge, nil, zap.NewNop())
}

func TestRecordContributionIntentIsPending(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})

	c, err := l.RecordContributionIntent(context.Background(), "p1", "backer-1", 2500)
	if err != nil {
		t.Fatalf("RecordContributionIntent returned error: %v", err)
	}
	if c.Status != model.ContributionPending {
		t.Fatalf("status = %q, want PENDING", c.Status)
	}
	if len(store.intents) != 1 {
		t.Fatalf("settlement events = %d, want 1", len(store.intents))
	}
	if store.intents[0].ContributionID != c.ID {
		t.Fatalf("event contribution id = %q, want %q", store.intents[0].ContributionID, c.ID)
	}
}

func TestRecordContributionIntentRejectsNonPositiveAmount(t *testing.T) {
	l := newTestLedger(newFakeStore(10_000), &fakeBridge{})

	for _, amount := range []int64{0, -5} {
		_, err := l.RecordContributionIntent(context.Background(), "p1", "backer-1", amount)
		if !domain.IsKind(err, domain.KindInvalidInput) {
			t.Fatalf("amount %d error = %v, want invalid_input", amount, err)
		}
	}
}

func TestPendingContributionExcludedFromPercentage(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})
	ctx := context.Background()

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 10_000)

	pct, err := l.FundingPercentage(ctx, "p1")
	if err != nil {
		t.Fatalf("FundingPercentage returned error: %v", err)
	}
	if pct != 0 {
		t.Fatalf("percentage before confirmation = %d, want 0", pct)
	}

	if err := l.ConfirmContribution(ctx, c.ID, "tx1"); err != nil {
		t.Fatalf("ConfirmContribution returned error: %v", err)
	}
	pct, _ = l.FundingPercentage(ctx, "p1")
	if pct != 100 {
		t.Fatalf("percentage after confirmation = %d, want 100", pct)
	}
}

func TestConfirmContributionIsIdempotent(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})
	ctx := context.Background()

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 500)
	if err := l.ConfirmContribution(ctx, c.ID, "tx1"); err != nil {
		t.Fatalf("first confirmation returned error: %v", err)
	}
	if err := l.ConfirmContribution(ctx, c.ID, "tx1"); err != nil {
		t.Fatalf("re-confirmation returned error: %v, want nil", err)
	}

	raised, _ := store.Raised(ctx, "p1")
	if raised != 500 {
		t.Fatalf("raised = %d, want 500 (no double count)", raised)
	}
}

func TestFundingPercentageClampedAt100(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})
	ctx := context.Background()

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 15_000)
	l.ConfirmContribution(ctx, c.ID, "tx1")

	pct, err := l.FundingPercentage(ctx, "p1")
	if err != nil {
		t.Fatalf("FundingPercentage returned error: %v", err)
	}
	if pct != 100 {
		t.Fatalf("percentage = %d, want 100 (clamped)", pct)
	}

	stats, _ := l.Stats(ctx, "p1")
	if stats.Raised != 15_000 {
		t.Fatalf("raw raised = %d, want 15000 (overfunding visible in totals)", stats.Raised)
	}
}

func TestRefundOnlyLegalFromSettledStates(t *testing.T) {
	store := newFakeStore(10_000)
	bridge := &fakeBridge{}
	l := newTestLedger(store, bridge)
	ctx := context.Background()
	backer := auth.ActingContext{UserID: "backer-1"}

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 500)

	// PENDING cannot be refunded
	if err := l.Refund(ctx, backer, c.ID); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("refund of PENDING error = %v, want conflict", err)
	}

	l.ConfirmContribution(ctx, c.ID, "tx1")
	if err := l.Refund(ctx, backer, c.ID); err != nil {
		t.Fatalf("refund of COMPLETED returned error: %v", err)
	}
	if len(bridge.refunds) != 1 {
		t.Fatalf("ledger refund calls = %d, want 1", len(bridge.refunds))
	}

	// second refund is a conflict
	if err := l.Refund(ctx, backer, c.ID); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("double refund error = %v, want conflict", err)
	}
}

func TestRefundLedgerFailureLeavesStatusUnchanged(t *testing.T) {
	store := newFakeStore(10_000)
	bridge := &fakeBridge{err: domain.E(domain.KindLedgerUnavailable, "rpc down")}
	l := newTestLedger(store, bridge)
	ctx := context.Background()

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 500)
	l.ConfirmContribution(ctx, c.ID, "tx1")

	err := l.Refund(ctx, auth.ActingContext{UserID: "backer-1"}, c.ID)
	if !domain.IsKind(err, domain.KindLedgerUnavailable) {
		t.Fatalf("error = %v, want ledger_unavailable", err)
	}
	got, _ := store.GetContribution(ctx, c.ID)
	if got.Status != model.ContributionCompleted {
		t.Fatalf("status after failed refund = %q, want COMPLETED", got.Status)
	}
}

func TestRefundPermission(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})
	ctx := context.Background()

	c, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 500)
	l.ConfirmContribution(ctx, c.ID, "tx1")

	err := l.Refund(ctx, auth.ActingContext{UserID: "stranger"}, c.ID)
	if !domain.IsKind(err, domain.KindInvalidInput) {
		t.Fatalf("stranger refund error = %v, want invalid_input", err)
	}
	if err := l.Refund(ctx, auth.ActingContext{UserID: "ops", IsAdmin: true}, c.ID); err != nil {
		t.Fatalf("admin refund returned error: %v", err)
	}
}

func TestStats(t *testing.T) {
	store := newFakeStore(10_000)
	l := newTestLedger(store, &fakeBridge{})
	ctx := context.Background()

	c1, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 3000)
	c2, _ := l.RecordContributionIntent(ctx, "p1", "backer-2", 2000)
	c3, _ := l.RecordContributionIntent(ctx, "p1", "backer-1", 1000)
	l.ConfirmContribution(ctx, c1.ID, "tx1")
	l.ConfirmContribution(ctx, c2.ID, "tx2")
	l.ConfirmContribution(ctx, c3.ID, "tx3")

	stats, err := l.Stats(ctx, "p1")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Raised != 6000 {
		t.Fatalf("Raised = %d, want 6000", stats.Raised)
	}
	if stats.Backers != 2 {
		t.Fatalf("Backers = %d, want 2 (distinct)", stats.Backers)
	}
	if stats.DaysLeft != 25 {
		t.Fatalf("DaysLeft = %d, want 25 (30-day window, 5 elapsed)", stats.DaysLeft)
	}
}
