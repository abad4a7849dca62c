package ledger

import (
	"context"

	"go.uber.org/zap"
)

// Bridge is the typed gateway the lifecycle services talk to. It owns the
// token contract address so callers never pass ledger wiring around.
type Bridge struct {
	invoker       Invoker
	oracle        Oracle
	tokenContract string
	logger        *zap.Logger
}

func NewBridge(invoker Invoker, oracle Oracle, tokenContract string, logger *zap.Logger) *Bridge {
	return &Bridge{
		invoker:       invoker,
		oracle:        oracle,
		tokenContract: tokenContract,
		logger:        logger,
	}
}

// FundProject escrows a contribution. The idempotency key is the contribution
// id so a retried settlement never double-funds.
func (b *Bridge) FundProject(ctx context.Context, projectID, funder string, amountStroops int64, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, FundProject{
		ProjectID:     projectID,
		Amount:        amountStroops,
		Funder:        funder,
		TokenContract: b.tokenContract,
	}, idemKey)
}

// ReleaseMilestone releases the escrowed tranche for one milestone.
func (b *Bridge) ReleaseMilestone(ctx context.Context, projectID string, milestoneNumber int, admin, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, ReleaseMilestone{
		ProjectID:       projectID,
		MilestoneNumber: milestoneNumber,
		Admin:           admin,
	}, idemKey)
}

// Refund returns a completed contribution to its funder.
func (b *Bridge) Refund(ctx context.Context, projectID, contributionID, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, Refund{
		ProjectID:      projectID,
		ContributionID: contributionID,
		TokenContract:  b.tokenContract,
	}, idemKey)
}

// VoteProject records a validation vote on the ledger.
func (b *Bridge) VoteProject(ctx context.Context, projectID, voter string, value int, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, VoteProject{
		ProjectID: projectID,
		Voter:     voter,
		VoteValue: value,
	}, idemKey)
}

// WithdrawVote removes the caller's validation vote.
func (b *Bridge) WithdrawVote(ctx context.Context, projectID, voter, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, WithdrawVote{
		ProjectID: projectID,
		Voter:     voter,
	}, idemKey)
}

// CreateProject registers the project escrow on the ledger.
func (b *Bridge) CreateProject(ctx context.Context, projectID, creator, metadataURI string, fundingTarget int64, milestoneCount int, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, CreateProject{
		ProjectID:      projectID,
		Creator:        creator,
		MetadataURI:    metadataURI,
		FundingTarget:  fundingTarget,
		MilestoneCount: milestoneCount,
	}, idemKey)
}

// CloseProject closes the project escrow.
func (b *Bridge) CloseProject(ctx context.Context, projectID, creator, idemKey string) (string, error) {
	return b.invoker.Invoke(ctx, CloseProject{
		ProjectID: projectID,
		Creator:   creator,
	}, idemKey)
}

// ConvertUSD resolves the oracle rate and converts usd to stroops. Oracle
// failure surfaces as LedgerUnavailable so callers can defer the operation.
func (b *Bridge) ConvertUSD(ctx context.Context, usd float64) (int64, error) {
	rate, err := b.oracle.XLMPriceUSD(ctx)
	if err != nil {
		return 0, err
	}
	return USDToStroops(usd, rate)
}
