package ledger

// Op is the closed set of escrow contract operations the lifecycle needs.
// Each variant carries its own typed parameters and is dispatched with a type
// switch in the client; there is no method-name string lookup anywhere.
type Op interface {
	Name() string
}

type FundProject struct {
	ProjectID     string
	Amount        int64 // stroops
	Funder        string
	TokenContract string
}

func (FundProject) Name() string { return "fund_project" }

type ReleaseMilestone struct {
	ProjectID       string
	MilestoneNumber int
	Admin           string
}

func (ReleaseMilestone) Name() string { return "release_milestone" }

type Refund struct {
	ProjectID     string
	ContributionID string
	TokenContract string
}

func (Refund) Name() string { return "refund" }

type VoteProject struct {
	ProjectID string
	Voter     string
	VoteValue int // +1 / -1
}

func (VoteProject) Name() string { return "vote_project" }

type WithdrawVote struct {
	ProjectID string
	Voter     string
}

func (WithdrawVote) Name() string { return "withdraw_vote" }

type CreateProject struct {
	ProjectID      string
	Creator        string
	MetadataURI    string
	FundingTarget  int64 // stroops
	MilestoneCount int
}

func (CreateProject) Name() string { return "create_project" }

type CloseProject struct {
	ProjectID string
	Creator   string
}

func (CloseProject) Name() string { return "close_project" }

// params flattens an op into the JSON argument map the ledger RPC expects.
func params(op Op) map[string]any {
	switch o := op.(type) {
	case FundProject:
		return map[string]any{
			"project_id":     o.ProjectID,
			"amount":         o.Amount,
			"funder":         o.Funder,
			"token_contract": o.TokenContract,
		}
	case ReleaseMilestone:
		return map[string]any{
			"project_id":       o.ProjectID,
			"milestone_number": o.MilestoneNumber,
			"admin":            o.Admin,
		}
	case Refund:
		return map[string]any{
			"project_id":      o.ProjectID,
			"contribution_id": o.ContributionID,
			"token_contract":  o.TokenContract,
		}
	case VoteProject:
		return map[string]any{
			"project_id": o.ProjectID,
			"voter":      o.Voter,
			"vote_value": o.VoteValue,
		}
	case WithdrawVote:
		return map[string]any{
			"project_id": o.ProjectID,
			"voter":      o.Voter,
		}
	case CreateProject:
		return map[string]any{
			"project_id":      o.ProjectID,
			"creator":         o.Creator,
			"metadata_uri":    o.MetadataURI,
			"funding_target":  o.FundingTarget,
			"milestone_count": o.MilestoneCount,
		}
	case CloseProject:
		return map[string]any{
			"project_id": o.ProjectID,
			"creator":    o.Creator,
		}
	default:
		return nil
	}
}
