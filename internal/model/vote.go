package model

import "time"

type Vote struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	VoterID   string    `json:"voter_id"`
	Value     int       `json:"value"` // +1 / -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteTally is the aggregate vote state for one project. TotalVotes counts
// distinct active voters, not the sum of their values.
type VoteTally struct {
	ProjectID      string    `json:"project_id"`
	TotalVotes     int       `json:"total_votes"`
	PositiveVotes  int       `json:"positive_votes"`
	ThresholdVotes int       `json:"threshold_votes"`
	VoteDeadline   time.Time `json:"vote_deadline"`
}

// IsVotingActive reports whether the validation window is still open at now.
func (t VoteTally) IsVotingActive(now time.Time) bool {
	return now.Before(t.VoteDeadline) && t.TotalVotes < t.ThresholdVotes
}

// VoteOutcome is the terminal result of the idea-validation phase.
type VoteOutcome string

const (
	VoteOutcomePending   VoteOutcome = "PENDING"
	VoteOutcomeValidated VoteOutcome = "VALIDATED"
	VoteOutcomeRejected  VoteOutcome = "REJECTED"
)
