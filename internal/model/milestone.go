package model

import "time"

const (
	MilestonePending    = "PENDING"
	MilestoneInProgress = "IN_PROGRESS"
	MilestoneCompleted  = "COMPLETED"
	MilestoneRejected   = "REJECTED"
)

// Milestone is one entry of a project's release schedule. The set is created
// at campaign launch and immutable afterwards except for status and progress.
// Escrowed funds release strictly in Ordinal order.
type Milestone struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`   // PENDING / IN_PROGRESS / COMPLETED / REJECTED
	Progress      int        `json:"progress"` // 0-100
	Ordinal       int        `json:"ordinal"`
	FundingAmount int64      `json:"funding_amount"` // stroops share of escrow
	DueDate       time.Time  `json:"due_date"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Terminal reports whether the milestone can no longer transition.
func (m Milestone) Terminal() bool {
	return m.Status == MilestoneCompleted || m.Status == MilestoneRejected
}
