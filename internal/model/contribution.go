package model

import "time"

const (
	ContributionPending   = "PENDING"
	ContributionCompleted = "COMPLETED"
	ContributionFailed    = "FAILED"
	ContributionRefunded  = "REFUNDED"
)

// Contribution records one backer's funding against a project. Amount is in
// stroops (the ledger's smallest unit). A contribution is born PENDING and
// only counts toward funding totals once the ledger settlement is confirmed.
type Contribution struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	BackerID      string    `json:"backer_id"`
	Amount        int64     `json:"amount"` // stroops
	Status        string    `json:"status"` // PENDING / COMPLETED / FAILED / REFUNDED
	LedgerReceipt string    `json:"ledger_receipt,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FundingStats is the aggregate funding view for one project.
type FundingStats struct {
	ProjectID string `json:"project_id"`
	Raised    int64  `json:"raised"`  // sum of COMPLETED amounts, stroops
	Goal      int64  `json:"goal"`    // stroops
	Backers   int    `json:"backers"` // distinct backers with COMPLETED contributions
	DaysLeft  int    `json:"days_left"`
}
