package model

import "time"

// Raw project lifecycle statuses as persisted. The user-facing phase is
// derived on demand by the status resolver and never stored.
const (
	ProjectStatusIdea        = "idea"
	ProjectStatusCampaigning = "campaigning"
	ProjectStatusActive      = "active"
	ProjectStatusCompleted   = "completed"
	ProjectStatusClosed      = "closed"
)

type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // idea / campaigning / active / completed / closed
	FundingGoal int64     `json:"funding_goal"` // stroops
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
