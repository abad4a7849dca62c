// Package mq defines the event payloads exchanged between the API service and
// the worker over RabbitMQ. Routing keys live next to the payload they carry.
package mq

// Routing keys on the events exchange.
const (
	RoutingContributionInitiated = "contribution.initiated"
	RoutingMilestoneUpdated      = "milestone.updated"
	RoutingMilestoneCompleted    = "milestone.completed"
	RoutingMilestoneRejected     = "milestone.rejected"
	RoutingProjectValidated      = "project.validated"
	RoutingProjectPhaseChanged   = "project.phase_changed"
)

// ContributionInitiatedPayload asks the worker to settle a PENDING
// contribution against the escrow ledger. The contribution ID doubles as the
// ledger idempotency key, so redelivery is safe.
type ContributionInitiatedPayload struct {
	ContributionID string `json:"contribution_id"`
	ProjectID      string `json:"project_id"`
	BackerID       string `json:"backer_id"`
	Amount         int64  `json:"amount"` // stroops
	TraceID        string `json:"trace_id,omitempty"`
}

type MilestoneUpdatedPayload struct {
	EventID          string   `json:"event_id"`
	ProjectID        string   `json:"project_id"`
	ProjectTitle     string   `json:"project_title"`
	MilestoneID      string   `json:"milestone_id"`
	MilestoneTitle   string   `json:"milestone_title"`
	UpdaterName      string   `json:"updater_name"`
	RecipientUserIDs []string `json:"recipient_user_ids"`
	TraceID          string   `json:"trace_id,omitempty"`
}

type MilestoneCompletedPayload struct {
	EventID          string   `json:"event_id"`
	ProjectID        string   `json:"project_id"`
	ProjectTitle     string   `json:"project_title"`
	MilestoneID      string   `json:"milestone_id"`
	MilestoneTitle   string   `json:"milestone_title"`
	UpdaterName      string   `json:"updater_name"`
	RecipientUserIDs []string `json:"recipient_user_ids"`
	IsOwnerRecipient bool     `json:"is_owner_recipient"`
	TraceID          string   `json:"trace_id,omitempty"`
}

type MilestoneRejectedPayload struct {
	EventID          string   `json:"event_id"`
	ProjectID        string   `json:"project_id"`
	ProjectTitle     string   `json:"project_title"`
	MilestoneID      string   `json:"milestone_id"`
	MilestoneTitle   string   `json:"milestone_title"`
	RecipientUserIDs []string `json:"recipient_user_ids"`
	TraceID          string   `json:"trace_id,omitempty"`
}

// ProjectValidatedPayload fires once when a cast crosses the vote threshold.
type ProjectValidatedPayload struct {
	EventID      string `json:"event_id"`
	ProjectID    string `json:"project_id"`
	ProjectTitle string `json:"project_title"`
	OwnerID      string `json:"owner_id"`
	VoteCount    int    `json:"vote_count"`
	TraceID      string `json:"trace_id,omitempty"`
}

type ProjectPhaseChangedPayload struct {
	EventID       string `json:"event_id"`
	ProjectID     string `json:"project_id"`
	PreviousPhase string `json:"previous_phase"`
	NewPhase      string `json:"new_phase"`
	TraceID       string `json:"trace_id,omitempty"`
}
