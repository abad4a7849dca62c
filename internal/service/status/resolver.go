package status

import (
	"time"

	"boundless/internal/model"
)

// Phase is the derived, never-persisted lifecycle label for a project.
type Phase string

const (
	PhaseIdea               Phase = "Idea"
	PhaseValidation         Phase = "Validation"
	PhaseFunding            Phase = "Funding" // kept for wire compatibility, never emitted by Resolve
	PhaseCampaigning        Phase = "Campaigning"
	PhaseFunded             Phase = "Funded"
	PhaseMilestoneExecution Phase = "MilestoneExecution"
	PhaseCompleted          Phase = "Completed"
	PhaseClosed             Phase = "Closed"
)

// Resolve derives the canonical phase from the raw project status, the vote
// tally and the confirmed funding total. First matching rule wins; the order
// is load-bearing: validation gates fundability, so a project still in its
// voting window is never reported Funded.
func Resolve(project *model.Project, tally *model.VoteTally, raised int64, now time.Time) Phase {
	if project.Status == model.ProjectStatusIdea && tally.IsVotingActive(now) {
		return PhaseValidation
	}
	if project.FundingGoal > 0 && raised >= project.FundingGoal {
		return PhaseFunded
	}
	if project.Status == model.ProjectStatusCampaigning && !tally.IsVotingActive(now) {
		return PhaseCampaigning
	}
	return verbatim(project.Status)
}

// verbatim maps a raw status to its phase label.
func verbatim(status string) Phase {
	switch status {
	case model.ProjectStatusIdea:
		return PhaseIdea
	case model.ProjectStatusCampaigning:
		return PhaseCampaigning
	case model.ProjectStatusActive:
		return PhaseMilestoneExecution
	case model.ProjectStatusCompleted:
		return PhaseCompleted
	case model.ProjectStatusClosed:
		return PhaseClosed
	default:
		return PhaseIdea
	}
}
