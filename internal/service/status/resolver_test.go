package status

import (
	"testing"
	"time"

	"boundless/internal/model"
)

func project(status string, goal int64) *model.Project {
	return &model.Project{ID: "p1", Status: status, FundingGoal: goal}
}

func tally(total, threshold int, deadline time.Time) *model.VoteTally {
	return &model.VoteTally{ProjectID: "p1", TotalVotes: total, ThresholdVotes: threshold, VoteDeadline: deadline}
}

func TestResolvePrecedence(t *testing.T) {
	now := time.Now()
	open := now.Add(time.Hour)
	closed := now.Add(-time.Hour)

	cases := []struct {
		name    string
		project *model.Project
		tally   *model.VoteTally
		raised  int64
		want    Phase
	}{
		{
			// rule 1 precedes rule 2: validation gates fundability
			"idea with active voting and goal reached",
			project(model.ProjectStatusIdea, 10_000),
			tally(3, 10, open),
			10_000,
			PhaseValidation,
		},
		{
			"goal reached after voting window",
			project(model.ProjectStatusIdea, 10_000),
			tally(3, 10, closed),
			10_000,
			PhaseFunded,
		},
		{
			"overfunded campaigning project",
			project(model.ProjectStatusCampaigning, 10_000),
			tally(10, 10, open),
			15_000,
			PhaseFunded,
		},
		{
			"campaigning below goal",
			project(model.ProjectStatusCampaigning, 10_000),
			tally(10, 10, closed),
			4_000,
			PhaseCampaigning,
		},
		{
			"idea without active voting falls back to idea",
			project(model.ProjectStatusIdea, 10_000),
			tally(3, 10, closed),
			0,
			PhaseIdea,
		},
		{
			// threshold reached ends the voting window even before the deadline
			"idea with threshold reached",
			project(model.ProjectStatusIdea, 10_000),
			tally(10, 10, open),
			0,
			PhaseIdea,
		},
		{
			"active maps to milestone execution",
			project(model.ProjectStatusActive, 10_000),
			tally(10, 10, closed),
			4_000,
			PhaseMilestoneExecution,
		},
		{
			"completed verbatim",
			project(model.ProjectStatusCompleted, 10_000),
			tally(10, 10, closed),
			4_000,
			PhaseCompleted,
		},
		{
			"closed verbatim",
			project(model.ProjectStatusClosed, 10_000),
			tally(10, 10, closed),
			4_000,
			PhaseClosed,
		},
		{
			"zero goal never reads as funded",
			project(model.ProjectStatusCampaigning, 0),
			tally(10, 10, closed),
			0,
			PhaseCampaigning,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Resolve(c.project, c.tally, c.raised, now); got != c.want {
				t.Fatalf("Resolve = %v, want %v", got, c.want)
			}
		})
	}
}
