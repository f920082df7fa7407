package planner

import "context"

// RosterEntry is what the generator is told about one employee.
type RosterEntry struct {
	UserID        string            `json:"userId"`
	Name          string            `json:"name"`
	DealTeamTier  string            `json:"dealTeamTier"`
	Tags          []string          `json:"tags"`
	CapacityScore int               `json:"capacityScore"`
	Assignments   []AssignmentBrief `json:"assignments"`
}

type AssignmentBrief struct {
	DealID string `json:"dealId"`
	Stage  string `json:"stage"`
	Role   string `json:"role"`
	IsLead bool   `json:"isLead"`
}

// PlanRequest is the structured context for a staffing plan.
type PlanRequest struct {
	DealID           string        `json:"dealId"`
	DealName         string        `json:"dealName"`
	Sector           string        `json:"sector"`
	ValueUSD         int64         `json:"valueUsd"`
	Stage            string        `json:"stage"`
	PodSize          int           `json:"podSize"`
	PriorLeadID      string        `json:"priorLeadId,omitempty"`
	DocumentExcerpts []string      `json:"documentExcerpts,omitempty"`
	Roster           []RosterEntry `json:"roster"`
}

// Proposal is the generator's candidate staffing plan. It is untrusted:
// every field passes the normalizer before anything is persisted.
type Proposal struct {
	PodSize    int                 `json:"podSize"`
	PodMembers []ProposedMember    `json:"podMembers"`
	Milestones []ProposedMilestone `json:"milestones"`
	Rationale  string              `json:"rationale"`
}

type ProposedMember struct {
	UserID    string `json:"userId"`
	Position  int    `json:"position"`
	Role      string `json:"role"`
	IsLead    bool   `json:"isLead"`
	Rationale string `json:"rationale"`
}

type ProposedMilestone struct {
	Title         string                 `json:"title"`
	OrderIndex    int                    `json:"orderIndex"`
	MovementTasks []ProposedMovementTask `json:"podMovementTasks"`
}

type ProposedMovementTask struct {
	Role             string            `json:"role"`
	DefinitionOfDone string            `json:"definitionOfDone"`
	Subtasks         []ProposedSubtask `json:"dailySubtasks"`
}

type ProposedSubtask struct {
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Cadence    string `json:"cadence"`
	AssigneeID string `json:"assigneeId"`
	DueInDays  int    `json:"dueInDays"`
}

// TaskBrief summarizes one task for a rebalance request.
type TaskBrief struct {
	TaskID     string `json:"taskId"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	AssigneeID string `json:"assigneeId,omitempty"`
}

// RebalanceRequest is the structured context for a reoptimization pass.
type RebalanceRequest struct {
	DealID          string        `json:"dealId"`
	DealName        string        `json:"dealName"`
	Stage           string        `json:"stage"`
	Trigger         string        `json:"trigger"`
	UnassignedTasks []TaskBrief   `json:"unassignedTasks"`
	AssignedTasks   []TaskBrief   `json:"assignedTasks"`
	RecentUpdates   []string      `json:"recentUpdates,omitempty"`
	Roster          []RosterEntry `json:"roster"`
}

// RebalancePlan is the generator's recommended reassignments. Untrusted;
// every item is referentially re-checked before it is applied.
type RebalancePlan struct {
	Reassignments []Reassignment `json:"reassignments"`
	NewTasks      []NewTask      `json:"newTasks"`
	Rationale     string         `json:"rationale"`
}

type Reassignment struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type NewTask struct {
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Cadence    string `json:"cadence"`
	AssigneeID string `json:"assigneeId"`
	DueInDays  int    `json:"dueInDays"`
}

// Generator is the external plan generation service. Implementations are
// non-deterministic; callers own all validation.
type Generator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*Proposal, error)
	Rebalance(ctx context.Context, req RebalanceRequest) (*RebalancePlan, error)
}
