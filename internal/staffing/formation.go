package staffing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/arnold/dealpods-api/internal/capacity"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier delivers per-user messages. Fire-and-forget: a failed
// notification never rolls back a staffing write.
type Notifier interface {
	Notify(userID uuid.UUID, notifType, title, body string, metadata map[string]interface{})
}

// Former runs the pod formation pipeline: policy shape, capacity matrix,
// external proposal, normalization, then a single atomic persist.
type Former struct {
	db       *gorm.DB
	gen      planner.Generator
	matrix   *capacity.Builder
	notifier Notifier
	locks    *LockMap
}

func NewFormer(db *gorm.DB, gen planner.Generator, matrix *capacity.Builder, notifier Notifier, locks *LockMap) *Former {
	return &Former{db: db, gen: gen, matrix: matrix, notifier: notifier, locks: locks}
}

type plannedMovementTask struct {
	task     models.PodMovementTask
	subtasks []models.Task
}

type plannedMilestone struct {
	milestone models.Milestone
	tasks     []plannedMovementTask
}

type formationPlan struct {
	deal       models.Deal
	pod        models.Pod
	members    []models.PodMember
	milestones []plannedMilestone
}

// FormPod forms and persists the pod for one deal stage. The external
// call happens before the deal lock is taken; the lock covers only the
// persist transaction, which itself refuses to create a second active
// pod.
func (f *Former) FormPod(ctx context.Context, deal models.Deal, stage string, priorLeadID *uuid.UUID) (*models.Pod, error) {
	plan, err := f.propose(ctx, deal, stage, priorLeadID)
	if err != nil {
		return nil, err
	}

	release, ok := f.locks.TryAcquire(deal.ID)
	if !ok {
		return nil, ErrDealBusy
	}
	defer release()

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.persist(tx, plan)
	})
	if err != nil {
		return nil, err
	}

	f.afterCommit(plan)
	return &plan.pod, nil
}

// propose runs everything up to (but not including) persistence: no
// writes happen here, so a cancelled context aborts cleanly.
func (f *Former) propose(ctx context.Context, deal models.Deal, stage string, priorLeadID *uuid.UUID) (*formationPlan, error) {
	shape, err := policy.Resolve(deal.ValueUSD)
	if err != nil {
		return nil, err
	}

	var roster []models.User
	if err := f.db.Where("is_active = ?", true).Find(&roster).Error; err != nil {
		return nil, err
	}

	snapshots, err := f.matrix.BuildMatrix(roster)
	if err != nil {
		return nil, err
	}
	scores := make(map[uuid.UUID]int, len(snapshots))
	snapByUser := make(map[uuid.UUID]capacity.Snapshot, len(snapshots))
	for _, s := range snapshots {
		scores[s.UserID] = s.CapacityScore
		snapByUser[s.UserID] = s
	}

	excerpts, err := f.documentExcerpts(deal.ID)
	if err != nil {
		return nil, err
	}

	req := planner.PlanRequest{
		DealID:           deal.ID.String(),
		DealName:         deal.Name,
		Sector:           deal.Sector,
		ValueUSD:         deal.ValueUSD,
		Stage:            stage,
		PodSize:          shape.Size,
		DocumentExcerpts: excerpts,
		Roster:           RosterEntries(roster, snapByUser),
	}
	if priorLeadID != nil {
		req.PriorLeadID = priorLeadID.String()
	}

	proposal, err := f.gen.GeneratePlan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("staffing: generate plan for deal %s: %w", deal.ID, err)
	}

	members, err := NormalizeMembers(proposal, shape, roster, priorLeadID, scores)
	if err != nil {
		return nil, err
	}

	plan := &formationPlan{
		deal: deal,
		pod: models.Pod{
			DealID:     deal.ID,
			Stage:      stage,
			Size:       shape.Size,
			Status:     models.PodStatusActive,
			LeadUserID: members[0].UserID,
			Rationale:  proposal.Rationale,
		},
		members: members,
	}
	plan.milestones = f.planMilestones(proposal, deal, stage, members)
	return plan, nil
}

// planMilestones maps the proposal's milestone tree onto model rows,
// skipping items with unresolvable references rather than failing the pod.
func (f *Former) planMilestones(proposal *planner.Proposal, deal models.Deal, stage string, members []models.PodMember) []plannedMilestone {
	memberByRole := make(map[string]uuid.UUID, len(members))
	memberIDs := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		memberByRole[strings.ToLower(m.Role)] = m.UserID
		memberIDs[m.UserID] = true
	}

	// Honor the proposed ordering but re-number sequentially: the
	// incoming indices are untrusted and may be sparse or duplicated.
	ordered := make([]planner.ProposedMilestone, len(proposal.Milestones))
	copy(ordered, proposal.Milestones)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	planned := make([]plannedMilestone, 0, len(ordered))
	for _, pm := range ordered {
		if pm.Title == "" {
			continue
		}
		ms := plannedMilestone{milestone: models.Milestone{
			DealID:     deal.ID,
			Stage:      stage,
			Title:      pm.Title,
			OrderIndex: len(planned),
		}}

		for _, mt := range pm.MovementTasks {
			task := models.PodMovementTask{
				DealID:           deal.ID,
				Role:             mt.Role,
				DefinitionOfDone: mt.DefinitionOfDone,
				Status:           models.TaskStatusPending,
			}
			if id, ok := memberByRole[strings.ToLower(mt.Role)]; ok {
				assignee := id
				task.AssigneeID = &assignee
			}

			pt := plannedMovementTask{task: task}
			for _, st := range mt.Subtasks {
				if st.Title == "" {
					continue
				}
				sub := models.Task{
					DealID:   deal.ID,
					Title:    st.Title,
					Priority: models.NormalizePriority(st.Priority),
					Cadence:  models.NormalizeCadence(st.Cadence),
					Status:   models.TaskStatusPending,
				}
				if st.DueInDays > 0 {
					due := time.Now().AddDate(0, 0, st.DueInDays)
					sub.DueDate = &due
				}
				if id, err := uuid.Parse(st.AssigneeID); err == nil && memberIDs[id] {
					assignee := id
					sub.AssigneeID = &assignee
				}
				pt.subtasks = append(pt.subtasks, sub)
			}
			ms.tasks = append(ms.tasks, pt)
		}
		planned = append(planned, ms)
	}
	return planned
}

// persist writes the pod and everything under it inside the caller's
// transaction: all rows land or none do. The active-pod count is
// re-checked here, inside the transaction, so a formation that raced
// past an earlier check still cannot produce two active pods.
func (f *Former) persist(tx *gorm.DB, plan *formationPlan) error {
	var active int64
	err := tx.Model(&models.Pod{}).
		Where("deal_id = ? AND status = ?", plan.deal.ID, models.PodStatusActive).
		Count(&active).Error
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrActivePodExists
	}

	if err := tx.Create(&plan.pod).Error; err != nil {
		return err
	}

	for i := range plan.members {
		plan.members[i].PodID = plan.pod.ID
		if err := tx.Create(&plan.members[i]).Error; err != nil {
			return err
		}
	}

	for i := range plan.milestones {
		ms := &plan.milestones[i]
		ms.milestone.PodID = plan.pod.ID
		if err := tx.Create(&ms.milestone).Error; err != nil {
			return err
		}
		for j := range ms.tasks {
			mt := &ms.tasks[j]
			mt.task.MilestoneID = ms.milestone.ID
			if err := tx.Create(&mt.task).Error; err != nil {
				return err
			}
			for k := range mt.subtasks {
				mt.subtasks[k].PodMovementTaskID = &mt.task.ID
				if err := tx.Create(&mt.subtasks[k]).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// afterCommit handles the non-transactional tail: cache invalidation,
// member notifications, and the audit record.
func (f *Former) afterCommit(plan *formationPlan) {
	f.matrix.Invalidate()

	if f.notifier != nil {
		for _, m := range plan.members {
			f.notifier.Notify(m.UserID, "pod_assigned",
				"You've been staffed on "+plan.deal.Name,
				fmt.Sprintf("Role: %s (%s stage)", m.Role, plan.pod.Stage),
				map[string]interface{}{
					"dealId": plan.deal.ID.String(),
					"podId":  plan.pod.ID.String(),
				})
		}
	}

	f.recordContextUpdate(plan)
}

func (f *Former) recordContextUpdate(plan *formationPlan) {
	meta, _ := json.Marshal(map[string]interface{}{
		"podId":      plan.pod.ID.String(),
		"stage":      plan.pod.Stage,
		"size":       plan.pod.Size,
		"leadUserId": plan.pod.LeadUserID.String(),
	})
	metadata := string(meta)
	update := models.ContextUpdate{
		DealID:   plan.deal.ID,
		Kind:     "pod_formed",
		Summary:  fmt.Sprintf("Pod formed for %s stage with %d member(s)", plan.pod.Stage, len(plan.members)),
		Metadata: &metadata,
	}
	if err := f.db.Create(&update).Error; err != nil {
		log.Printf("staffing: context update for deal %s: %v", plan.deal.ID, err)
	}
}

func (f *Former) documentExcerpts(dealID uuid.UUID) ([]string, error) {
	var docs []models.Document
	err := f.db.Where("deal_id = ? AND excerpt != ''", dealID).
		Order("created_at DESC").
		Limit(5).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	excerpts := make([]string, 0, len(docs))
	for _, d := range docs {
		excerpts = append(excerpts, d.Excerpt)
	}
	return excerpts, nil
}

// RosterEntries converts users plus their workload snapshots into the
// shape the plan generator consumes.
func RosterEntries(roster []models.User, snaps map[uuid.UUID]capacity.Snapshot) []planner.RosterEntry {
	entries := make([]planner.RosterEntry, len(roster))
	for i, u := range roster {
		snap := snaps[u.ID]
		entry := planner.RosterEntry{
			UserID:        u.ID.String(),
			Name:          u.Name,
			DealTeamTier:  u.DealTeamTier,
			Tags:          u.TagList(),
			CapacityScore: snap.CapacityScore,
		}
		for _, a := range snap.DealAssignments {
			entry.Assignments = append(entry.Assignments, planner.AssignmentBrief{
				DealID: a.DealID.String(),
				Stage:  a.Stage,
				Role:   a.Role,
				IsLead: a.IsLead,
			})
		}
		entries[i] = entry
	}
	return entries
}
