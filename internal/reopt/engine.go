package reopt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/arnold/dealpods-api/internal/capacity"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/staffing"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// Triggers fired by surrounding application code.
const (
	TriggerTaskCompleted    = "task_completed"
	TriggerDocumentUploaded = "document_uploaded"
	TriggerDealUpdated      = "deal_updated"
	TriggerSweep            = "underutilization_sweep"
)

// Result summarizes one pass: "Applied of Applied+Skipped changes
// applied", with the unapplied subset logged for operator review.
type Result struct {
	Trigger      string `json:"trigger"`
	ExternalCall bool   `json:"externalCall"`
	Applied      int    `json:"applied"`
	Skipped      int    `json:"skipped"`
}

// Engine is the stateless reactive rebalancing pass. All state lives in
// the Deal/Task/Pod rows it reads and writes; re-running is safe.
type Engine struct {
	db       *gorm.DB
	gen      planner.Generator
	matrix   *capacity.Builder
	locks    *staffing.LockMap
	notifier staffing.Notifier
	recent   *cache.Cache // debounce store, keyed by dealID with explicit TTL
}

func New(db *gorm.DB, gen planner.Generator, matrix *capacity.Builder, locks *staffing.LockMap, notifier staffing.Notifier, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = 10 * time.Second
	}
	// Janitor cadence only bounds memory, not correctness; keep it lazy
	// even when the debounce window is tiny.
	cleanup := 2 * debounce
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Engine{
		db:       db,
		gen:      gen,
		matrix:   matrix,
		locks:    locks,
		notifier: notifier,
		recent:   cache.New(debounce, cleanup),
	}
}

func (e *Engine) TaskCompleted(ctx context.Context, dealID uuid.UUID) (*Result, error) {
	e.matrix.Invalidate()
	return e.run(ctx, dealID, TriggerTaskCompleted)
}

func (e *Engine) DocumentUploaded(ctx context.Context, dealID uuid.UUID) (*Result, error) {
	return e.run(ctx, dealID, TriggerDocumentUploaded)
}

func (e *Engine) DealUpdated(ctx context.Context, dealID uuid.UUID) (*Result, error) {
	return e.run(ctx, dealID, TriggerDealUpdated)
}

// SweepUnderutilized runs a pass over every active deal that has an
// underutilized member. Cadence is a config value, driven by a ticker in
// main.
func (e *Engine) SweepUnderutilized(ctx context.Context) {
	var roster []models.User
	if err := e.db.Where("is_active = ?", true).Find(&roster).Error; err != nil {
		log.Printf("reopt: sweep roster: %v", err)
		return
	}

	snapshots, err := e.matrix.BuildMatrix(roster)
	if err != nil {
		log.Printf("reopt: sweep matrix: %v", err)
		return
	}

	dealIDs := make(map[uuid.UUID]bool)
	for _, s := range snapshots {
		if !s.Underutilized() {
			continue
		}
		for _, a := range s.DealAssignments {
			dealIDs[a.DealID] = true
		}
	}

	for dealID := range dealIDs {
		if _, err := e.run(ctx, dealID, TriggerSweep); err != nil {
			log.Printf("reopt: sweep deal %s: %v", dealID, err)
		}
	}
}

func (e *Engine) run(ctx context.Context, dealID uuid.UUID, trigger string) (*Result, error) {
	result := &Result{Trigger: trigger}

	// Debounce: a pass for this deal within the TTL window absorbs the
	// new trigger.
	if err := e.recent.Add(dealID.String(), trigger, cache.DefaultExpiration); err != nil {
		return result, nil
	}

	var deal models.Deal
	if err := e.db.First(&deal, "id = ?", dealID).Error; err != nil {
		return nil, err
	}
	if deal.Status != models.DealStatusActive {
		return result, nil
	}

	snap, err := e.snapshot(deal)
	if err != nil {
		return nil, err
	}

	// Cheap early exit: nothing to place and nobody idle means zero
	// external calls and zero writes.
	if len(snap.unassigned) == 0 && !snap.anyUnderutilized {
		return result, nil
	}

	req := e.buildRequest(deal, trigger, snap)
	plan, err := e.gen.Rebalance(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reopt: rebalance deal %s: %w", dealID, err)
	}
	result.ExternalCall = true

	// The external call ran unlocked; only the apply phase holds the
	// per-deal lock.
	release := e.locks.Acquire(dealID)
	defer release()

	e.apply(deal, plan, snap, result)
	e.matrix.Invalidate()
	e.recordPass(deal, plan, result)
	return result, nil
}

type dealSnapshot struct {
	pod              *models.Pod
	roster           []models.User
	rosterIDs        map[uuid.UUID]bool
	snapsByUser      map[uuid.UUID]capacity.Snapshot
	unassigned       []models.Task
	assigned         []models.Task
	recentUpdates    []string
	anyUnderutilized bool
}

// snapshot gathers the deal context plus the capacity matrix restricted
// to the pod's members and any globally underutilized users.
func (e *Engine) snapshot(deal models.Deal) (*dealSnapshot, error) {
	snap := &dealSnapshot{rosterIDs: make(map[uuid.UUID]bool)}

	var pod models.Pod
	err := e.db.Preload("Members").
		Where("deal_id = ? AND status = ?", deal.ID, models.PodStatusActive).
		First(&pod).Error
	if err == nil {
		snap.pod = &pod
	}

	var allActive []models.User
	if err := e.db.Where("is_active = ?", true).Find(&allActive).Error; err != nil {
		return nil, err
	}
	allSnaps, err := e.matrix.BuildMatrix(allActive)
	if err != nil {
		return nil, err
	}

	snapByUser := make(map[uuid.UUID]capacity.Snapshot, len(allSnaps))
	underutilized := make(map[uuid.UUID]bool)
	for _, s := range allSnaps {
		snapByUser[s.UserID] = s
		if s.Underutilized() {
			underutilized[s.UserID] = true
		}
	}

	relevant := make(map[uuid.UUID]bool)
	if snap.pod != nil {
		for _, m := range snap.pod.Members {
			relevant[m.UserID] = true
		}
	}
	for id := range underutilized {
		relevant[id] = true
	}

	snap.snapsByUser = make(map[uuid.UUID]capacity.Snapshot)
	for _, u := range allActive {
		if !relevant[u.ID] {
			continue
		}
		snap.roster = append(snap.roster, u)
		snap.rosterIDs[u.ID] = true
		snap.snapsByUser[u.ID] = snapByUser[u.ID]
		if underutilized[u.ID] {
			snap.anyUnderutilized = true
		}
	}

	var tasks []models.Task
	if err := e.db.Where("deal_id = ? AND status != ?", deal.ID, models.TaskStatusDone).Find(&tasks).Error; err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.AssigneeID == nil {
			snap.unassigned = append(snap.unassigned, t)
		} else {
			snap.assigned = append(snap.assigned, t)
		}
	}

	var updates []models.ContextUpdate
	if err := e.db.Where("deal_id = ?", deal.ID).Order("created_at DESC").Limit(5).Find(&updates).Error; err != nil {
		return nil, err
	}
	for _, u := range updates {
		snap.recentUpdates = append(snap.recentUpdates, u.Summary)
	}

	return snap, nil
}

func (e *Engine) buildRequest(deal models.Deal, trigger string, snap *dealSnapshot) planner.RebalanceRequest {
	req := planner.RebalanceRequest{
		DealID:        deal.ID.String(),
		DealName:      deal.Name,
		Stage:         deal.Stage,
		Trigger:       trigger,
		RecentUpdates: snap.recentUpdates,
		Roster:        staffing.RosterEntries(snap.roster, snap.snapsByUser),
	}
	for _, t := range snap.unassigned {
		req.UnassignedTasks = append(req.UnassignedTasks, taskBrief(t))
	}
	for _, t := range snap.assigned {
		req.AssignedTasks = append(req.AssignedTasks, taskBrief(t))
	}
	return req
}

// apply executes the plan item by item. A reassignment or new task naming
// an unknown task or user is skipped and logged; the rest of the batch
// continues.
func (e *Engine) apply(deal models.Deal, plan *planner.RebalancePlan, snap *dealSnapshot, result *Result) {
	for _, r := range plan.Reassignments {
		taskID, err := uuid.Parse(r.TaskID)
		if err != nil {
			result.Skipped++
			log.Printf("reopt: deal %s: invalid task id %q, skipping", deal.ID, r.TaskID)
			continue
		}
		userID, err := uuid.Parse(r.UserID)
		if err != nil || !snap.rosterIDs[userID] {
			result.Skipped++
			log.Printf("reopt: deal %s: reassignment target %q not in roster, skipping", deal.ID, r.UserID)
			continue
		}

		var task models.Task
		err = e.db.Where("id = ? AND deal_id = ? AND status != ?", taskID, deal.ID, models.TaskStatusDone).First(&task).Error
		if err != nil {
			result.Skipped++
			log.Printf("reopt: deal %s: task %s not open on this deal, skipping", deal.ID, taskID)
			continue
		}
		if task.AssigneeID != nil && *task.AssigneeID == userID {
			continue // already where the plan wants it
		}

		if err := e.db.Model(&task).Update("assignee_id", userID).Error; err != nil {
			result.Skipped++
			log.Printf("reopt: deal %s: reassign task %s: %v", deal.ID, taskID, err)
			continue
		}
		result.Applied++

		if e.notifier != nil {
			e.notifier.Notify(userID, "task_reassigned",
				"Task assigned to you on "+deal.Name,
				task.Title,
				map[string]interface{}{"dealId": deal.ID.String(), "taskId": task.ID.String()})
		}
	}

	for _, nt := range plan.NewTasks {
		if nt.Title == "" {
			result.Skipped++
			continue
		}
		assignee, err := uuid.Parse(nt.AssigneeID)
		if err != nil || !snap.rosterIDs[assignee] {
			result.Skipped++
			log.Printf("reopt: deal %s: new task %q has unresolvable assignee %q, skipping", deal.ID, nt.Title, nt.AssigneeID)
			continue
		}

		task := models.Task{
			DealID:     deal.ID,
			Title:      nt.Title,
			Priority:   models.NormalizePriority(nt.Priority),
			Cadence:    models.NormalizeCadence(nt.Cadence),
			AssigneeID: &assignee,
			Status:     models.TaskStatusPending,
		}
		if nt.DueInDays > 0 {
			due := time.Now().AddDate(0, 0, nt.DueInDays)
			task.DueDate = &due
		}
		if err := e.db.Create(&task).Error; err != nil {
			result.Skipped++
			log.Printf("reopt: deal %s: create task %q: %v", deal.ID, nt.Title, err)
			continue
		}
		result.Applied++

		if e.notifier != nil {
			e.notifier.Notify(assignee, "task_reassigned",
				"New task on "+deal.Name,
				task.Title,
				map[string]interface{}{"dealId": deal.ID.String(), "taskId": task.ID.String()})
		}
	}
}

func (e *Engine) recordPass(deal models.Deal, plan *planner.RebalancePlan, result *Result) {
	meta, _ := json.Marshal(map[string]interface{}{
		"trigger":   result.Trigger,
		"applied":   result.Applied,
		"skipped":   result.Skipped,
		"rationale": plan.Rationale,
	})
	metadata := string(meta)
	update := models.ContextUpdate{
		DealID:   deal.ID,
		Kind:     "reoptimization",
		Summary:  fmt.Sprintf("Reoptimization (%s): %d of %d changes applied", result.Trigger, result.Applied, result.Applied+result.Skipped),
		Metadata: &metadata,
	}
	if err := e.db.Create(&update).Error; err != nil {
		log.Printf("reopt: audit for deal %s: %v", deal.ID, err)
	}
}

func taskBrief(t models.Task) planner.TaskBrief {
	brief := planner.TaskBrief{
		TaskID:   t.ID.String(),
		Title:    t.Title,
		Priority: t.Priority,
		Status:   t.Status,
	}
	if t.AssigneeID != nil {
		brief.AssigneeID = t.AssigneeID.String()
	}
	return brief
}
