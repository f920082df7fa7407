package staffing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arnold/dealpods-api/internal/capacity"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubGenerator returns a canned proposal and counts calls. planHook, when
// set, runs during GeneratePlan so tests can observe or mutate state while
// the external call is in flight.
type stubGenerator struct {
	mu        sync.Mutex
	proposal  planner.Proposal
	planCalls int
	planHook  func(call int)
}

func (s *stubGenerator) GeneratePlan(ctx context.Context, req planner.PlanRequest) (*planner.Proposal, error) {
	s.mu.Lock()
	s.planCalls++
	call := s.planCalls
	p := s.proposal
	hook := s.planHook
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return &p, nil
}

func (s *stubGenerator) setPlanHook(hook func(call int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planHook = hook
}

func (s *stubGenerator) Rebalance(ctx context.Context, req planner.RebalanceRequest) (*planner.RebalancePlan, error) {
	return &planner.RebalancePlan{}, nil
}

func (s *stubGenerator) setProposal(p planner.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposal = p
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planCalls
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Deal{},
		&models.Pod{},
		&models.PodMember{},
		&models.Milestone{},
		&models.PodMovementTask{},
		&models.Task{},
		&models.Document{},
		&models.ContextUpdate{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, tier, tags string) models.User {
	t.Helper()
	u := models.User{
		Email:        uuid.New().String() + "@example.com",
		Name:         "User " + tier,
		DealTeamTier: tier,
		Tags:         tags,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedDeal(t *testing.T, db *gorm.DB, valueUSD int64) models.Deal {
	t.Helper()
	d := models.Deal{
		Name:     "Project Alpine",
		Sector:   "industrials",
		ValueUSD: valueUSD,
		Stage:    models.StageOrigination,
		Status:   models.DealStatusActive,
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

type fixture struct {
	db      *gorm.DB
	gen     *stubGenerator
	former  *Former
	coord   *Coordinator
	locks   *LockMap
	lead    models.User
	assoc   models.User
	analyst models.User
	deal    models.Deal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:      db,
		gen:     &stubGenerator{},
		locks:   NewLockMap(),
		lead:    seedUser(t, db, models.Tier8, "negotiation,valuation"),
		assoc:   seedUser(t, db, models.Tier4, "due-diligence,modeling"),
		analyst: seedUser(t, db, models.Tier2, "research"),
	}
	f.deal = seedDeal(t, db, 150_000_000)

	matrix := capacity.NewBuilder(capacity.NewGormStore(db), time.Minute)
	f.former = NewFormer(db, f.gen, matrix, nil, f.locks)
	f.coord = NewCoordinator(db, f.former, f.locks)

	f.gen.setProposal(planner.Proposal{
		PodSize: 3,
		PodMembers: []planner.ProposedMember{
			{UserID: f.lead.ID.String(), Position: 1, IsLead: true},
			{UserID: f.assoc.ID.String(), Position: 2},
			{UserID: f.analyst.ID.String(), Position: 3},
		},
		Milestones: []planner.ProposedMilestone{
			{
				Title: "Kickoff",
				MovementTasks: []planner.ProposedMovementTask{
					{
						Role:             "Analyst",
						DefinitionOfDone: "Baseline model circulated",
						Subtasks: []planner.ProposedSubtask{
							{Title: "Pull comparables", Priority: "high", AssigneeID: f.analyst.ID.String(), DueInDays: 2},
						},
					},
				},
			},
		},
		Rationale: "balanced workload across the team",
	})
	return f
}

func (f *fixture) activePods(t *testing.T) []models.Pod {
	t.Helper()
	var pods []models.Pod
	require.NoError(t, f.db.Where("deal_id = ? AND status = ?", f.deal.ID, models.PodStatusActive).Find(&pods).Error)
	return pods
}

func TestFormPodCreatesActivePod(t *testing.T) {
	f := newFixture(t)

	pod, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PodStatusActive, pod.Status)
	assert.Equal(t, 3, pod.Size)
	assert.Equal(t, f.lead.ID, pod.LeadUserID)

	var members []models.PodMember
	require.NoError(t, f.db.Where("pod_id = ?", pod.ID).Order("position").Find(&members).Error)
	require.Len(t, members, 3)
	assert.True(t, members[0].IsLead)
	assert.Equal(t, f.lead.ID, members[0].UserID)

	// Milestone tree landed with the pod.
	var milestone models.Milestone
	require.NoError(t, f.db.Where("pod_id = ?", pod.ID).First(&milestone).Error)
	assert.Equal(t, "Kickoff", milestone.Title)

	var movement models.PodMovementTask
	require.NoError(t, f.db.Where("milestone_id = ?", milestone.ID).First(&movement).Error)
	require.NotNil(t, movement.AssigneeID, "role-matched assignee resolved")
	assert.Equal(t, f.analyst.ID, *movement.AssigneeID)

	var subtask models.Task
	require.NoError(t, f.db.Where("pod_movement_task_id = ?", movement.ID).First(&subtask).Error)
	assert.Equal(t, "Pull comparables", subtask.Title)
	require.NotNil(t, subtask.AssigneeID)
	assert.Equal(t, f.analyst.ID, *subtask.AssigneeID)

	var audit models.ContextUpdate
	require.NoError(t, f.db.Where("deal_id = ? AND kind = ?", f.deal.ID, "pod_formed").First(&audit).Error)
}

func TestTransitionCompletesOldPodAndCarriesLead(t *testing.T) {
	f := newFixture(t)

	first, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)

	// The generator now prefers a different lead; policy must keep the
	// incumbent.
	challenger := seedUser(t, f.db, models.Tier8, "negotiation")
	f.gen.setProposal(planner.Proposal{
		PodMembers: []planner.ProposedMember{
			{UserID: challenger.ID.String(), Position: 1, IsLead: true},
			{UserID: f.assoc.ID.String(), Position: 2},
			{UserID: f.analyst.ID.String(), Position: 3},
		},
	})

	next, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	require.NoError(t, err)
	assert.Equal(t, models.StageStructuring, next.Stage)
	assert.Equal(t, f.lead.ID, next.LeadUserID, "prior lead carried into the new stage")

	var old models.Pod
	require.NoError(t, f.db.First(&old, "id = ?", first.ID).Error)
	assert.Equal(t, models.PodStatusCompleted, old.Status)

	var deal models.Deal
	require.NoError(t, f.db.First(&deal, "id = ?", f.deal.ID).Error)
	assert.Equal(t, models.StageStructuring, deal.Stage)

	pods := f.activePods(t)
	require.Len(t, pods, 1, "exactly one active pod after a transition")
	assert.Equal(t, next.ID, pods[0].ID)

	var audit models.ContextUpdate
	require.NoError(t, f.db.Where("deal_id = ? AND kind = ?", f.deal.ID, "stage_advanced").First(&audit).Error)
}

func TestTransitionSameStageIsIdempotent(t *testing.T) {
	f := newFixture(t)

	pod, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	require.NoError(t, err)
	callsAfterFirst := f.gen.calls()

	again, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	require.NoError(t, err)
	assert.Equal(t, pod.ID, again.ID, "repeat transition returns the existing pod")
	assert.Equal(t, callsAfterFirst, f.gen.calls(), "no external call on a no-op transition")

	require.Len(t, f.activePods(t), 1)
}

func TestTransitionRejectsBackwardMove(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageDiligence)
	require.NoError(t, err)

	_, err = f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	assert.Error(t, err)

	var deal models.Deal
	require.NoError(t, f.db.First(&deal, "id = ?", f.deal.ID).Error)
	assert.Equal(t, models.StageDiligence, deal.Stage, "failed transition leaves the stage untouched")
}

func TestTransitionWhileLockedReturnsBusy(t *testing.T) {
	f := newFixture(t)

	release := f.locks.Acquire(f.deal.ID)
	defer release()

	_, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	assert.ErrorIs(t, err, ErrDealBusy)
}

func TestTransitionOnClosedDeal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.Deal{}).Where("id = ?", f.deal.ID).Update("status", models.DealStatusClosed).Error)

	_, err := f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	assert.ErrorIs(t, err, ErrDealClosed)
}

func TestFormPodLargeDealGetsFiveSeats(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, models.Tier6, "sector-expertise")
	seedUser(t, f.db, models.Tier6, "due-diligence,legal")
	seedUser(t, f.db, models.Tier2, "modeling")
	big := seedDeal(t, f.db, 450_000_000)

	pod, err := f.former.FormPod(context.Background(), big, models.StageOrigination, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, pod.Size)

	var count int64
	require.NoError(t, f.db.Model(&models.PodMember{}).Where("pod_id = ?", pod.ID).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestFormPodRefusesSecondActivePod(t *testing.T) {
	f := newFixture(t)

	_, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)

	// A second formation whose pre-check ran before the first one
	// committed must be refused inside the persist transaction.
	_, err = f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.ErrorIs(t, err, ErrActivePodExists)

	require.Len(t, f.activePods(t), 1, "at most one active pod per deal")
}

func TestGeneratorRunsOutsideDealLock(t *testing.T) {
	f := newFixture(t)

	var lockFree []bool
	f.gen.setPlanHook(func(int) {
		if release, ok := f.locks.TryAcquire(f.deal.ID); ok {
			release()
			lockFree = append(lockFree, true)
		} else {
			lockFree = append(lockFree, false)
		}
	})

	_, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)

	_, err = f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	require.NoError(t, err)

	require.Len(t, lockFree, 2)
	assert.True(t, lockFree[0], "formation must not hold the deal lock during the external call")
	assert.True(t, lockFree[1], "transition must not hold the deal lock during the external call")
}

func TestTransitionDetectsConcurrentPodChange(t *testing.T) {
	f := newFixture(t)

	first, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)

	// While the transition's generator call is in flight, another writer
	// swaps the active pod underneath it.
	f.gen.setPlanHook(func(call int) {
		if call != 2 {
			return
		}
		require.NoError(t, f.db.Model(&models.Pod{}).Where("id = ?", first.ID).
			Update("status", models.PodStatusCompleted).Error)
		replacement := models.Pod{
			DealID:     f.deal.ID,
			Stage:      f.deal.Stage,
			Size:       3,
			Status:     models.PodStatusActive,
			LeadUserID: f.assoc.ID,
		}
		require.NoError(t, f.db.Create(&replacement).Error)
	})

	_, err = f.coord.Transition(context.Background(), f.deal.ID, models.StageStructuring)
	assert.ErrorIs(t, err, ErrDealBusy, "stale proposal is discarded, not persisted")

	pods := f.activePods(t)
	require.Len(t, pods, 1)
	assert.NotEqual(t, first.ID, pods[0].ID, "the concurrent writer's pod survives")

	var deal models.Deal
	require.NoError(t, f.db.First(&deal, "id = ?", f.deal.ID).Error)
	assert.Equal(t, models.StageOrigination, deal.Stage, "stage untouched by the aborted transition")
}

func TestMilestonesFollowProposedOrder(t *testing.T) {
	f := newFixture(t)
	f.gen.setProposal(planner.Proposal{
		PodMembers: []planner.ProposedMember{
			{UserID: f.lead.ID.String(), Position: 1, IsLead: true},
			{UserID: f.assoc.ID.String(), Position: 2},
			{UserID: f.analyst.ID.String(), Position: 3},
		},
		Milestones: []planner.ProposedMilestone{
			{Title: "Signing", OrderIndex: 7},
			{Title: "Kickoff", OrderIndex: 1},
			{Title: "Diligence review", OrderIndex: 3},
		},
	})

	pod, err := f.former.FormPod(context.Background(), f.deal, models.StageOrigination, nil)
	require.NoError(t, err)

	var milestones []models.Milestone
	require.NoError(t, f.db.Where("pod_id = ?", pod.ID).Order("order_index ASC").Find(&milestones).Error)
	require.Len(t, milestones, 3)
	assert.Equal(t, "Kickoff", milestones[0].Title)
	assert.Equal(t, "Diligence review", milestones[1].Title)
	assert.Equal(t, "Signing", milestones[2].Title)
	for i, ms := range milestones {
		assert.Equal(t, i, ms.OrderIndex, "indices re-numbered sequentially")
	}
}
