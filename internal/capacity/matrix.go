package capacity

import (
	"sort"
	"strings"
	"time"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Classification thresholds used by the reoptimization engine. Advisory,
// not hard constraints.
const (
	underutilizedBelow = 30
	overloadedAbove    = 80
)

// TaskCounts is a user's raw task tallies.
type TaskCounts struct {
	Active        int
	Pending       int
	CompletedWeek int
}

// DealAssignment is one active pod membership, viewed across all deals so
// a busy lead can't be double-booked onto an unrelated engagement.
type DealAssignment struct {
	DealID      uuid.UUID `json:"dealId"`
	Stage       string    `json:"stage"`
	Role        string    `json:"role"`
	ActiveTasks int       `json:"activeTasks"`
	IsLead      bool      `json:"isLead"`
}

// Snapshot is a user's derived workload projection. Never persisted;
// always recomputed from current Task and PodMember rows.
type Snapshot struct {
	UserID            uuid.UUID        `json:"userId"`
	ActiveTaskCount   int              `json:"activeTaskCount"`
	PendingTaskCount  int              `json:"pendingTaskCount"`
	CompletedThisWeek int              `json:"completedThisWeek"`
	CapacityScore     int              `json:"capacityScore"`
	DealAssignments   []DealAssignment `json:"dealAssignments"`
}

// Score is the workload heuristic: a crude linear proxy, clamped to
// [0,100]. Lower means more available. Callers rely only on its ordering.
func Score(active, pending int) int {
	score := active*20 + pending*10
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// Underutilized reports whether the user has slack and at least one deal
// to pick work up on.
func (s Snapshot) Underutilized() bool {
	return s.CapacityScore < underutilizedBelow && len(s.DealAssignments) > 0
}

func (s Snapshot) Overloaded() bool {
	return s.CapacityScore > overloadedAbove
}

// Store is the persistence collaborator the builder reads through.
type Store interface {
	TaskCountsByUser(userIDs []uuid.UUID) (map[uuid.UUID]TaskCounts, error)
	ActiveAssignments(userIDs []uuid.UUID) (map[uuid.UUID][]DealAssignment, error)
}

// Builder computes workload snapshots, memoized behind a short TTL cache
// keyed by the roster it was asked about. Writers call Invalidate after
// any task or pod mutation.
type Builder struct {
	store Store
	memo  *cache.Cache
}

func NewBuilder(store Store, ttl time.Duration) *Builder {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Builder{
		store: store,
		memo:  cache.New(ttl, 2*ttl),
	}
}

// BuildMatrix projects a workload snapshot for every roster entry. A user
// with no task history gets capacity 0. Side-effect free.
func (b *Builder) BuildMatrix(roster []models.User) ([]Snapshot, error) {
	key := matrixKey(roster)
	if cached, ok := b.memo.Get(key); ok {
		return cached.([]Snapshot), nil
	}

	ids := make([]uuid.UUID, len(roster))
	for i, u := range roster {
		ids[i] = u.ID
	}

	counts, err := b.store.TaskCountsByUser(ids)
	if err != nil {
		return nil, err
	}
	assignments, err := b.store.ActiveAssignments(ids)
	if err != nil {
		return nil, err
	}

	snapshots := make([]Snapshot, len(roster))
	for i, u := range roster {
		tc := counts[u.ID] // zero value for users with no task history
		snapshots[i] = Snapshot{
			UserID:            u.ID,
			ActiveTaskCount:   tc.Active,
			PendingTaskCount:  tc.Pending,
			CompletedThisWeek: tc.CompletedWeek,
			CapacityScore:     Score(tc.Active, tc.Pending),
			DealAssignments:   assignments[u.ID],
		}
	}

	b.memo.Set(key, snapshots, cache.DefaultExpiration)
	return snapshots, nil
}

// Invalidate drops all memoized matrices. Explicit invalidation, not
// implicit staleness.
func (b *Builder) Invalidate() {
	b.memo.Flush()
}

func matrixKey(roster []models.User) string {
	ids := make([]string, len(roster))
	for i, u := range roster {
		ids[i] = u.ID.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
