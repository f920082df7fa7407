package capacity

import (
	"testing"
	"time"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves canned counts and assignments.
type fakeStore struct {
	counts      map[uuid.UUID]TaskCounts
	assignments map[uuid.UUID][]DealAssignment
}

func (f *fakeStore) TaskCountsByUser(userIDs []uuid.UUID) (map[uuid.UUID]TaskCounts, error) {
	return f.counts, nil
}

func (f *fakeStore) ActiveAssignments(userIDs []uuid.UUID) (map[uuid.UUID][]DealAssignment, error) {
	return f.assignments, nil
}

func TestScoreFormula(t *testing.T) {
	assert.Equal(t, 0, Score(0, 0))
	assert.Equal(t, 20, Score(1, 0))
	assert.Equal(t, 10, Score(0, 1))
	assert.Equal(t, 50, Score(2, 1))
	assert.Equal(t, 100, Score(5, 0), "clamped at 100")
	assert.Equal(t, 100, Score(10, 10), "clamped at 100")
}

func TestScoreMonotonic(t *testing.T) {
	for active := 0; active < 6; active++ {
		for pending := 0; pending < 6; pending++ {
			s := Score(active, pending)
			assert.GreaterOrEqual(t, Score(active+1, pending), s)
			assert.GreaterOrEqual(t, Score(active, pending+1), s)
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
		}
	}
}

func TestBuildMatrixProjectsRoster(t *testing.T) {
	u1 := models.User{ID: uuid.New()}
	u2 := models.User{ID: uuid.New()}

	dealID := uuid.New()
	store := &fakeStore{
		counts: map[uuid.UUID]TaskCounts{
			u1.ID: {Active: 2, Pending: 1, CompletedWeek: 3},
		},
		assignments: map[uuid.UUID][]DealAssignment{
			u1.ID: {{DealID: dealID, Stage: "diligence", Role: "Deal Lead", ActiveTasks: 2, IsLead: true}},
		},
	}

	builder := NewBuilder(store, time.Minute)
	snapshots, err := builder.BuildMatrix([]models.User{u1, u2})
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, 50, snapshots[0].CapacityScore)
	assert.Equal(t, 3, snapshots[0].CompletedThisWeek)
	require.Len(t, snapshots[0].DealAssignments, 1)
	assert.True(t, snapshots[0].DealAssignments[0].IsLead)

	// No task history means capacity 0, not an error.
	assert.Equal(t, 0, snapshots[1].CapacityScore)
	assert.Empty(t, snapshots[1].DealAssignments)
}

func TestClassificationThresholds(t *testing.T) {
	withDeal := []DealAssignment{{DealID: uuid.New()}}

	assert.True(t, Snapshot{CapacityScore: 20, DealAssignments: withDeal}.Underutilized())
	assert.False(t, Snapshot{CapacityScore: 20}.Underutilized(), "needs at least one deal assignment")
	assert.False(t, Snapshot{CapacityScore: 30, DealAssignments: withDeal}.Underutilized(), "threshold is strict")

	assert.True(t, Snapshot{CapacityScore: 90}.Overloaded())
	assert.False(t, Snapshot{CapacityScore: 80}.Overloaded(), "threshold is strict")
}

func TestBuildMatrixMemoizesUntilInvalidated(t *testing.T) {
	u := models.User{ID: uuid.New()}
	store := &fakeStore{
		counts:      map[uuid.UUID]TaskCounts{u.ID: {Active: 1}},
		assignments: map[uuid.UUID][]DealAssignment{},
	}

	builder := NewBuilder(store, time.Minute)

	first, err := builder.BuildMatrix([]models.User{u})
	require.NoError(t, err)
	assert.Equal(t, 20, first[0].CapacityScore)

	// Store changes are invisible until the writer invalidates.
	store.counts[u.ID] = TaskCounts{Active: 3}
	cached, err := builder.BuildMatrix([]models.User{u})
	require.NoError(t, err)
	assert.Equal(t, 20, cached[0].CapacityScore)

	builder.Invalidate()
	fresh, err := builder.BuildMatrix([]models.User{u})
	require.NoError(t, err)
	assert.Equal(t, 60, fresh[0].CapacityScore)
}
