package capacity

import (
	"time"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore implements Store against the relational schema with batched
// grouped queries.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type userCountRow struct {
	AssigneeID uuid.UUID
	Count      int
}

func (s *GormStore) TaskCountsByUser(userIDs []uuid.UUID) (map[uuid.UUID]TaskCounts, error) {
	result := make(map[uuid.UUID]TaskCounts, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	count := func(dest *[]userCountRow, cond string, args ...interface{}) error {
		q := s.db.Model(&models.Task{}).
			Select("assignee_id, COUNT(*) as count").
			Where("assignee_id IN ?", userIDs).
			Where(cond, args...).
			Group("assignee_id")
		return q.Find(dest).Error
	}

	var active, pending, completed []userCountRow
	if err := count(&active, "status = ?", models.TaskStatusInProgress); err != nil {
		return nil, err
	}
	if err := count(&pending, "status = ?", models.TaskStatusPending); err != nil {
		return nil, err
	}
	weekAgo := time.Now().AddDate(0, 0, -7)
	if err := count(&completed, "status = ? AND completed_at >= ?", models.TaskStatusDone, weekAgo); err != nil {
		return nil, err
	}

	for _, r := range active {
		tc := result[r.AssigneeID]
		tc.Active = r.Count
		result[r.AssigneeID] = tc
	}
	for _, r := range pending {
		tc := result[r.AssigneeID]
		tc.Pending = r.Count
		result[r.AssigneeID] = tc
	}
	for _, r := range completed {
		tc := result[r.AssigneeID]
		tc.CompletedWeek = r.Count
		result[r.AssigneeID] = tc
	}

	return result, nil
}

type assignmentRow struct {
	UserID uuid.UUID
	DealID uuid.UUID
	Stage  string
	Role   string
	IsLead bool
}

type dealTaskRow struct {
	AssigneeID uuid.UUID
	DealID     uuid.UUID
	Count      int
}

// ActiveAssignments enumerates active pod memberships across all deals.
func (s *GormStore) ActiveAssignments(userIDs []uuid.UUID) (map[uuid.UUID][]DealAssignment, error) {
	result := make(map[uuid.UUID][]DealAssignment, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var rows []assignmentRow
	err := s.db.Model(&models.PodMember{}).
		Select("pod_members.user_id, pods.deal_id, pods.stage, pod_members.role, pod_members.is_lead").
		Joins("JOIN pods ON pods.id = pod_members.pod_id").
		Where("pod_members.user_id IN ? AND pods.status = ?", userIDs, models.PodStatusActive).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Per-user active task counts per deal, batched like the memberships.
	var taskRows []dealTaskRow
	err = s.db.Model(&models.Task{}).
		Select("assignee_id, deal_id, COUNT(*) as count").
		Where("assignee_id IN ? AND status = ?", userIDs, models.TaskStatusInProgress).
		Group("assignee_id, deal_id").
		Find(&taskRows).Error
	if err != nil {
		return nil, err
	}

	type key struct {
		user uuid.UUID
		deal uuid.UUID
	}
	taskCounts := make(map[key]int, len(taskRows))
	for _, r := range taskRows {
		taskCounts[key{r.AssigneeID, r.DealID}] = r.Count
	}

	for _, r := range rows {
		result[r.UserID] = append(result[r.UserID], DealAssignment{
			DealID:      r.DealID,
			Stage:       r.Stage,
			Role:        r.Role,
			ActiveTasks: taskCounts[key{r.UserID, r.DealID}],
			IsLead:      r.IsLead,
		})
	}

	return result, nil
}
