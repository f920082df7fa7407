package handlers

import (
	"context"
	"time"

	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func GetDealTasks(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	query := database.DB.Where("deal_id = ?", dealID).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if c.Query("unassigned") == "true" {
		query = query.Where("assignee_id IS NULL")
	}

	var tasks []models.Task
	query.Find(&tasks)
	return c.JSON(tasks)
}

func CreateTask(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var deal models.Deal
	if err := database.DB.First(&deal, "id = ?", dealID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deal not found",
		})
	}
	if deal.Status == models.DealStatusClosed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Deal is closed",
		})
	}

	var req models.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	task := models.Task{
		DealID:  dealID,
		Title:   req.Title,
		DueDate: req.DueDate,
		Status:  models.TaskStatusPending,
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.Cadence != "" {
		task.Cadence = req.Cadence
	}
	if req.AssigneeID != nil {
		if !userExists(*req.AssigneeID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Assignee not found in roster",
			})
		}
		task.AssigneeID = req.AssigneeID
	}

	if err := database.DB.Create(&task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create task",
		})
	}

	Matrix.Invalidate()
	return c.Status(fiber.StatusCreated).JSON(task)
}

// CompleteTask marks a task done and fires the task-completed
// reoptimization trigger in the background.
func CompleteTask(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var task models.Task
	if err := database.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	if task.Status == models.TaskStatusDone {
		return c.JSON(task)
	}

	now := time.Now()
	task.Status = models.TaskStatusDone
	task.CompletedAt = &now
	if err := database.DB.Save(&task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to complete task",
		})
	}

	dealID := task.DealID
	go runReopt(dealID, func(ctx context.Context) (interface{}, error) {
		return Reopt.TaskCompleted(ctx, dealID)
	})

	return c.JSON(task)
}

func ReassignTask(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var req models.ReassignTaskRequest
	if err := c.BodyParser(&req); err != nil || req.AssigneeID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Assignee is required",
		})
	}

	var task models.Task
	if err := database.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	if task.Status == models.TaskStatusDone {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Task is already done",
		})
	}

	if !userExists(req.AssigneeID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Assignee not found in roster",
		})
	}

	if err := database.DB.Model(&task).Update("assignee_id", req.AssigneeID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reassign task",
		})
	}

	Matrix.Invalidate()

	var deal models.Deal
	if database.DB.First(&deal, "id = ?", task.DealID).Error == nil {
		services.CreateNotification(req.AssigneeID, "task_reassigned",
			"Task assigned to you on "+deal.Name, task.Title,
			map[string]interface{}{"dealId": deal.ID.String(), "taskId": task.ID.String()})
	}

	return c.JSON(task)
}

func GetDealMilestones(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var milestones []models.Milestone
	database.DB.
		Preload("MovementTasks").
		Where("deal_id = ?", dealID).
		Order("order_index ASC").
		Find(&milestones)

	return c.JSON(milestones)
}

func userExists(userID uuid.UUID) bool {
	var user models.User
	return database.DB.Where("id = ? AND is_active = ?", userID, true).First(&user).Error == nil
}
