package handlers

import (
	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func GetActivePod(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var pod models.Pod
	err = database.DB.
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Members.User").
		Where("deal_id = ? AND status = ?", dealID, models.PodStatusActive).
		First(&pod).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active pod for this deal",
		})
	}

	return c.JSON(pod)
}

func GetPodHistory(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var pods []models.Pod
	database.DB.
		Preload("Members").
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&pods)

	return c.JSON(pods)
}

// GetCapacityMatrix projects the workload snapshot for the full active
// roster.
func GetCapacityMatrix(c *fiber.Ctx) error {
	var roster []models.User
	database.DB.Where("is_active = ?", true).Find(&roster)

	snapshots, err := Matrix.BuildMatrix(roster)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build capacity matrix",
		})
	}

	return c.JSON(snapshots)
}
