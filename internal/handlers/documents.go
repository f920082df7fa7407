package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/middleware"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UploadDocument stores deal material and fires the document-uploaded
// reoptimization trigger.
func UploadDocument(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
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

	file, err := c.FormFile("document")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No document file provided",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := map[string]bool{".pdf": true, ".docx": true, ".xlsx": true, ".txt": true, ".md": true}
	if !allowed[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only pdf, docx, xlsx, txt, and md documents are allowed",
		})
	}

	// Limit to 10MB
	if file.Size > 10*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Document must be under 10MB",
		})
	}

	uploadsDir := "uploads"
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create uploads directory",
		})
	}

	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	savePath := filepath.Join(uploadsDir, filename)
	if err := c.SaveFile(file, savePath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save document",
		})
	}

	doc := models.Document{
		DealID:     dealID,
		UploadedBy: userID,
		FileName:   file.Filename,
		URL:        "/uploads/" + filename,
		Excerpt:    c.FormValue("excerpt"),
	}
	if err := database.DB.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record document",
		})
	}

	if deal.Status == models.DealStatusActive {
		go runReopt(dealID, func(ctx context.Context) (interface{}, error) {
			return Reopt.DocumentUploaded(ctx, dealID)
		})
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func GetDealDocuments(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var docs []models.Document
	database.DB.Where("deal_id = ?", dealID).Order("created_at DESC").Find(&docs)
	return c.JSON(docs)
}
