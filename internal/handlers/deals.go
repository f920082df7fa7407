package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/staffing"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func CreateDeal(c *fiber.Ctx) error {
	var req models.CreateDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.ValueUSD <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and a positive deal value are required",
		})
	}

	deal := models.Deal{
		Name:     req.Name,
		Sector:   req.Sector,
		ValueUSD: req.ValueUSD,
		Stage:    models.StageOrigination,
		Status:   models.DealStatusActive,
	}
	if req.Priority != "" {
		deal.Priority = req.Priority
	}

	if err := database.DB.Create(&deal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create deal",
		})
	}

	// Staff the origination pod. The deal record survives a staffing
	// failure; the caller retries via POST /deals/:id/staff.
	pod, err := staffDeal(c.UserContext(), deal)
	if err != nil {
		return staffingError(c, err, fiber.Map{"deal": deal})
	}

	WS.Broadcast(deal.ID, uuid.Nil, WSEvent{
		Type:   EventPodFormed,
		DealID: deal.ID.String(),
		Data:   pod,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"deal": deal,
		"pod":  pod,
	})
}

// StaffDeal (re)forms the pod for the deal's current stage, carrying the
// most recent pod's lead forward if one exists.
func StaffDeal(c *fiber.Ctx) error {
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

	var active models.Pod
	if database.DB.Where("deal_id = ? AND status = ?", dealID, models.PodStatusActive).First(&active).Error == nil {
		return c.JSON(fiber.Map{"pod": active})
	}

	pod, err := staffDeal(c.UserContext(), deal)
	if err != nil {
		return staffingError(c, err, nil)
	}

	WS.Broadcast(deal.ID, uuid.Nil, WSEvent{
		Type:   EventPodFormed,
		DealID: deal.ID.String(),
		Data:   pod,
	})

	return c.JSON(fiber.Map{"pod": pod})
}

func staffDeal(ctx context.Context, deal models.Deal) (*models.Pod, error) {
	// Carry the previous pod's lead forward if this stage was staffed
	// before.
	var priorLead *uuid.UUID
	var prior models.Pod
	err := database.DB.Where("deal_id = ?", deal.ID).Order("created_at DESC").First(&prior).Error
	if err == nil {
		lead := prior.LeadUserID
		priorLead = &lead
	}

	pod, err := Former.FormPod(ctx, deal, deal.Stage, priorLead)
	if errors.Is(err, staffing.ErrActivePodExists) {
		// A concurrent formation won the race after our pre-check; its
		// pod is the answer.
		var active models.Pod
		if database.DB.Where("deal_id = ? AND status = ?", deal.ID, models.PodStatusActive).First(&active).Error == nil {
			return &active, nil
		}
	}
	return pod, err
}

func GetDeals(c *fiber.Ctx) error {
	query := database.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if stage := c.Query("stage"); stage != "" {
		query = query.Where("stage = ?", stage)
	}

	var deals []models.Deal
	query.Find(&deals)
	return c.JSON(deals)
}

func GetDeal(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var deal models.Deal
	err = database.DB.
		Preload("Pods", "status = ?", models.PodStatusActive).
		Preload("Pods.Members").
		Preload("Pods.Members.User").
		First(&deal, "id = ?", dealID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deal not found",
		})
	}

	return c.JSON(deal)
}

func UpdateDeal(c *fiber.Ctx) error {
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

	var req models.UpdateDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	changed := false
	if req.Name != nil {
		deal.Name = *req.Name
	}
	if req.Sector != nil {
		deal.Sector = *req.Sector
	}
	if req.ValueUSD != nil {
		if *req.ValueUSD <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Deal value must be positive",
			})
		}
		deal.ValueUSD = *req.ValueUSD
		changed = true
	}
	if req.Status != nil {
		switch *req.Status {
		case models.DealStatusActive, models.DealStatusOnHold, models.DealStatusClosed:
			deal.Status = *req.Status
			changed = true
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status",
			})
		}
	}
	if req.Priority != nil {
		deal.Priority = *req.Priority
		changed = true
	}

	if err := database.DB.Save(&deal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update deal",
		})
	}

	// Metadata changes kick off a background reoptimization pass.
	if changed && deal.Status == models.DealStatusActive {
		go runReopt(deal.ID, func(ctx context.Context) (interface{}, error) {
			return Reopt.DealUpdated(ctx, deal.ID)
		})
	}

	return c.JSON(deal)
}

// TransitionStage is the only HTTP path that moves a deal forward.
func TransitionStage(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var req models.TransitionRequest
	if err := c.BodyParser(&req); err != nil || req.Stage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Target stage is required",
		})
	}

	pod, err := Coordinator.Transition(c.UserContext(), dealID, req.Stage)
	if err != nil {
		return staffingError(c, err, nil)
	}

	WS.Broadcast(dealID, uuid.Nil, WSEvent{
		Type:   EventStageAdvanced,
		DealID: dealID.String(),
		Data: fiber.Map{
			"stage": req.Stage,
			"pod":   pod,
		},
	})

	return c.JSON(fiber.Map{
		"stage": req.Stage,
		"pod":   pod,
	})
}

func GetDealContextUpdates(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid deal ID",
		})
	}

	var updates []models.ContextUpdate
	database.DB.Where("deal_id = ?", dealID).Order("created_at DESC").Limit(50).Find(&updates)
	return c.JSON(updates)
}

// staffingError maps core errors onto HTTP statuses. A policy violation
// is a genuine conflict requiring escalation, not a retry.
func staffingError(c *fiber.Ctx, err error, extra fiber.Map) error {
	status := fiber.StatusInternalServerError
	var pv *staffing.PolicyViolationError
	switch {
	case errors.Is(err, staffing.ErrDealBusy):
		status = fiber.StatusConflict
	case errors.Is(err, staffing.ErrDealClosed):
		status = fiber.StatusConflict
	case errors.As(err, &pv):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, planner.ErrUnavailable):
		status = fiber.StatusBadGateway
	case errors.Is(err, planner.ErrMalformed):
		status = fiber.StatusBadGateway
	}

	body := fiber.Map{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// runReopt executes a background reoptimization trigger and broadcasts
// the outcome to the deal room.
func runReopt(dealID uuid.UUID, fn func(ctx context.Context) (interface{}, error)) {
	result, err := fn(context.Background())
	if err != nil {
		log.Printf("handlers: reoptimization for deal %s: %v", dealID, err)
		return
	}
	WS.Broadcast(dealID, uuid.Nil, WSEvent{
		Type:   EventTasksRebalanced,
		DealID: dealID.String(),
		Data:   result,
	})
}
