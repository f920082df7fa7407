package staffing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coordinator drives deals through the stage state machine. It is the
// only legal writer of Deal.Stage.
type Coordinator struct {
	db     *gorm.DB
	former *Former
	locks  *LockMap
}

func NewCoordinator(db *gorm.DB, former *Former, locks *LockMap) *Coordinator {
	return &Coordinator{db: db, former: former, locks: locks}
}

// Transition closes the current pod, advances the deal, and forms the
// next stage's pod carrying the lead forward. Transitioning twice to the
// same stage is a no-op beyond log noise. The old pod, the stage write,
// and the new pod commit in one transaction.
//
// The external proposal runs against an unlocked snapshot; the deal lock
// covers only re-validation and the writes. If the deal moved while the
// generator was thinking, the stale proposal is discarded and the caller
// retries.
func (c *Coordinator) Transition(ctx context.Context, dealID uuid.UUID, newStage string) (*models.Pod, error) {
	var deal models.Deal
	if err := c.db.First(&deal, "id = ?", dealID).Error; err != nil {
		return nil, err
	}
	if deal.Status == models.DealStatusClosed {
		return nil, ErrDealClosed
	}
	if err := ValidateTransition(deal.Stage, newStage); err != nil {
		return nil, err
	}

	var current models.Pod
	hasCurrent := c.db.
		Where("deal_id = ? AND status = ?", dealID, models.PodStatusActive).
		First(&current).Error == nil

	if deal.Stage == newStage && hasCurrent && current.Stage == newStage {
		log.Printf("staffing: deal %s already at %s with an active pod, nothing to do", dealID, newStage)
		return &current, nil
	}

	var priorLead *uuid.UUID
	if hasCurrent {
		lead := current.LeadUserID
		priorLead = &lead
	}

	plan, err := c.former.propose(ctx, deal, newStage, priorLead)
	if err != nil {
		return nil, err
	}

	release, ok := c.locks.TryAcquire(dealID)
	if !ok {
		return nil, ErrDealBusy
	}
	defer release()

	// Re-validate under the lock before trusting the proposal.
	var fresh models.Deal
	if err := c.db.First(&fresh, "id = ?", dealID).Error; err != nil {
		return nil, err
	}
	if fresh.Status == models.DealStatusClosed {
		return nil, ErrDealClosed
	}

	var freshPod models.Pod
	hasFresh := c.db.
		Where("deal_id = ? AND status = ?", dealID, models.PodStatusActive).
		First(&freshPod).Error == nil

	if fresh.Stage == newStage && hasFresh && freshPod.Stage == newStage {
		log.Printf("staffing: deal %s reached %s concurrently, keeping its pod", dealID, newStage)
		return &freshPod, nil
	}
	if err := ValidateTransition(fresh.Stage, newStage); err != nil {
		return nil, err
	}
	// The proposal was built against the pre-lock snapshot. Any change
	// underneath it makes the proposal stale.
	if fresh.Stage != deal.Stage || hasFresh != hasCurrent || (hasFresh && freshPod.ID != current.ID) {
		return nil, ErrDealBusy
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		if hasFresh {
			if err := tx.Model(&models.Pod{}).
				Where("id = ?", freshPod.ID).
				Update("status", models.PodStatusCompleted).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Deal{}).
			Where("id = ?", deal.ID).
			Update("stage", newStage).Error; err != nil {
			return err
		}
		return c.former.persist(tx, plan)
	})
	if err != nil {
		return nil, err
	}

	c.former.afterCommit(plan)
	c.recordTransition(deal, newStage, plan.pod.ID)
	return &plan.pod, nil
}

func (c *Coordinator) recordTransition(deal models.Deal, newStage string, podID uuid.UUID) {
	meta, _ := json.Marshal(map[string]interface{}{
		"from":  deal.Stage,
		"to":    newStage,
		"podId": podID.String(),
	})
	metadata := string(meta)
	update := models.ContextUpdate{
		DealID:   deal.ID,
		Kind:     "stage_advanced",
		Summary:  fmt.Sprintf("Deal advanced from %s to %s", deal.Stage, newStage),
		Metadata: &metadata,
	}
	if err := c.db.Create(&update).Error; err != nil {
		log.Printf("staffing: transition audit for deal %s: %v", deal.ID, err)
	}
}
