package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
)

// CreateNotification writes an in-app notification and mirrors it to
// push. Fire-and-forget: failures are logged and never propagated, so a
// broken dispatcher can't roll back a staffing transaction.
func CreateNotification(userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	notif := models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	}

	var pushData map[string]string
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			s := string(data)
			notif.Metadata = &s
		}
		pushData = make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			pushData[k] = fmt.Sprintf("%v", v)
		}
		pushData["type"] = notifType
	}

	if err := database.DB.Create(&notif).Error; err != nil {
		log.Printf("notify: create notification for user %s: %v", userID, err)
		return
	}

	if Push != nil {
		go Push.SendToUser(userID, title, body, pushData)
	}
}

// Dispatcher adapts CreateNotification to the staffing.Notifier
// interface consumed by the formation and reoptimization pipelines.
type Dispatcher struct{}

func (Dispatcher) Notify(userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	CreateNotification(userID, notifType, title, body, metadata)
}
