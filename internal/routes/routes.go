package routes

import (
	"github.com/arnold/dealpods-api/internal/handlers"
	"github.com/arnold/dealpods-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Setup(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", handlers.GetMe)
	protected.Put("/me", handlers.UpdateProfile)

	// Capacity matrix across the active roster
	protected.Get("/capacity", handlers.GetCapacityMatrix)

	deals := protected.Group("/deals")
	deals.Get("/", handlers.GetDeals)
	deals.Post("/", handlers.CreateDeal)
	deals.Get("/:id", handlers.GetDeal)
	deals.Put("/:id", handlers.UpdateDeal)

	// Staffing and stage movement
	deals.Post("/:id/staff", handlers.StaffDeal)
	deals.Post("/:id/stage", handlers.TransitionStage)
	deals.Get("/:id/pod", handlers.GetActivePod)
	deals.Get("/:id/pods", handlers.GetPodHistory)

	// Work items
	deals.Get("/:id/milestones", handlers.GetDealMilestones)
	deals.Get("/:id/tasks", handlers.GetDealTasks)
	deals.Post("/:id/tasks", handlers.CreateTask)

	// Documents feed the plan generator's context
	deals.Post("/:id/documents", handlers.UploadDocument)
	deals.Get("/:id/documents", handlers.GetDealDocuments)

	// Audit trail
	deals.Get("/:id/context", handlers.GetDealContextUpdates)

	tasks := protected.Group("/tasks")
	tasks.Post("/:taskId/complete", handlers.CompleteTask)
	tasks.Put("/:taskId/assignee", handlers.ReassignTask)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Post("/read-all", handlers.MarkAllRead)

	// Device token for push notifications
	protected.Post("/device-token", handlers.RegisterDeviceToken)

	// WebSocket for real-time deal room updates
	app.Use("/ws", handlers.WebSocketUpgrade())
	app.Get("/ws/deals/:id", websocket.New(handlers.HandleWebSocket))
}
