package main

import (
	"context"
	"log"
	"time"

	"github.com/arnold/dealpods-api/internal/config"
	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/handlers"
	"github.com/arnold/dealpods-api/internal/policy"
	"github.com/arnold/dealpods-api/internal/routes"
	"github.com/arnold/dealpods-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	if cfg.LadderFile != "" {
		if err := policy.LoadLadders(cfg.LadderFile); err != nil {
			log.Fatalf("Failed to load staffing ladders: %v", err)
		}
	}

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if err := services.InitPush(cfg.FCMServiceAccount); err != nil {
		log.Printf("Push init: %v", err)
	}

	handlers.InitCore(cfg)

	app := fiber.New(fiber.Config{
		AppName: "dealpods-api",
	})
	app.Use(logger.New())
	app.Use(cors.New())
	app.Static("/uploads", "./uploads")

	routes.Setup(app)

	go sweepLoop(cfg.SweepInterval)

	log.Printf("Listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// sweepLoop periodically rebalances deals with underutilized members.
func sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		handlers.Reopt.SweepUnderutilized(context.Background())
	}
}
