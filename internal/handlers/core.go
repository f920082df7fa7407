package handlers

import (
	"github.com/arnold/dealpods-api/internal/capacity"
	"github.com/arnold/dealpods-api/internal/config"
	"github.com/arnold/dealpods-api/internal/database"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/reopt"
	"github.com/arnold/dealpods-api/internal/services"
	"github.com/arnold/dealpods-api/internal/staffing"
)

// Core services shared by the handlers, wired once at startup.
var (
	Locks       *staffing.LockMap
	Matrix      *capacity.Builder
	Former      *staffing.Former
	Coordinator *staffing.Coordinator
	Reopt       *reopt.Engine
)

func InitCore(cfg *config.Config) {
	Locks = staffing.NewLockMap()
	Matrix = capacity.NewBuilder(capacity.NewGormStore(database.DB), cfg.MatrixCacheTTL)

	gen := planner.NewClient(cfg.PlannerURL, cfg.PlannerAPIKey, cfg.PlannerTimeout)
	notifier := services.Dispatcher{}

	Former = staffing.NewFormer(database.DB, gen, Matrix, notifier, Locks)
	Coordinator = staffing.NewCoordinator(database.DB, Former, Locks)
	Reopt = reopt.New(database.DB, gen, Matrix, Locks, notifier, cfg.ReoptDebounce)
}
