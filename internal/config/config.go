package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL       string
	JWTSecret         string
	Port              string
	PlannerURL        string
	PlannerAPIKey     string
	PlannerTimeout    time.Duration
	SweepInterval     time.Duration
	MatrixCacheTTL    time.Duration
	ReoptDebounce     time.Duration
	FCMServiceAccount string
	LadderFile        string
}

func Load() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", "dealpods.db"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:              getEnv("PORT", "8080"),
		PlannerURL:        getEnv("PLANNER_URL", "http://localhost:9090"),
		PlannerAPIKey:     getEnv("PLANNER_API_KEY", ""),
		PlannerTimeout:    getDuration("PLANNER_TIMEOUT_SECONDS", 30*time.Second),
		SweepInterval:     getDuration("SWEEP_INTERVAL_SECONDS", 15*time.Minute),
		MatrixCacheTTL:    getDuration("MATRIX_CACHE_TTL_SECONDS", 30*time.Second),
		ReoptDebounce:     getDuration("REOPT_DEBOUNCE_SECONDS", 10*time.Second),
		FCMServiceAccount: getEnv("FCM_SERVICE_ACCOUNT", ""),
		LadderFile:        getEnv("LADDER_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
