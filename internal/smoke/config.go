package smoke

import (
	"time"

	"github.com/okian/recipebox/pkg/logger"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Recipes int           // Number of recipes to create, update and delete
	Workers int           // Maximum concurrent requests
	Timeout time.Duration // Per-request HTTP timeout
	Verbose bool          // Log every step at info instead of debug
	Logger  logger.Logger // Defaults to logger.Get()
}

// Stats holds run statistics.
type Stats struct {
	Baseline  int
	Created   int
	Updated   int
	Deleted   int
	Verified  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Health mirrors the /healthz payload.
type Health struct {
	Status  string `json:"status"`
	Recipes int    `json:"recipes"`
}
