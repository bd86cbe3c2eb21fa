// Package types contains read shapes shared between the service and the API.
package types

import (
	"time"

	"github.com/okian/milepost/internal/domain/level"
)

// GradeResult is returned to the caller after a successful grading.
type GradeResult struct {
	Level          level.Level            `json:"level"`
	CategoryGrades map[string]level.Level `json:"category_grades"`
}

// StationSummary is the catalog read shape, ordered by sequence position.
type StationSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Order  int    `json:"order"`
	Active bool   `json:"active"`
}

// ProgressView is the per-station progress read shape for one trainee.
type ProgressView struct {
	ProgressID    string      `json:"progress_id"`
	StationID     string      `json:"station_id"`
	Level         level.Level `json:"level"`
	Score         *float64    `json:"score"`
	AttemptsCount int64       `json:"attempts_count"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// EligibilityView is the derived may-evaluate map for one trainee.
type EligibilityView struct {
	TraineeID   string          `json:"trainee_id"`
	CanEvaluate map[string]bool `json:"can_evaluate"`
}
