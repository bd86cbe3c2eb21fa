// Package model contains the documents passed between layers.
package model

import (
	"time"

	"github.com/okian/milepost/internal/domain/level"
)

// Requirement is a single gradeable item inside a category.
type Requirement struct {
	ID    string `json:"id" koanf:"id"`
	Label string `json:"label" koanf:"label"`
}

// Category groups requirements and carries the rubric blurb per level.
type Category struct {
	ID           string                 `json:"id" koanf:"id"`
	Label        string                 `json:"label" koanf:"label"`
	Requirements []Requirement          `json:"requirements" koanf:"requirements"`
	Rubric       map[level.Level]string `json:"rubric,omitempty" koanf:"rubric"`
}

// Station is a skill checkpoint. Order is 1-based and defines the global
// sequence; uniqueness across active stations is assumed validated by the
// catalog editor and re-checked by the eligibility sweep.
type Station struct {
	ID         string     `json:"id" koanf:"id"`
	Name       string     `json:"name" koanf:"name"`
	Order      int        `json:"order" koanf:"order"`
	Active     bool       `json:"active" koanf:"active"`
	Categories []Category `json:"categories" koanf:"categories"`
}

// Progress is the current snapshot for one (trainee, station) pair. It is
// mutated only by the grading transaction.
type Progress struct {
	ID              string      `json:"id" koanf:"id"`
	TraineeID       string      `json:"traineeId" koanf:"trainee_id"`
	StationID       string      `json:"stationId" koanf:"station_id"`
	Level           level.Level `json:"level" koanf:"level"`
	Score           *float64    `json:"score" koanf:"score"`
	LastEvaluatorID string      `json:"lastEvaluatorId,omitempty" koanf:"last_evaluator_id"`
	UpdatedAt       time.Time   `json:"updatedAt" koanf:"updated_at"`
	AttemptsCount   int64       `json:"attemptsCount" koanf:"attempts_count"`
}

// GradeState is the {level, score} pair recorded before and after a grading.
type GradeState struct {
	Level level.Level `json:"level"`
	Score *float64    `json:"score"`
}

// RubricSnapshot freezes the rubric structure and computed grades at
// grading time so history stays meaningful after the catalog changes.
type RubricSnapshot struct {
	RequirementRatings map[string]level.Level `json:"requirementRatings"`
	CategoryGrades     map[string]level.Level `json:"categoryGrades"`
	Categories         []Category             `json:"categories"`
}

// HistoryEntry is an append-only child record of a progress snapshot.
// Never updated or deleted after creation.
type HistoryEntry struct {
	ID          string         `json:"id"`
	EvaluatorID string         `json:"evaluatorId"`
	From        GradeState     `json:"from"`
	To          GradeState     `json:"to"`
	Comment     string         `json:"comment"`
	Rubric      RubricSnapshot `json:"rubric"`
	At          time.Time      `json:"at"`
}

// Profile is the slice of a user document the engine cares about: role
// flags plus the derived evaluator-eligibility map. CanEvaluate is a cache
// owned by the eligibility sweep; nothing else may write it.
type Profile struct {
	ID          string          `json:"id" koanf:"id"`
	DisplayName string          `json:"displayName,omitempty" koanf:"display_name"`
	Admin       bool            `json:"admin" koanf:"admin"`
	CanEvaluate map[string]bool `json:"canEvaluate" koanf:"can_evaluate"`
}

// MayEvaluate reports whether the profile holds an evaluate grant for the
// station. Admin status is checked separately by the authorization gate.
func (p Profile) MayEvaluate(stationID string) bool {
	return p.CanEvaluate[stationID]
}
