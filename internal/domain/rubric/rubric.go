// Package rubric folds per-requirement ratings into category grades and an
// overall station grade.
package rubric

import (
	"context"

	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
)

// Input carries a station's rubric structure and the submitted ratings.
// Ratings for requirements missing from the map default to developing.
type Input struct {
	Categories []model.Category
	Ratings    map[string]level.Level
}

// Result is the aggregated outcome of one grading.
type Result struct {
	Overall        level.Level
	CategoryGrades map[string]level.Level
}

// Aggregator computes a station grade from submitted ratings.
type Aggregator interface {
	Aggregate(ctx context.Context, in Input) (Result, error)
}

// MinRule implements Aggregator with a strict AND-of-minimums: the weakest
// requirement dominates its category, the weakest category dominates the
// station. No averaging, no partial credit.
type MinRule struct{}

// NewMinRule creates the standard min-rule aggregator.
func NewMinRule() *MinRule {
	return &MinRule{}
}

// Aggregate folds ratings per category starting at mastery, then folds the
// category grades the same way. A station with zero categories grades
// developing unconditionally: there is no rubric to grade against.
func (a *MinRule) Aggregate(_ context.Context, in Input) (Result, error) {
	overall := level.Mastery
	grades := make(map[string]level.Level, len(in.Categories))

	for _, cat := range in.Categories {
		catGrade := level.Mastery
		for _, req := range cat.Requirements {
			catGrade = level.Min(catGrade, normalized(in.Ratings, req.ID))
		}
		grades[cat.ID] = catGrade
		overall = level.Min(overall, catGrade)
	}

	if len(in.Categories) == 0 {
		overall = level.Developing
	}

	return Result{Overall: overall, CategoryGrades: grades}, nil
}

// normalized looks up a rating with the fail-low rule applied.
func normalized(ratings map[string]level.Level, reqID string) level.Level {
	r, ok := ratings[reqID]
	if !ok {
		return level.Developing
	}
	return level.Parse(string(r))
}
