package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/internal/domain/rubric"
	"github.com/okian/milepost/internal/domain/types"
	"github.com/okian/milepost/pkg/logger"
	"github.com/okian/milepost/pkg/metrics"
)

// GradeRequest carries one grading attempt. GraderID is the
// authenticated caller, resolved out-of-band by the transport layer.
type GradeRequest struct {
	ProgressID         string
	TraineeID          string
	StationID          string
	GraderID           string
	Comment            string
	Score              *float64
	RequirementRatings map[string]level.Level
}

// Grade runs the full pipeline: authorization gate, rubric aggregation,
// the atomic snapshot+history write, and finally the eligibility sweep
// for the graded trainee. A sweep failure does not fail the grade.
func (s *Service) Grade(ctx context.Context, req GradeRequest) (types.GradeResult, error) {
	start := time.Now()

	result, err := s.grade(ctx, req)
	if err != nil {
		metrics.RecordGradingFailure(errorKind(err))
		return types.GradeResult{}, err
	}

	metrics.RecordGrading(string(result.Level))
	metrics.RecordGradingLatency(float64(time.Since(start).Milliseconds()))

	// Best-effort cache recomputation. The grade is already durable; a
	// failure here is observed and retriable, never reported upward.
	if err := s.RecomputeEligibility(ctx, req.TraineeID); err != nil {
		metrics.RecordSweepFailure()
		s.logger.Error(ctx, "eligibility sweep failed after committed grade",
			logger.String("traineeID", req.TraineeID),
			logger.String("progressID", req.ProgressID),
			logger.Error(err),
		)
	}

	return result, nil
}

func (s *Service) grade(ctx context.Context, req GradeRequest) (types.GradeResult, error) {
	if !s.isStarted() {
		return types.GradeResult{}, ErrNotStarted
	}

	if err := s.authorize(ctx, req); err != nil {
		return types.GradeResult{}, err
	}

	station, err := s.store.Station(ctx, req.StationID)
	if err != nil {
		return types.GradeResult{}, err
	}

	agg, err := s.aggregator.Aggregate(ctx, rubric.Input{
		Categories: station.Categories,
		Ratings:    req.RequirementRatings,
	})
	if err != nil {
		return types.GradeResult{}, fmt.Errorf("aggregate rubric: %w", err)
	}

	err = s.store.RunTransaction(ctx, func(tx repository.Tx) error {
		// Progress records are provisioned out-of-band; grading never
		// creates one.
		prior, err := tx.Progress(req.ProgressID)
		if err != nil {
			return err
		}

		now := tx.ServerTime()
		tx.UpdateProgress(req.ProgressID, repository.ProgressPatch{
			Level:             agg.Overall,
			Score:             req.Score,
			LastEvaluatorID:   req.GraderID,
			UpdatedAt:         now,
			IncrementAttempts: 1,
		})
		tx.AppendHistory(req.ProgressID, model.HistoryEntry{
			ID:          uuid.NewString(),
			EvaluatorID: req.GraderID,
			From:        model.GradeState{Level: prior.Level, Score: prior.Score},
			To:          model.GradeState{Level: agg.Overall, Score: req.Score},
			Comment:     req.Comment,
			Rubric: model.RubricSnapshot{
				RequirementRatings: normalizedRatings(req.RequirementRatings),
				CategoryGrades:     agg.CategoryGrades,
				Categories:         station.Categories,
			},
			At: now,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordTxConflict()
		}
		return types.GradeResult{}, err
	}

	s.logger.Info(ctx, "grade committed",
		logger.String("traineeID", req.TraineeID),
		logger.String("stationID", req.StationID),
		logger.String("graderID", req.GraderID),
		logger.String("level", string(agg.Overall)),
	)

	return types.GradeResult{Level: agg.Overall, CategoryGrades: agg.CategoryGrades}, nil
}

// authorize enforces the three gate preconditions in order. No side
// effects happen before all of them pass.
func (s *Service) authorize(ctx context.Context, req GradeRequest) error {
	switch {
	case req.ProgressID == "" || req.TraineeID == "" || req.StationID == "":
		return fmt.Errorf("missing progressId/userId/stationId: %w", ErrBadRequest)
	case req.GraderID == "":
		return ErrUnauthenticated
	}

	grader, err := s.store.Profile(ctx, req.GraderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no grader profile: %w", ErrForbidden)
		}
		return err
	}

	// Unconditional: admins cannot grade themselves either.
	if req.GraderID == req.TraineeID {
		return fmt.Errorf("cannot grade yourself: %w", ErrForbidden)
	}

	if !grader.Admin && !grader.MayEvaluate(req.StationID) {
		return fmt.Errorf("not allowed to evaluate station %q: %w", req.StationID, ErrForbidden)
	}

	return nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// normalizedRatings freezes to known labels before the snapshot lands in
// history, so replays of old entries never re-interpret garbage input.
func normalizedRatings(in map[string]level.Level) map[string]level.Level {
	out := make(map[string]level.Level, len(in))
	for k, v := range in {
		out[k] = level.Parse(string(v))
	}
	return out
}

// errorKind buckets engine errors for the failure counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
