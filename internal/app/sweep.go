package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/pkg/logger"
	"github.com/okian/milepost/pkg/metrics"
)

// RecomputeEligibility rebuilds the trainee's may-evaluate map from
// ground truth: the active station ordering plus the trainee's own
// progress snapshots. The stored map is a cache; this sweep is its only
// writer. Recomputation is a pure function of current state, so re-runs
// are idempotent and safe after a failure.
func (s *Service) RecomputeEligibility(ctx context.Context, traineeID string) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	start := time.Now()
	metrics.RecordSweepRun()

	stations, err := s.store.Stations(ctx)
	if err != nil {
		return fmt.Errorf("read station list: %w", err)
	}
	ordered, err := activeOrdering(stations)
	if err != nil {
		return err
	}

	// One keyed lookup for all of the trainee's snapshots; a station
	// without a snapshot reads as developing below.
	records, err := s.store.TraineeProgress(ctx, traineeID)
	if err != nil {
		return fmt.Errorf("read trainee progress: %w", err)
	}
	levels := make(map[string]level.Level, len(records))
	for _, p := range records {
		levels[p.StationID] = level.Parse(string(p.Level))
	}

	flags := computeEligibility(ordered, levels)

	// Diff against the stored map and write only changed entries, all in
	// one short atomic scope separate from the grading write.
	var flipped int
	err = s.store.RunTransaction(ctx, func(tx repository.Tx) error {
		flipped = 0
		prof, err := tx.Profile(traineeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// No profile document to patch; nothing to do.
				return nil
			}
			return err
		}

		changed := make(map[string]bool)
		for id, v := range flags {
			if prof.CanEvaluate[id] != v {
				changed[id] = v
			}
		}
		if len(changed) == 0 {
			return nil
		}
		flipped = len(changed)
		tx.SetEligibility(traineeID, changed)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write eligibility diff: %w", err)
	}

	metrics.RecordSweepLatency(float64(time.Since(start).Milliseconds()))
	if flipped > 0 {
		metrics.RecordFlagsFlipped(flipped)
		s.logger.Info(ctx, "eligibility updated",
			logger.String("traineeID", traineeID),
			logger.Int("flagsChanged", flipped),
		)
	}

	return nil
}

// activeOrdering filters to active stations, which arrive ascending from
// the store, and rejects duplicate order values: a catalog edited
// into ambiguity must not silently produce an arbitrary map.
func activeOrdering(stations []model.Station) ([]model.Station, error) {
	ordered := make([]model.Station, 0, len(stations))
	seen := make(map[int]string, len(stations))
	for _, st := range stations {
		if !st.Active {
			continue
		}
		if prev, dup := seen[st.Order]; dup {
			return nil, fmt.Errorf("stations %q and %q share order %d: %w", prev, st.ID, st.Order, ErrBadOrdering)
		}
		seen[st.Order] = st.ID
		ordered = append(ordered, st)
	}
	return ordered, nil
}

// computeEligibility evaluates the four-clause rule for every station in
// the ascending ordering:
//
//	prevOk — mastery on every station before s
//	selfOk — mastery on s itself
//	nextOk — at least proficient on the immediate successor, if any
//	lastOk — for the terminal station only, mastery across the board
//
// A trainee must not have skipped ahead, must own the station, must not
// have scraped past it, and needs full mastery to certify at the end.
func computeEligibility(ordered []model.Station, levels map[string]level.Level) map[string]bool {
	has := func(stationID string, need level.Level) bool {
		return level.AtLeast(levels[stationID], need)
	}

	allMastery := true
	for _, st := range ordered {
		if !has(st.ID, level.Mastery) {
			allMastery = false
			break
		}
	}

	flags := make(map[string]bool, len(ordered))
	prevOk := true
	for i, st := range ordered {
		selfOk := has(st.ID, level.Mastery)

		nextOk := true
		if i+1 < len(ordered) {
			nextOk = has(ordered[i+1].ID, level.Proficient)
		}

		lastOk := true
		if i == len(ordered)-1 {
			lastOk = allMastery
		}

		flags[st.ID] = prevOk && selfOk && nextOk && lastOk

		// selfOk feeds the next station's predecessor check.
		prevOk = prevOk && selfOk
	}

	return flags
}
