package smoke

import (
	"fmt"
	"sort"

	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/internal/seed"
)

// step is one grading in the ladder walk: a station, the trainee's
// progress record at it, and a full-mastery rating sheet.
type step struct {
	Station    model.Station
	ProgressID string
	Ratings    map[string]string
}

// buildPlan derives the ladder walk from the fixture: every active
// station in ascending order, each graded straight to mastery.
func buildPlan(f seed.Fixture, traineeID string) ([]step, error) {
	progressByStation := make(map[string]string)
	for _, p := range f.Progress {
		if p.TraineeID == traineeID {
			progressByStation[p.StationID] = p.ID
		}
	}

	var plan []step
	for _, st := range f.Stations {
		if !st.Active {
			continue
		}
		progressID, ok := progressByStation[st.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no progress record for trainee %q at station %q", ErrBadConfig, traineeID, st.ID)
		}
		plan = append(plan, step{
			Station:    st,
			ProgressID: progressID,
			Ratings:    masteryRatings(st),
		})
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: fixture has no active stations", ErrBadConfig)
	}

	sort.Slice(plan, func(i, j int) bool {
		return plan[i].Station.Order < plan[j].Station.Order
	})
	return plan, nil
}

// masteryRatings rates every requirement of the station at mastery.
func masteryRatings(st model.Station) map[string]string {
	ratings := make(map[string]string)
	for _, cat := range st.Categories {
		for _, req := range cat.Requirements {
			ratings[req.ID] = string(level.Mastery)
		}
	}
	return ratings
}
