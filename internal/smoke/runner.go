package smoke

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/milepost/internal/auth"
	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/internal/domain/types"
	"github.com/okian/milepost/internal/seed"
	"github.com/okian/milepost/pkg/logger"
)

// Bearer token lifetime when signing against a real secret.
const tokenTTL = 10 * time.Minute

// gradePayload mirrors the POST /grade request body.
type gradePayload struct {
	ProgressID         string            `json:"progress_id"`
	UserID             string            `json:"user_id"`
	StationID          string            `json:"station_id"`
	Comment            string            `json:"comment"`
	RequirementRatings map[string]string `json:"requirement_ratings"`
}

// Run executes the full smoke scenario against a running server.
func Run(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Get()
	log.Info(ctx, "starting milepost smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("fixture", cfg.FixtureFile),
		logger.String("trainee", cfg.TraineeID),
		logger.String("grader", cfg.GraderID),
	)

	fixture, err := seed.Load(cfg.FixtureFile)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	plan, err := buildPlan(fixture, cfg.TraineeID)
	if err != nil {
		return err
	}

	graderClient, err := newAuthedClient(cfg, cfg.GraderID)
	if err != nil {
		return err
	}
	traineeClient, err := newAuthedClient(cfg, cfg.TraineeID)
	if err != nil {
		return err
	}

	// Step 1: the server is up and serving metrics.
	if err := graderClient.get(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Step 2: the catalog matches the fixture's active ladder.
	if err := verifyCatalog(ctx, graderClient, plan); err != nil {
		return err
	}

	// Step 3: a trainee grading their own record is rejected.
	first := plan[0]
	selfGrade := gradePayload{
		ProgressID:         first.ProgressID,
		UserID:             cfg.TraineeID,
		StationID:          first.Station.ID,
		Comment:            "self grade probe",
		RequirementRatings: first.Ratings,
	}
	if err := traineeClient.postExpectStatus(ctx, "/grade", selfGrade, http.StatusForbidden); err != nil {
		return fmt.Errorf("self-grade probe: %w", err)
	}
	log.Info(ctx, "self-grade correctly rejected")

	// Step 4: grade the first station alone and check that no flag
	// flips yet; a single mastered station still lacks a proficient
	// successor.
	if err := gradeStep(ctx, graderClient, cfg, first); err != nil {
		return err
	}
	if len(plan) > 1 {
		if err := verifyEligibility(ctx, graderClient, cfg.TraineeID, plan, nil); err != nil {
			return fmt.Errorf("after first station: %w", err)
		}
		log.Info(ctx, "first station mastered, no eligibility yet")
	}

	// Step 5: walk the rest of the ladder.
	for _, s := range plan[1:] {
		if err := gradeStep(ctx, graderClient, cfg, s); err != nil {
			return err
		}
	}

	// Step 6: with every station at mastery the trainee may evaluate
	// everywhere, the terminal station included.
	all := make(map[string]bool, len(plan))
	for _, s := range plan {
		all[s.Station.ID] = true
	}
	if err := verifyEligibility(ctx, graderClient, cfg.TraineeID, plan, all); err != nil {
		return fmt.Errorf("after full ladder: %w", err)
	}

	// Step 7: every snapshot is at mastery with exactly one attempt.
	if err := verifyProgress(ctx, graderClient, cfg.TraineeID, plan); err != nil {
		return err
	}

	// Step 8: the first snapshot carries exactly one history entry
	// recording the grader and the level change.
	if err := verifyHistory(ctx, graderClient, cfg, first); err != nil {
		return err
	}

	log.Info(ctx, "smoke run passed", logger.Int("stations", len(plan)))
	return nil
}

// newAuthedClient builds a client holding a credential for subject.
// With a secret configured the credential is a signed token; without
// one the subject itself is sent, matching auth_disabled servers.
func newAuthedClient(cfg *Config, subject string) (*client, error) {
	token := subject
	if cfg.AuthSecret != "" {
		signed, err := auth.Sign(cfg.AuthSecret, subject, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("sign token for %q: %w", subject, err)
		}
		token = signed
	}
	return newClient(cfg.BaseURL, token, cfg.Timeout), nil
}

func gradeStep(ctx context.Context, c *client, cfg *Config, s step) error {
	payload := gradePayload{
		ProgressID:         s.ProgressID,
		UserID:             cfg.TraineeID,
		StationID:          s.Station.ID,
		Comment:            "smoke run",
		RequirementRatings: s.Ratings,
	}

	var result types.GradeResult
	if err := c.post(ctx, "/grade", payload, &result); err != nil {
		return fmt.Errorf("grade station %q: %w", s.Station.ID, err)
	}
	if result.Level != level.Mastery {
		return fmt.Errorf("%w: station %q graded %q, want %q", ErrMismatch, s.Station.ID, result.Level, level.Mastery)
	}

	if cfg.Verbose {
		logger.Get().Info(ctx, "station graded",
			logger.String("station", s.Station.ID),
			logger.String("level", string(result.Level)),
		)
	}
	return nil
}

func verifyCatalog(ctx context.Context, c *client, plan []step) error {
	var catalog []types.StationSummary
	if err := c.get(ctx, "/stations", &catalog); err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	if len(catalog) != len(plan) {
		return fmt.Errorf("%w: catalog has %d active stations, fixture has %d", ErrMismatch, len(catalog), len(plan))
	}
	for i, s := range plan {
		if catalog[i].ID != s.Station.ID {
			return fmt.Errorf("%w: catalog position %d is %q, fixture has %q", ErrMismatch, i, catalog[i].ID, s.Station.ID)
		}
	}
	return nil
}

// verifyEligibility compares the stored flags against want; stations
// absent from want must be false.
func verifyEligibility(ctx context.Context, c *client, traineeID string, plan []step, want map[string]bool) error {
	var view types.EligibilityView
	if err := c.get(ctx, "/trainees/"+traineeID+"/eligibility", &view); err != nil {
		return fmt.Errorf("fetch eligibility: %w", err)
	}
	for _, s := range plan {
		if view.CanEvaluate[s.Station.ID] != want[s.Station.ID] {
			return fmt.Errorf("%w: station %q eligibility is %t, want %t",
				ErrMismatch, s.Station.ID, view.CanEvaluate[s.Station.ID], want[s.Station.ID])
		}
	}
	return nil
}

func verifyProgress(ctx context.Context, c *client, traineeID string, plan []step) error {
	var records []types.ProgressView
	if err := c.get(ctx, "/trainees/"+traineeID+"/progress", &records); err != nil {
		return fmt.Errorf("fetch progress: %w", err)
	}

	byStation := make(map[string]types.ProgressView, len(records))
	for _, r := range records {
		byStation[r.StationID] = r
	}
	for _, s := range plan {
		r, ok := byStation[s.Station.ID]
		if !ok {
			return fmt.Errorf("%w: no progress record at station %q", ErrMismatch, s.Station.ID)
		}
		if r.Level != level.Mastery {
			return fmt.Errorf("%w: station %q is at %q, want %q", ErrMismatch, s.Station.ID, r.Level, level.Mastery)
		}
		if r.AttemptsCount != 1 {
			return fmt.Errorf("%w: station %q has %d attempts, want 1", ErrMismatch, s.Station.ID, r.AttemptsCount)
		}
	}
	return nil
}

func verifyHistory(ctx context.Context, c *client, cfg *Config, first step) error {
	var entries []model.HistoryEntry
	if err := c.get(ctx, "/progress/"+first.ProgressID+"/history", &entries); err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(entries) != 1 {
		return fmt.Errorf("%w: snapshot %q has %d history entries, want 1", ErrMismatch, first.ProgressID, len(entries))
	}
	entry := entries[0]
	if entry.EvaluatorID != cfg.GraderID {
		return fmt.Errorf("%w: history evaluator is %q, want %q", ErrMismatch, entry.EvaluatorID, cfg.GraderID)
	}
	if entry.To.Level != level.Mastery {
		return fmt.Errorf("%w: history records level %q, want %q", ErrMismatch, entry.To.Level, level.Mastery)
	}
	return nil
}
