// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/app"
	"github.com/okian/milepost/internal/auth"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Grade runs one grading attempt through the engine.
	Grade(ctx context.Context, req app.GradeRequest) (types.GradeResult, error)

	// Read operations expose catalog and progression data.
	Stations(ctx context.Context) ([]types.StationSummary, error)
	Eligibility(ctx context.Context, traineeID string) (types.EligibilityView, error)
	TraineeProgress(ctx context.Context, traineeID string) ([]types.ProgressView, error)
	History(ctx context.Context, progressID string) ([]model.HistoryEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	gradeHandler    *GradeHandler
	stationsHandler *StationsHandler
	traineesHandler *TraineesHandler
	historyHandler  *HistoryHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, verifier auth.Verifier, statsProvider StatsProvider) *Server {
	return &Server{
		gradeHandler:    NewGradeHandler(deps, verifier),
		stationsHandler: NewStationsHandler(deps),
		traineesHandler: NewTraineesHandler(deps),
		historyHandler:  NewHistoryHandler(deps),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/grade", MetricsMiddleware(s.gradeHandler.HandlePostGrade, "grade"))
	mux.HandleFunc("/stations", MetricsMiddleware(s.stationsHandler.HandleGetStations, "stations"))
	mux.HandleFunc("/trainees/", MetricsMiddleware(s.traineesHandler.HandleGetTrainee, "trainees"))
	mux.HandleFunc("/progress/", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine and store error kinds to HTTP.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSubject):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, app.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrConflict):
		// Retries are exhausted; the caller may safely try again.
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
	}
}
