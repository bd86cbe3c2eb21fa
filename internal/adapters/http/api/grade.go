package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/milepost/internal/app"
	"github.com/okian/milepost/internal/auth"
	"github.com/okian/milepost/internal/domain/level"
)

// gradeRequest mirrors the OpenAPI schema for POST /grade.
type gradeRequest struct {
	ProgressID         string            `json:"progress_id"`
	UserID             string            `json:"user_id"`
	StationID          string            `json:"station_id"`
	Comment            string            `json:"comment"`
	Score              *float64          `json:"score"`
	RequirementRatings map[string]string `json:"requirement_ratings"`
}

func (g gradeRequest) validate() error {
	switch {
	case strings.TrimSpace(g.ProgressID) == "":
		return fmt.Errorf("missing progress_id: %w", ErrBadRequest)
	case strings.TrimSpace(g.UserID) == "":
		return fmt.Errorf("missing user_id: %w", ErrBadRequest)
	case strings.TrimSpace(g.StationID) == "":
		return fmt.Errorf("missing station_id: %w", ErrBadRequest)
	}
	return nil
}

// GradeHandler handles grading requests.
type GradeHandler struct {
	deps     Dependencies
	verifier auth.Verifier
}

// NewGradeHandler creates a new grade handler.
func NewGradeHandler(deps Dependencies, verifier auth.Verifier) *GradeHandler {
	return &GradeHandler{deps: deps, verifier: verifier}
}

// HandlePostGrade handles POST /grade requests.
func (h *GradeHandler) HandlePostGrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	// Resolve the caller before reading anything else.
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing Authorization: Bearer token"))
		return
	}
	graderID, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ratings := make(map[string]level.Level, len(req.RequirementRatings))
	for id, label := range req.RequirementRatings {
		ratings[id] = level.Parse(label)
	}

	result, err := h.deps.Grade(r.Context(), app.GradeRequest{
		ProgressID:         req.ProgressID,
		TraineeID:          req.UserID,
		StationID:          req.StationID,
		GraderID:           graderID,
		Comment:            req.Comment,
		Score:              req.Score,
		RequirementRatings: ratings,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
