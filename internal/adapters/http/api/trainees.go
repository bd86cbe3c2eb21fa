package api

import (
	"net/http"
	"strings"
)

// TraineesHandler handles per-trainee read requests.
type TraineesHandler struct {
	deps Dependencies
}

// NewTraineesHandler creates a new trainees handler.
func NewTraineesHandler(deps Dependencies) *TraineesHandler {
	return &TraineesHandler{deps: deps}
}

// HandleGetTrainee handles GET /trainees/{id}/eligibility and
// GET /trainees/{id}/progress requests.
func (h *TraineesHandler) HandleGetTrainee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/trainees/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	traineeID := parts[0]

	switch parts[1] {
	case "eligibility":
		view, err := h.deps.Eligibility(r.Context(), traineeID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "progress":
		records, err := h.deps.TraineeProgress(r.Context(), traineeID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	default:
		http.NotFound(w, r)
	}
}
