package api

import (
	"net/http"
	"strconv"

	"github.com/okian/milepost/internal/domain/types"
)

// StationsHandler handles catalog requests.
type StationsHandler struct {
	deps Dependencies
}

// NewStationsHandler creates a new stations handler.
func NewStationsHandler(deps Dependencies) *StationsHandler {
	return &StationsHandler{deps: deps}
}

// HandleGetStations handles GET /stations requests. Inactive stations
// are hidden unless ?include_inactive=true.
func (h *StationsHandler) HandleGetStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	stations, err := h.deps.Stations(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if !includeInactive {
		active := make([]types.StationSummary, 0, len(stations))
		for _, st := range stations {
			if st.Active {
				active = append(active, st)
			}
		}
		stations = active
	}

	writeJSON(w, http.StatusOK, stations)
}
