package api

import (
	"net/http"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

type rosterRequest struct {
	Players []model.Player `json:"players"`
}

type assignmentRequest struct {
	PlayerIDs  []string `json:"player_ids"`
	EventTypes []string `json:"event_types,omitempty"`
	Role       string   `json:"role,omitempty"`
}

// MatchHandler serves match-level reads and administrator writes.
type MatchHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps Dependencies, log logger.Logger) *MatchHandler {
	return &MatchHandler{deps: deps, log: log}
}

// HandleEvents handles GET /matches/{match}/events.
func (h *MatchHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Events(r.Context(), r.PathValue("match"))
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.events", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandlePutRoster handles PUT /matches/{match}/roster.
func (h *MatchHandler) HandlePutRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_roster"
	var req rosterRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.PutRoster(r.Context(), r.PathValue("match"), req.Players); err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutAssignment handles PUT /matches/{match}/trackers/{tracker}/assignment.
func (h *MatchHandler) HandlePutAssignment(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_assignment"
	var req assignmentRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p := pathOf(r)
	a := model.Assignment{
		MatchID:    p.match,
		TrackerID:  p.tracker,
		PlayerIDs:  req.PlayerIDs,
		EventTypes: req.EventTypes,
		Role:       model.Role(req.Role),
	}
	if err := h.deps.PutAssignment(r.Context(), a); err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
