package api

import (
	"net/http"
	"strings"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

type joinRequest struct {
	Role string `json:"role"`
}

type possessionRequest struct {
	PlayerID string `json:"player_id"`
}

type commitRequest struct {
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details,omitempty"`
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

type countResponse struct {
	Count int `json:"count"`
}

type pendingResponse struct {
	Items []model.PendingEvent `json:"items"`
	Count int                  `json:"count"`
}

// TrackerHandler serves the per-tracker session routes.
type TrackerHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewTrackerHandler creates a new tracker handler.
func NewTrackerHandler(deps Dependencies, log logger.Logger) *TrackerHandler {
	return &TrackerHandler{deps: deps, log: log}
}

// HandleJoin handles POST /matches/{match}/trackers/{tracker}/join.
func (h *TrackerHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join"
	var req joinRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p := pathOf(r)
	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	st, err := h.deps.Join(r.Context(), p.match, p.tracker, role)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleLeave handles DELETE /matches/{match}/trackers/{tracker}.
func (h *TrackerHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	if err := h.deps.Leave(r.Context(), p.match, p.tracker); err != nil {
		writeServiceError(r.Context(), h.log, w, "api.leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /matches/{match}/trackers/{tracker}/status.
func (h *TrackerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	st, err := h.deps.Status(r.Context(), p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleConnectivity handles PUT /matches/{match}/trackers/{tracker}/connectivity.
func (h *TrackerHandler) HandleConnectivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.connectivity"
	var req connectivityRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Online == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op+": missing online", ErrBadRequest))
		return
	}
	p := pathOf(r)
	st, err := h.deps.SetConnectivity(r.Context(), p.match, p.tracker, *req.Online)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleRefresh handles POST /matches/{match}/trackers/{tracker}/refresh.
func (h *TrackerHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	st, err := h.deps.RefreshAssignment(r.Context(), p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePossession handles POST /matches/{match}/trackers/{tracker}/possession.
func (h *TrackerHandler) HandlePossession(w http.ResponseWriter, r *http.Request) {
	const op = "api.possession"
	var req possessionRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op+": missing player_id", ErrBadRequest))
		return
	}
	p := pathOf(r)
	res, err := h.deps.UpdatePossession(r.Context(), p.match, p.tracker, req.PlayerID)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePending handles GET /matches/{match}/trackers/{tracker}/pending.
func (h *TrackerHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	items, err := h.deps.Pending(r.Context(), p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.pending", err)
		return
	}
	writeJSON(w, http.StatusOK, pendingResponse{Items: items, Count: len(items)})
}

// HandleCommitOne handles POST .../pending/{id}/commit.
func (h *TrackerHandler) HandleCommitOne(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit"
	var req commitRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op+": missing event_type", ErrBadRequest))
		return
	}
	p := pathOf(r)
	row, err := h.deps.CommitOne(r.Context(), p.match, p.tracker, r.PathValue("id"), req.EventType, req.Details)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// HandleCommitAll handles POST .../pending/commit-all.
func (h *TrackerHandler) HandleCommitAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit_all"
	var req commitRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op+": missing event_type", ErrBadRequest))
		return
	}
	p := pathOf(r)
	n, err := h.deps.CommitAll(r.Context(), p.match, p.tracker, req.EventType)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// HandleDiscardOne handles POST .../pending/{id}/discard.
func (h *TrackerHandler) HandleDiscardOne(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	if err := h.deps.DiscardOne(r.Context(), p.match, p.tracker, r.PathValue("id")); err != nil {
		writeServiceError(r.Context(), h.log, w, "api.discard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDiscardAll handles POST .../pending/discard-all.
func (h *TrackerHandler) HandleDiscardAll(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	n, err := h.deps.DiscardAll(r.Context(), p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.discard_all", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// HandleNotices handles GET /matches/{match}/trackers/{tracker}/notices.
func (h *TrackerHandler) HandleNotices(w http.ResponseWriter, r *http.Request) {
	p := pathOf(r)
	notices, err := h.deps.Notices(r.Context(), p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), h.log, w, "api.notices", err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}
