// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/matchtrack/internal/app"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. The service satisfies it; tests
// substitute fakes.
type Dependencies interface {
	StatsProvider

	Join(ctx context.Context, matchID, trackerID string, role model.Role) (service.Status, error)
	Leave(ctx context.Context, matchID, trackerID string) error
	Status(ctx context.Context, matchID, trackerID string) (service.Status, error)
	SetConnectivity(ctx context.Context, matchID, trackerID string, online bool) (service.Status, error)
	RefreshAssignment(ctx context.Context, matchID, trackerID string) (service.Status, error)

	UpdatePossession(ctx context.Context, matchID, trackerID, playerID string) (service.PossessionResult, error)

	Pending(ctx context.Context, matchID, trackerID string) ([]model.PendingEvent, error)
	CommitOne(ctx context.Context, matchID, trackerID, pendingID, label string, extra map[string]any) (model.PersistedEvent, error)
	CommitAll(ctx context.Context, matchID, trackerID, label string) (int, error)
	DiscardOne(ctx context.Context, matchID, trackerID, pendingID string) error
	DiscardAll(ctx context.Context, matchID, trackerID string) (int, error)

	Notices(ctx context.Context, matchID, trackerID string) ([]model.Notice, error)
	WatchNotices(matchID, trackerID string) (<-chan model.Notice, func(), error)

	Events(ctx context.Context, matchID string) ([]model.PersistedEvent, error)
	PutRoster(ctx context.Context, matchID string, players []model.Player) error
	PutAssignment(ctx context.Context, a model.Assignment) error

	Online() bool
}

// Server wires HTTP routes for the tracker API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	trackerHandler *TrackerHandler
	matchHandler   *MatchHandler
	feedHandler    *FeedHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...FeedOption) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler:  NewHealthHandler(deps.Online),
		statsHandler:   NewStatsHandler(deps),
		trackerHandler: NewTrackerHandler(deps, log),
		matchHandler:   NewMatchHandler(deps, log),
		feedHandler:    NewFeedHandler(deps, log, opts...),
	}
}

// Register attaches all HTTP routes to mux. ctx bounds the lifetime of
// live feed connections.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.feedHandler.base = ctx

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	const tracker = "/matches/{match}/trackers/{tracker}"
	t := s.trackerHandler
	mux.HandleFunc("POST "+tracker+"/join", MetricsMiddleware(t.HandleJoin, "join"))
	mux.HandleFunc("DELETE "+tracker, MetricsMiddleware(t.HandleLeave, "leave"))
	mux.HandleFunc("GET "+tracker+"/status", MetricsMiddleware(t.HandleStatus, "status"))
	mux.HandleFunc("PUT "+tracker+"/connectivity", MetricsMiddleware(t.HandleConnectivity, "connectivity"))
	mux.HandleFunc("POST "+tracker+"/refresh", MetricsMiddleware(t.HandleRefresh, "refresh"))
	mux.HandleFunc("POST "+tracker+"/possession", MetricsMiddleware(t.HandlePossession, "possession"))
	mux.HandleFunc("GET "+tracker+"/pending", MetricsMiddleware(t.HandlePending, "pending"))
	mux.HandleFunc("POST "+tracker+"/pending/commit-all", MetricsMiddleware(t.HandleCommitAll, "commit_all"))
	mux.HandleFunc("POST "+tracker+"/pending/discard-all", MetricsMiddleware(t.HandleDiscardAll, "discard_all"))
	mux.HandleFunc("POST "+tracker+"/pending/{id}/commit", MetricsMiddleware(t.HandleCommitOne, "commit"))
	mux.HandleFunc("POST "+tracker+"/pending/{id}/discard", MetricsMiddleware(t.HandleDiscardOne, "discard"))
	mux.HandleFunc("GET "+tracker+"/notices", MetricsMiddleware(t.HandleNotices, "notices"))
	mux.HandleFunc("GET "+tracker+"/feed", MetricsMiddleware(s.feedHandler.HandleFeed, "feed"))

	m := s.matchHandler
	mux.HandleFunc("GET /matches/{match}/events", MetricsMiddleware(m.HandleEvents, "events"))
	mux.HandleFunc("PUT /matches/{match}/roster", MetricsMiddleware(m.HandlePutRoster, "roster"))
	mux.HandleFunc("PUT "+tracker+"/assignment", MetricsMiddleware(m.HandlePutAssignment, "assignment"))
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
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

// writeServiceError translates a service error and logs server-side
// failures.
func writeServiceError(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	status, code, retryable := errorStatus(err)
	if status >= statusInternalError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Int("status", status), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error(), Retryable: retryable})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

type trackerPath struct {
	match   string
	tracker string
}

func pathOf(r *http.Request) trackerPath {
	return trackerPath{match: r.PathValue("match"), tracker: r.PathValue("tracker")}
}

func nowUTC() time.Time { return time.Now().UTC() }
