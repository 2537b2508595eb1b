// Package service hosts tracker sessions and exposes the operations the
// HTTP API drives: joining a match, announcing possession, and working
// through a pending queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	"github.com/okian/matchtrack/internal/adapters/repository"
	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/internal/domain/inference"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/internal/domain/pending"
	"github.com/okian/matchtrack/internal/domain/roster"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Notice codes raised by the service.
const (
	noticeOnline       = "online"
	noticeOffline      = "offline"
	noticeOverlap      = "assignment_overlap"
	noticeSecondWriter = "second_possession_tracker"
)

// Status is the view of one tracker session.
type Status struct {
	MatchID     string                 `json:"match_id"`
	TrackerID   string                 `json:"tracker_id"`
	Role        model.Role             `json:"role"`
	Online      bool                   `json:"online"`
	OnlineSince time.Time              `json:"online_since"`
	Warning     *model.Notice          `json:"warning,omitempty"`
	LastHolder  *model.PossessionEvent `json:"last_holder,omitempty"`
	Players     []model.Player         `json:"players,omitempty"`
	EventTypes  []string               `json:"event_types,omitempty"`
	Pending     int                    `json:"pending"`
	JoinedAt    time.Time              `json:"joined_at"`
}

// sessionDeps are the collaborators handed to a new session.
type sessionDeps struct {
	channel  broadcast.Channel
	writer   EventWriter
	engine   *inference.Engine
	resolver *roster.Resolver
	monitor  *connectivity.Monitor
	notices  *NoticeBoard
	now      func() time.Time
	logger   logger.Logger
}

type trackerSession struct {
	matchID    string
	trackerID  string
	role       model.Role
	joinedAt   time.Time
	monitor    *connectivity.Monitor
	notices    *NoticeBoard
	possession *PossessionSession
	player     *PlayerSession
	stopRelay  func()
}

func (ts *trackerSession) status() Status {
	st := Status{
		MatchID:     ts.matchID,
		TrackerID:   ts.trackerID,
		Role:        ts.role,
		Online:      ts.monitor.Online(),
		OnlineSince: ts.monitor.Since(),
		Warning:     ts.notices.Banner(),
		JoinedAt:    ts.joinedAt,
	}
	if ts.possession != nil {
		st.LastHolder = ts.possession.LastHolder()
	}
	if ts.player != nil {
		st.Players = ts.player.Roster().Players()
		a := ts.player.Assignment()
		st.EventTypes = a.EventTypes
		if len(st.EventTypes) == 0 {
			st.EventTypes = model.DefaultEventTypes
		}
		st.Pending = ts.player.queue.Len()
	}
	return st
}

func sessionKey(matchID, trackerID string) string {
	return matchID + "|" + trackerID
}

// Service owns every tracker session of this process.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	channel     broadcast.Channel
	ownsChannel bool
	resolver    *roster.Resolver
	engine      *inference.Engine
	transport   *connectivity.Monitor
	sessions    map[string]*trackerSession

	// Configuration
	dribbleThreshold time.Duration
	debounce         time.Duration
	expiry           time.Duration
	refreshInterval  time.Duration
	sweepInterval    time.Duration
	resolvedMemory   int
	probeInterval    time.Duration
	noticeLimit      int
	now              func() time.Time

	// State
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:         make(map[string]*trackerSession),
		dribbleThreshold: inference.DefaultDribbleThreshold,
		debounce:         pending.DefaultDebounce,
		expiry:           model.DefaultExpiry,
		refreshInterval:  pending.DefaultRefreshInterval,
		sweepInterval:    pending.DefaultSweepInterval,
		resolvedMemory:   4096,
		probeInterval:    connectivity.DefaultProbeInterval,
		noticeLimit:      defaultNoticeLimit,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory match store")
	}
	if s.channel == nil {
		s.channel = broadcast.NewHub()
		s.ownsChannel = true
		s.logger.Info(ctx, "using in-process broadcast hub")
	}
	s.resolver = roster.NewResolver()
	s.engine = inference.NewEngine(inference.WithDribbleThreshold(s.dribbleThreshold))
	s.transport = connectivity.NewMonitor("transport", connectivity.WithClock(s.now))

	// Sessions outlive the caller's start context.
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	prober := connectivity.NewProber(s.channel, s.transport, s.probeInterval)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		prober.Run(s.runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.relayTransport(s.runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "tracker service started",
		logger.Duration("debounce", s.debounce),
		logger.Duration("expiry", s.expiry),
		logger.Duration("dribble_threshold", s.dribbleThreshold),
	)
	return nil
}

// Stop tears down every session and background loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	sessions := make([]*trackerSession, 0, len(s.sessions))
	for key, ts := range s.sessions {
		sessions = append(sessions, ts)
		delete(s.sessions, key)
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tracker service...", logger.Int("sessions", len(sessions)))
	for _, ts := range sessions {
		s.closeSession(ctx, ts)
	}
	s.wg.Wait()
	s.updateSessionGauges()

	if s.ownsChannel {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn(ctx, "closing broadcast hub", logger.Error(err))
		}
		s.channel = nil
		s.ownsChannel = false
	}
	s.logger.Info(ctx, "tracker service stopped")
}

// relayTransport applies transport reachability to every session.
func (s *Service) relayTransport(ctx context.Context) {
	changes, cancel := s.transport.Watch()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			online := s.transport.Online()
			s.mu.RLock()
			for _, ts := range s.sessions {
				ts.monitor.SetOnline(ctx, online)
			}
			s.mu.RUnlock()
		}
	}
}

// relayConnectivity turns a session's connectivity changes into notices.
// Offline raises a persistent banner until the connection returns. Each
// wake-up reports the monitor's current state, so a flap that settles
// back to the shown state emits nothing.
func (s *Service) relayConnectivity(ts *trackerSession) func() {
	changes, cancel := ts.monitor.Watch()
	shown := ts.monitor.Online()
	if !shown {
		ts.notices.SetBanner(offlineNotice(ts.monitor.Since()))
	}
	go func() {
		ctx := context.Background()
		for range changes {
			online := ts.monitor.Online()
			if online == shown {
				continue
			}
			shown = online
			at := ts.monitor.Since()
			if online {
				ts.notices.ClearBanner()
				ts.notices.Notify(ctx, model.Notice{
					Level: model.NoticeInfo, Code: noticeOnline,
					Message: "Back online. Recording is enabled again.", At: at,
				})
				continue
			}
			n := offlineNotice(at)
			ts.notices.SetBanner(n)
			ts.notices.Notify(ctx, n)
		}
	}()
	return cancel
}

func offlineNotice(at time.Time) model.Notice {
	return model.Notice{
		Level: model.NoticeWarning, Code: noticeOffline,
		Message: "Offline. Possession updates and commits are disabled.", At: at,
	}
}

// Join opens a session for trackerID in matchID. The role comes from the
// stored assignment; a non-empty role must match it. Joining twice
// returns the existing session.
func (s *Service) Join(ctx context.Context, matchID, trackerID string, role model.Role) (Status, error) {
	if matchID == "" || trackerID == "" {
		return Status{}, fmt.Errorf("%w: match and tracker ids are required", ErrInvalidArgument)
	}
	if role != "" && role != model.RolePossession && role != model.RolePlayer {
		return Status{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return Status{}, ErrNotStarted
	}
	existing := s.sessions[sessionKey(matchID, trackerID)]
	s.mu.RUnlock()
	if existing != nil {
		if role != "" && role != existing.role {
			return Status{}, fmt.Errorf("%w: joined as %s", ErrWrongRole, existing.role)
		}
		return existing.status(), nil
	}

	a, integrityErr, err := s.loadAssignment(ctx, matchID, trackerID)
	if err != nil {
		return Status{}, err
	}
	effective := assignedRole(&a, integrityErr, role)
	if role != "" && role != effective {
		return Status{}, fmt.Errorf("%w: assignment is for a %s tracker", ErrWrongRole, effective)
	}
	players, err := s.loadRoster(ctx, matchID)
	if err != nil {
		return Status{}, err
	}

	ts, err := s.openSession(ctx, a, effective, players)
	if err != nil {
		return Status{}, err
	}
	if integrityErr != nil {
		s.reportIntegrity(ctx, ts, integrityErr)
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.closeSession(ctx, ts)
		return Status{}, ErrNotStarted
	}
	if raced := s.sessions[sessionKey(matchID, trackerID)]; raced != nil {
		s.mu.Unlock()
		s.closeSession(ctx, ts)
		return raced.status(), nil
	}
	s.flagConflicts(ctx, ts)
	s.sessions[sessionKey(matchID, trackerID)] = ts
	s.mu.Unlock()
	s.updateSessionGauges()

	s.logger.Info(ctx, "tracker joined",
		logger.String("match", matchID),
		logger.String("tracker", trackerID),
		logger.String("role", string(effective)),
	)
	return ts.status(), nil
}

func (s *Service) loadAssignment(ctx context.Context, matchID, trackerID string) (model.Assignment, error, error) {
	rec, err := s.store.Assignment(ctx, matchID, trackerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Assignment{}, nil, fmt.Errorf("%w: %w", ErrNotAssigned, err)
	}
	if err != nil {
		return model.Assignment{}, nil, fmt.Errorf("load assignment: %w", err)
	}
	a, integrityErr := roster.DecodeAssignment(rec)
	return a, integrityErr, nil
}

// assignedRole resolves the session role. An empty player list that came
// from a failed decode says nothing about the role, so without an explicit
// role the requested one is used, falling back to player. The result is
// pinned on a so later reads agree.
func assignedRole(a *model.Assignment, integrityErr error, requested model.Role) model.Role {
	if integrityErr != nil && a.Role != model.RolePossession && a.Role != model.RolePlayer {
		a.Role = model.RolePlayer
		if requested != "" {
			a.Role = requested
		}
	}
	return a.EffectiveRole()
}

// loadRoster treats a missing roster as empty.
func (s *Service) loadRoster(ctx context.Context, matchID string) ([]model.Player, error) {
	players, err := s.store.Roster(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn(ctx, "match has no roster", logger.String("match", matchID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return players, nil
}

func (s *Service) openSession(ctx context.Context, a model.Assignment, role model.Role, players []model.Player) (*trackerSession, error) {
	monitor := connectivity.NewMonitor(a.TrackerID,
		connectivity.WithClock(s.now),
		connectivity.WithInitial(s.transport.Online()),
	)
	ts := &trackerSession{
		matchID:   a.MatchID,
		trackerID: a.TrackerID,
		role:      role,
		joinedAt:  s.now(),
		monitor:   monitor,
		notices:   NewNoticeBoard(s.noticeLimit),
	}
	deps := sessionDeps{
		channel:  s.channel,
		writer:   s.store,
		engine:   s.engine,
		resolver: s.resolver,
		monitor:  monitor,
		notices:  ts.notices,
		now:      s.now,
		logger:   s.logger,
	}

	if role == model.RolePossession {
		ts.possession = newPossessionSession(a.MatchID, a.TrackerID, deps, players)
		ts.stopRelay = s.relayConnectivity(ts)
		return ts, nil
	}

	sub, err := s.channel.Subscribe(ctx, a.MatchID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to match %s: %w", a.MatchID, err)
	}
	var ps *PlayerSession
	q := pending.NewQueue(a.TrackerID,
		pending.WithClock(s.now),
		pending.WithDebounce(s.debounce),
		pending.WithExpiry(s.expiry),
		pending.WithResolvedMemory(s.resolvedMemory),
		pending.WithExpireHook(func(ctx context.Context, dropped []model.PendingEvent) {
			ps.expired(ctx, dropped)
		}),
		pending.WithLogger(s.logger.Named("pending")),
	)
	sched := pending.NewScheduler(q,
		pending.WithRefreshInterval(s.refreshInterval),
		pending.WithSweepInterval(s.sweepInterval),
	)
	ps = newPlayerSession(a.MatchID, a.TrackerID, deps, sub, q, sched)
	ps.apply(ctx, a, players)
	ts.player = ps
	ts.stopRelay = s.relayConnectivity(ts)

	sched.Start(s.runCtx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ps.Run(s.runCtx)
	}()
	return ts, nil
}

func (s *Service) reportIntegrity(ctx context.Context, ts *trackerSession, err error) {
	metrics.RecordRosterIntegrityError()
	s.logger.Error(ctx, "assignment data could not be decoded",
		logger.String("match", ts.matchID),
		logger.String("tracker", ts.trackerID),
		logger.Error(err),
	)
	ts.notices.Notify(ctx, model.Notice{
		Level:   model.NoticeError,
		Code:    noticeIntegrity,
		Message: "Your assignment could not be read. Ask an administrator to reassign you.",
		At:      s.now(),
	})
}

// flagConflicts surfaces, without preventing, a second possession tracker
// in a match or a player assigned to two trackers. Caller holds s.mu.
func (s *Service) flagConflicts(ctx context.Context, joining *trackerSession) {
	for _, other := range s.sessions {
		if other.matchID != joining.matchID {
			continue
		}
		switch {
		case joining.possession != nil && other.possession != nil:
			msg := fmt.Sprintf("Tracker %s is also announcing possession in this match.", other.trackerID)
			s.logger.Warn(ctx, "second possession tracker joined",
				logger.String("match", joining.matchID),
				logger.String("tracker", joining.trackerID),
				logger.String("other", other.trackerID),
			)
			joining.notices.Notify(ctx, model.Notice{Level: model.NoticeWarning, Code: noticeSecondWriter, Message: msg, At: s.now()})
		case joining.player != nil && other.player != nil:
			for _, p := range joining.player.Roster().Players() {
				if !other.player.Roster().Contains(p.ID) {
					continue
				}
				msg := fmt.Sprintf("Player #%d %s is also assigned to tracker %s.", p.Number, p.Name, other.trackerID)
				s.logger.Warn(ctx, "player assigned to two trackers",
					logger.String("match", joining.matchID),
					logger.String("player", p.ID),
					logger.String("other", other.trackerID),
				)
				joining.notices.Notify(ctx, model.Notice{Level: model.NoticeWarning, Code: noticeOverlap, Message: msg, At: s.now()})
			}
		}
	}
}

// Leave closes a session.
func (s *Service) Leave(ctx context.Context, matchID, trackerID string) error {
	s.mu.Lock()
	key := sessionKey(matchID, trackerID)
	ts, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotJoined
	}

	s.closeSession(ctx, ts)
	s.updateSessionGauges()
	s.logger.Info(ctx, "tracker left", logger.String("match", matchID), logger.String("tracker", trackerID))
	return nil
}

func (s *Service) closeSession(ctx context.Context, ts *trackerSession) {
	if ts.player != nil {
		ts.player.close(ctx)
	}
	if ts.stopRelay != nil {
		ts.stopRelay()
	}
	ts.notices.CloseWatchers()
}

func (s *Service) updateSessionGauges() {
	s.mu.RLock()
	counts := map[model.Role]int{model.RolePossession: 0, model.RolePlayer: 0}
	for _, ts := range s.sessions {
		counts[ts.role]++
	}
	s.mu.RUnlock()
	for role, n := range counts {
		metrics.UpdateActiveSessions(string(role), n)
	}
}

func (s *Service) session(matchID, trackerID string) (*trackerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	ts, ok := s.sessions[sessionKey(matchID, trackerID)]
	if !ok {
		return nil, ErrNotJoined
	}
	return ts, nil
}

func (s *Service) playerSession(matchID, trackerID string) (*PlayerSession, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return nil, err
	}
	if ts.player == nil {
		return nil, fmt.Errorf("%w: %s is a %s tracker", ErrWrongRole, trackerID, ts.role)
	}
	return ts.player, nil
}

// UpdatePossession announces the ball holder for a possession tracker.
func (s *Service) UpdatePossession(ctx context.Context, matchID, trackerID, playerID string) (PossessionResult, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return PossessionResult{}, err
	}
	if ts.possession == nil {
		return PossessionResult{}, fmt.Errorf("%w: %s is a %s tracker", ErrWrongRole, trackerID, ts.role)
	}
	return ts.possession.UpdatePossession(ctx, playerID)
}

// Pending returns a player tracker's queue in display order.
func (s *Service) Pending(_ context.Context, matchID, trackerID string) ([]model.PendingEvent, error) {
	ps, err := s.playerSession(matchID, trackerID)
	if err != nil {
		return nil, err
	}
	return ps.Pending(), nil
}

// CommitOne classifies one pending event.
func (s *Service) CommitOne(ctx context.Context, matchID, trackerID, pendingID, label string, extra map[string]any) (model.PersistedEvent, error) {
	ps, err := s.playerSession(matchID, trackerID)
	if err != nil {
		return model.PersistedEvent{}, err
	}
	return ps.CommitOne(ctx, pendingID, label, extra)
}

// CommitAll classifies every pending event with one label.
func (s *Service) CommitAll(ctx context.Context, matchID, trackerID, label string) (int, error) {
	ps, err := s.playerSession(matchID, trackerID)
	if err != nil {
		return 0, err
	}
	return ps.CommitAll(ctx, label)
}

// DiscardOne drops one pending event.
func (s *Service) DiscardOne(ctx context.Context, matchID, trackerID, pendingID string) error {
	ps, err := s.playerSession(matchID, trackerID)
	if err != nil {
		return err
	}
	return ps.DiscardOne(ctx, pendingID)
}

// DiscardAll drops every pending event and returns how many were dropped.
func (s *Service) DiscardAll(ctx context.Context, matchID, trackerID string) (int, error) {
	ps, err := s.playerSession(matchID, trackerID)
	if err != nil {
		return 0, err
	}
	return ps.DiscardAll(ctx), nil
}

// Status returns the session view.
func (s *Service) Status(_ context.Context, matchID, trackerID string) (Status, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return Status{}, err
	}
	return ts.status(), nil
}

// SetConnectivity records a tracker's own connection state, as reported
// by its client.
func (s *Service) SetConnectivity(ctx context.Context, matchID, trackerID string, online bool) (Status, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return Status{}, err
	}
	ts.monitor.SetOnline(ctx, online)
	return ts.status(), nil
}

// RefreshAssignment rereads the assignment and roster of a session, for
// use after an administrator reassigns a tracker.
func (s *Service) RefreshAssignment(ctx context.Context, matchID, trackerID string) (Status, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return Status{}, err
	}
	a, integrityErr, err := s.loadAssignment(ctx, matchID, trackerID)
	if err != nil {
		return Status{}, err
	}
	if effective := assignedRole(&a, integrityErr, ts.role); effective != ts.role {
		return Status{}, fmt.Errorf("%w: reassigned as %s, leave and join again", ErrWrongRole, effective)
	}
	players, err := s.loadRoster(ctx, matchID)
	if err != nil {
		return Status{}, err
	}
	if integrityErr != nil {
		s.reportIntegrity(ctx, ts, integrityErr)
	}

	if ts.possession != nil {
		ts.possession.setPlayers(players)
		return ts.status(), nil
	}
	if err := ts.player.UpdateAssignment(ctx, a, players); err != nil {
		return Status{}, err
	}
	return ts.status(), nil
}

// Notices returns a tracker's retained notices.
func (s *Service) Notices(_ context.Context, matchID, trackerID string) ([]model.Notice, error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return nil, err
	}
	return ts.notices.List(), nil
}

// WatchNotices streams a tracker's new notices until cancel is called or
// the session ends.
func (s *Service) WatchNotices(matchID, trackerID string) (<-chan model.Notice, func(), error) {
	ts, err := s.session(matchID, trackerID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ts.notices.Watch()
	return ch, cancel, nil
}

// Events returns the persisted events of a match.
func (s *Service) Events(ctx context.Context, matchID string) ([]model.PersistedEvent, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	return store.Events(ctx, matchID)
}

// PutRoster writes a match roster when the store accepts writes.
func (s *Service) PutRoster(ctx context.Context, matchID string, players []model.Player) error {
	if matchID == "" || len(players) == 0 {
		return fmt.Errorf("%w: match id and players are required", ErrInvalidArgument)
	}
	for _, p := range players {
		if p.ID == "" || !p.Team.Valid() {
			return fmt.Errorf("%w: player %q needs an id and a home or away team", ErrInvalidArgument, p.ID)
		}
	}
	seeder, err := s.seeder()
	if err != nil {
		return err
	}
	return seeder.PutRoster(ctx, matchID, players)
}

// PutAssignment writes a tracker assignment when the store accepts writes.
func (s *Service) PutAssignment(ctx context.Context, a model.Assignment) error {
	if a.MatchID == "" || a.TrackerID == "" {
		return fmt.Errorf("%w: match and tracker ids are required", ErrInvalidArgument)
	}
	if a.Role != "" && a.Role != model.RolePossession && a.Role != model.RolePlayer {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, a.Role)
	}
	seeder, err := s.seeder()
	if err != nil {
		return err
	}
	return seeder.PutAssignment(ctx, a)
}

func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) seeder() (repository.Seeder, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	seeder, ok := store.(repository.Seeder)
	if !ok {
		return nil, ErrSeedUnsupported
	}
	return seeder, nil
}

// Online reports whether the broadcast transport is reachable.
func (s *Service) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.transport.Online()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	matches := map[string]struct{}{}
	possession, players, queued := 0, 0, 0
	for _, ts := range s.sessions {
		matches[ts.matchID] = struct{}{}
		if ts.player != nil {
			players++
			queued += ts.player.queue.Len()
			continue
		}
		possession++
	}
	keys := make([]string, 0, len(matches))
	for m := range matches {
		keys = append(keys, m)
	}
	slices.Sort(keys)

	stats["matches"] = keys
	stats["possessionTrackers"] = possession
	stats["playerTrackers"] = players
	stats["pendingTotal"] = queued
	stats["transportOnline"] = s.transport.Online()
	return stats
}
