package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/metrics"
)

// MemoryStore is an in-process Store used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	rosters     map[string][]model.Player
	assignments map[string]model.AssignmentRecord // match|tracker
	events      map[string][]model.PersistedEvent
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rosters:     make(map[string][]model.Player),
		assignments: make(map[string]model.AssignmentRecord),
		events:      make(map[string][]model.PersistedEvent),
	}
}

func assignmentKey(matchID, trackerID string) string {
	return matchID + "|" + trackerID
}

// PutRoster replaces the roster of a match.
func (s *MemoryStore) PutRoster(_ context.Context, matchID string, players []model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[matchID] = slices.Clone(players)
	return nil
}

// PutAssignment stores a, superseding any earlier assignment of the same
// tracker in the same match.
func (s *MemoryStore) PutAssignment(_ context.Context, a model.Assignment) error {
	s.PutRecord(model.AssignmentRecord{
		TrackerID:  a.TrackerID,
		MatchID:    a.MatchID,
		Players:    slices.Clone(a.PlayerIDs),
		EventTypes: slices.Clone(a.EventTypes),
		Role:       string(a.Role),
	})
	return nil
}

// PutRecord stores a raw assignment record as the store would return it.
func (s *MemoryStore) PutRecord(rec model.AssignmentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignmentKey(rec.MatchID, rec.TrackerID)] = rec
}

// Roster implements Store.
func (s *MemoryStore) Roster(_ context.Context, matchID string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players, ok := s.rosters[matchID]
	if !ok {
		return nil, fmt.Errorf("roster of match %s: %w", matchID, ErrNotFound)
	}
	return slices.Clone(players), nil
}

// Assignment implements Store.
func (s *MemoryStore) Assignment(_ context.Context, matchID, trackerID string) (model.AssignmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.assignments[assignmentKey(matchID, trackerID)]
	if !ok {
		return model.AssignmentRecord{}, fmt.Errorf("assignment of %s in %s: %w", trackerID, matchID, ErrNotFound)
	}
	return rec, nil
}

// InsertEvents implements Store. A batch with an invalid row writes nothing.
func (s *MemoryStore) InsertEvents(_ context.Context, events []model.PersistedEvent) (int, error) {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			metrics.RecordErrorByComponent("repository", "invalid_event")
			return 0, fmt.Errorf("%w: row %d: %w", ErrInvalidEvent, i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		rows := s.events[ev.MatchID]
		if i := indexOfPending(rows, ev); i >= 0 {
			rows[i] = ev
			continue
		}
		s.events[ev.MatchID] = append(rows, ev)
	}
	return len(events), nil
}

func indexOfPending(rows []model.PersistedEvent, ev model.PersistedEvent) int {
	if ev.Details.PendingID == "" {
		return -1
	}
	for i := range rows {
		if rows[i].TrackerID == ev.TrackerID && rows[i].Details.PendingID == ev.Details.PendingID {
			return i
		}
	}
	return -1
}

// Events implements Store.
func (s *MemoryStore) Events(_ context.Context, matchID string) ([]model.PersistedEvent, error) {
	s.mu.RLock()
	out := slices.Clone(s.events[matchID])
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

var (
	_ Store  = (*MemoryStore)(nil)
	_ Seeder = (*MemoryStore)(nil)
)
