package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Inferred event labels.
const (
	EventDribble      = "dribble"
	EventPass         = "pass"
	EventInterception = "interception"
)

// PossessionEvent announces which player controls the ball. It is a
// transient broadcast payload and never stored as its own row.
type PossessionEvent struct {
	MatchID   string   `json:"match_id"`
	PlayerID  string   `json:"player_id"`
	Team      TeamSide `json:"team"`
	Timestamp int64    `json:"timestamp"` // capture-side clock, unix ms
	TrackerID string   `json:"tracker_id"`
}

// Time returns the capture time.
func (e PossessionEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Details is the detail payload stored with every persisted event.
type Details struct {
	Inferred   bool           `json:"inferred"`
	PendingID  string         `json:"pending_id,omitempty"`
	FromPlayer string         `json:"from_player,omitempty"`
	ToPlayer   string         `json:"to_player,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// PersistedEvent is the row shape written to the match data store.
type PersistedEvent struct {
	MatchID   string   `json:"match_id"`
	EventType string   `json:"event_type"`
	PlayerID  string   `json:"player_id"`
	Team      TeamSide `json:"team"`
	Timestamp int64    `json:"timestamp"` // unix ms
	TrackerID string   `json:"tracker_id"`
	Details   Details  `json:"details"`
}

// Validate checks the fields every row must carry.
func (e PersistedEvent) Validate() error {
	switch {
	case e.MatchID == "":
		return fmt.Errorf("missing match id")
	case e.EventType == "":
		return fmt.Errorf("missing event type")
	case e.PlayerID == "":
		return fmt.Errorf("missing player id")
	case !e.Team.Valid():
		return fmt.Errorf("invalid team side %q", e.Team)
	case e.Timestamp <= 0:
		return fmt.Errorf("invalid timestamp %d", e.Timestamp)
	case e.TrackerID == "":
		return fmt.Errorf("missing tracker id")
	}
	return nil
}

// pendingNamespace scopes the name-based ids of pending events.
var pendingNamespace = uuid.MustParse("6f1c7a52-4d3e-5b8a-9c0f-2e7d1b4a8c36") //nolint:gochecknoglobals // constant namespace

// PendingID derives the synthetic identity of a pending event. The same
// (tracker, player, timestamp) always yields the same id.
func PendingID(trackerID, playerID string, timestamp int64) string {
	name := fmt.Sprintf("%s|%s|%d", trackerID, playerID, timestamp)
	return uuid.NewSHA1(pendingNamespace, []byte(name)).String()
}
