package model

import "slices"

// Role is the part a tracker plays in a match.
type Role string

// Tracker roles.
const (
	RolePossession Role = "possession"
	RolePlayer     Role = "player"
)

// Default classification labels offered when an assignment lists none.
var DefaultEventTypes = []string{ //nolint:gochecknoglobals // read-only vocabulary
	"pass_short",
	"pass_long",
	"shot_on_target",
	"shot_off_target",
	"tackle",
	"interception",
	"save",
	"goal",
	"yellow_card",
	"red_card",
	"substitution",
}

// AssignmentRecord is an assignment as persisted by the administrator.
// Players and EventTypes are kept undecoded: the store may hand back a
// structured list or an opaque encoded blob.
type AssignmentRecord struct {
	TrackerID  string
	MatchID    string
	Players    any
	EventTypes any
	Role       string
}

// Assignment is the decoded, read-only view of an AssignmentRecord.
type Assignment struct {
	TrackerID  string   `json:"tracker_id"`
	MatchID    string   `json:"match_id"`
	PlayerIDs  []string `json:"player_ids"`
	EventTypes []string `json:"event_types,omitempty"`
	Role       Role     `json:"role,omitempty"`
}

// EffectiveRole resolves the tracker role. Without an explicit role an
// assignment with no players is a possession (ball) tracker.
func (a Assignment) EffectiveRole() Role {
	switch a.Role {
	case RolePossession, RolePlayer:
		return a.Role
	}
	if len(a.PlayerIDs) == 0 {
		return RolePossession
	}
	return RolePlayer
}

// Permits reports whether label may be used to classify an obligation.
func (a Assignment) Permits(label string) bool {
	if label == "" {
		return false
	}
	if len(a.EventTypes) == 0 {
		return slices.Contains(DefaultEventTypes, label)
	}
	return slices.Contains(a.EventTypes, label)
}
