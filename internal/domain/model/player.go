// Package model contains domain models passed between layers.
package model

// TeamSide identifies which side of the contest a player belongs to.
type TeamSide string

// Team sides.
const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

// Valid reports whether t is a known side.
func (t TeamSide) Valid() bool {
	return t == TeamHome || t == TeamAway
}

// Player is owned by the match data store and immutable during a match.
type Player struct {
	ID       string   `json:"id"`
	Number   int      `json:"number"`
	Name     string   `json:"name"`
	Team     TeamSide `json:"team"`
	Position string   `json:"position,omitempty"`
}
