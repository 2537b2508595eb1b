package model

import "time"

// Priority is the urgency band of a pending event, derived from its age.
type Priority string

// Priority bands.
const (
	PriorityUrgent Priority = "urgent"
	PriorityNormal Priority = "normal"
	PriorityOld    Priority = "old"
)

// Band limits.
const (
	UrgentBelow   = 5 * time.Second
	OldFrom       = 15 * time.Second
	DefaultExpiry = 30 * time.Second
)

// PriorityFor maps an age to its band.
func PriorityFor(age time.Duration) Priority {
	switch {
	case age < UrgentBelow:
		return PriorityUrgent
	case age < OldFrom:
		return PriorityNormal
	default:
		return PriorityOld
	}
}

// Rank orders bands from most to least at risk of expiry.
func (p Priority) Rank() int {
	switch p {
	case PriorityOld:
		return 0
	case PriorityNormal:
		return 1
	default:
		return 2
	}
}

// PendingEvent is a classification obligation held in one tracker's queue.
type PendingEvent struct {
	ID        string        `json:"id"`
	Player    Player        `json:"player"`
	Timestamp int64         `json:"timestamp"` // original capture time, unix ms
	Age       time.Duration `json:"age"`
	Priority  Priority      `json:"priority"`
	TrackerID string        `json:"tracker_id"`
}

// NewPendingEvent builds a pending event aged against now.
func NewPendingEvent(trackerID string, player Player, timestamp int64, now time.Time) PendingEvent {
	pe := PendingEvent{
		ID:        PendingID(trackerID, player.ID, timestamp),
		Player:    player,
		Timestamp: timestamp,
		TrackerID: trackerID,
	}
	pe.Touch(now)
	return pe
}

// Touch recomputes age and priority. Capture timestamps in the future
// (clock skew between trackers) count as age zero.
func (p *PendingEvent) Touch(now time.Time) {
	age := now.Sub(time.UnixMilli(p.Timestamp))
	if age < 0 {
		age = 0
	}
	p.Age = age
	p.Priority = PriorityFor(age)
}
