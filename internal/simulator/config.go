// Package simulator drives a running matchtrack service over HTTP with a
// generated match: it seeds a roster, joins a possession tracker and one
// player tracker per team, announces a possession sequence and classifies
// what the player trackers receive.
package simulator

import "time"

// Tracker ids used by a simulated match.
const (
	BallTracker = "sim-ball"
	HomeTracker = "sim-home"
	AwayTracker = "sim-away"
)

// Config holds configuration for a simulated match.
type Config struct {
	BaseURL     string        // Base URL of the service
	MatchID     string        // Match to simulate; generated when empty
	Possessions int           // Number of possession announcements
	TeamSize    int           // Players per team
	Interval    time.Duration // Pause between announcements
	Settle      time.Duration // Wait for broadcasts before classifying
	Timeout     time.Duration // HTTP request timeout
	Label       string        // Label used to classify every obligation
	Seed        uint64        // Seed of the possession sequence
	OutputFile  string        // Optional file for the stored events
	Verbose     bool          // Log every announcement
}

// Stats holds run statistics.
type Stats struct {
	Announced     int
	Rejected      int
	ExpectedMoves int // passes and interceptions implied by the sequence
	Inferred      int
	Committed     int
	Stored        int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
