package simulator

import "os"

// ShowHelp prints usage information for the match simulator.
func ShowHelp() {
	os.Stdout.WriteString(`matchtrack match simulator
==========================

Drives a running matchtrack service with a generated match: seeds a roster,
joins a possession tracker and one player tracker per team, announces a
possession sequence, classifies every obligation and verifies the stored
events.

Usage:
  go run ./cmd/match-sim [options]

Options:
  -url string          Base URL of the service (default "http://localhost:9080")
  -match string        Match id (default: generated)
  -possessions int     Number of possession announcements (default 40)
  -team-size int       Players per team (default 11)
  -interval duration   Pause between announcements (default 700ms)
  -settle duration     Wait before classifying (default 1s)
  -label string        Label for every obligation (default "pass_short")
  -seed uint           Sequence seed (default: current time)
  -timeout duration    HTTP request timeout (default 10s)
  -output string       Write the stored events to this JSON file
  -log-format string   text or json (default "text")
  -verbose             Log every announcement
  -help                Show this help message

The interval must exceed the service debounce window (500ms by default)
for every announcement to reach the player trackers.
`)
}
