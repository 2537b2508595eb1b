// Package repository is the match data store: rosters and assignments are
// read from it, classified events are written to it.
package repository

import (
	"context"

	"github.com/okian/matchtrack/internal/domain/model"
)

// Store provides access to the match data store.
type Store interface {
	// Roster returns every player of a match.
	Roster(ctx context.Context, matchID string) ([]model.Player, error)

	// Assignment returns the latest assignment of a tracker in a match.
	// Returns ErrNotFound if the tracker has none.
	Assignment(ctx context.Context, matchID, trackerID string) (model.AssignmentRecord, error)

	// InsertEvents writes rows and returns how many were persisted. Rows
	// carrying a pending id are idempotent per tracker: a retry overwrites
	// the earlier classification instead of adding a row.
	InsertEvents(ctx context.Context, events []model.PersistedEvent) (int, error)

	// Events returns the persisted rows of a match in timestamp order.
	Events(ctx context.Context, matchID string) ([]model.PersistedEvent, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Seeder writes the administrator-owned data: rosters and assignments.
type Seeder interface {
	PutRoster(ctx context.Context, matchID string, players []model.Player) error
	PutAssignment(ctx context.Context, a model.Assignment) error
}
