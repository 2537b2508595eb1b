//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/internal/domain/roster"
	"github.com/okian/matchtrack/pkg/logger"
)

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("MATCHTRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MATCHTRACK_TEST_POSTGRES_DSN not set")
	}
	if err := logger.Init(); err != nil {
		t.Fatalf("logger: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := OpenPostgres(ctx, dsn, WithMigrate(true))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	matchID := "m-" + uuid.NewString()

	players := []model.Player{
		{ID: "p-1", Number: 7, Name: "Ava", Team: model.TeamHome},
		{ID: "p-2", Number: 9, Name: "Bea", Team: model.TeamAway},
	}
	if err := store.PutRoster(ctx, matchID, players); err != nil {
		t.Fatalf("put roster: %v", err)
	}
	got, err := store.Roster(ctx, matchID)
	if err != nil || len(got) != 2 {
		t.Fatalf("roster: %v (%d players)", err, len(got))
	}

	if err := store.PutAssignment(ctx, model.Assignment{TrackerID: "t-1", MatchID: matchID, PlayerIDs: []string{"p-2"}}); err != nil {
		t.Fatalf("put assignment: %v", err)
	}
	rec, err := store.Assignment(ctx, matchID, "t-1")
	if err != nil {
		t.Fatalf("assignment: %v", err)
	}
	a, err := roster.DecodeAssignment(rec)
	if err != nil || len(a.PlayerIDs) != 1 || a.PlayerIDs[0] != "p-2" {
		t.Fatalf("decode assignment: %v %+v", err, a)
	}

	ev := model.PersistedEvent{
		MatchID: matchID, EventType: "tackle", PlayerID: "p-2", Team: model.TeamAway,
		Timestamp: 3500, TrackerID: "t-1", Details: model.Details{PendingID: "pe-1"},
	}
	if n, err := store.InsertEvents(ctx, []model.PersistedEvent{ev}); err != nil || n != 1 {
		t.Fatalf("insert: %d %v", n, err)
	}
	ev.EventType = "interception"
	if n, err := store.InsertEvents(ctx, []model.PersistedEvent{ev}); err != nil || n != 1 {
		t.Fatalf("idempotent retry: %d %v", n, err)
	}
	rows, err := store.Events(ctx, matchID)
	if err != nil || len(rows) != 1 || rows[0].EventType != "interception" {
		t.Fatalf("events: %v %+v", err, rows)
	}
}
