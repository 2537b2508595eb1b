package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// PostgresStore is a Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB

	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	migrate         bool

	logger logger.Logger
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	s := &PostgresStore{
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxLifetime: defaultConnMaxLifetime,
		logger:          logger.Get().Named("postgres"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	s.db = db

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Roster implements Store.
func (s *PostgresStore) Roster(ctx context.Context, matchID string) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, number, name, team, position
		FROM match_players
		WHERE match_id = $1
		ORDER BY team, number, player_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		var team string
		if err := rows.Scan(&p.ID, &p.Number, &p.Name, &team, &p.Position); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.Team = model.TeamSide(team)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("roster of match %s: %w", matchID, ErrNotFound)
	}
	return players, nil
}

// Assignment implements Store. The player and label columns are returned
// undecoded.
func (s *PostgresStore) Assignment(ctx context.Context, matchID, trackerID string) (model.AssignmentRecord, error) {
	rec := model.AssignmentRecord{MatchID: matchID, TrackerID: trackerID}
	var players, labels []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT players, event_types, role
		FROM tracker_assignments
		WHERE match_id = $1 AND tracker_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, matchID, trackerID).Scan(&players, &labels, &rec.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("assignment of %s in %s: %w", trackerID, matchID, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("query assignment: %w", err)
	}
	rec.Players = players
	rec.EventTypes = labels
	return rec, nil
}

// InsertEvents implements Store. The batch is written in one transaction.
func (s *PostgresStore) InsertEvents(ctx context.Context, events []model.PersistedEvent) (n int, err error) {
	for i, ev := range events {
		if verr := ev.Validate(); verr != nil {
			metrics.RecordErrorByComponent("repository", "invalid_event")
			return 0, fmt.Errorf("%w: row %d: %w", ErrInvalidEvent, i, verr)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "rollback failed", logger.Error(rbErr))
			}
			n = 0
		}
	}()

	for _, ev := range events {
		details, merr := json.Marshal(ev.Details)
		if merr != nil {
			return 0, fmt.Errorf("encode details: %w", merr)
		}
		res, xerr := tx.ExecContext(ctx, `
			INSERT INTO match_events
				(match_id, event_type, player_id, team, ts_ms, tracker_id, pending_id, details)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
			ON CONFLICT (tracker_id, pending_id) WHERE pending_id IS NOT NULL
			DO UPDATE SET event_type = EXCLUDED.event_type, details = EXCLUDED.details`,
			ev.MatchID, ev.EventType, ev.PlayerID, string(ev.Team), ev.Timestamp,
			ev.TrackerID, ev.Details.PendingID, details)
		if xerr != nil {
			metrics.RecordErrorByComponent("repository", "insert")
			return 0, fmt.Errorf("insert event: %w", xerr)
		}
		affected, aerr := res.RowsAffected()
		if aerr != nil {
			return 0, fmt.Errorf("rows affected: %w", aerr)
		}
		n += int(affected)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Events implements Store.
func (s *PostgresStore) Events(ctx context.Context, matchID string) ([]model.PersistedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, player_id, team, ts_ms, tracker_id, details
		FROM match_events
		WHERE match_id = $1
		ORDER BY ts_ms, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.PersistedEvent
	for rows.Next() {
		ev := model.PersistedEvent{MatchID: matchID}
		var team string
		var details []byte
		if err := rows.Scan(&ev.EventType, &ev.PlayerID, &team, &ev.Timestamp, &ev.TrackerID, &details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Team = model.TeamSide(team)
		if err := json.Unmarshal(details, &ev.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PutRoster upserts the players of a match.
func (s *PostgresStore) PutRoster(ctx context.Context, matchID string, players []model.Player) error {
	for _, p := range players {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO match_players (match_id, player_id, number, name, team, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id, player_id)
			DO UPDATE SET number = EXCLUDED.number, name = EXCLUDED.name,
			              team = EXCLUDED.team, position = EXCLUDED.position`,
			matchID, p.ID, p.Number, p.Name, string(p.Team), p.Position)
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", p.ID, err)
		}
	}
	return nil
}

// PutAssignment appends an assignment; the newest one supersedes the rest.
func (s *PostgresStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	players, err := json.Marshal(a.PlayerIDs)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	labels, err := json.Marshal(a.EventTypes)
	if err != nil {
		return fmt.Errorf("encode event types: %w", err)
	}
	if a.EventTypes == nil {
		labels = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracker_assignments (match_id, tracker_id, players, event_types, role)
		VALUES ($1, $2, $3, $4, $5)`,
		a.MatchID, a.TrackerID, players, labels, string(a.Role))
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Seeder = (*PostgresStore)(nil)
)
