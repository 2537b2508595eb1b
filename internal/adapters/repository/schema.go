package repository

// schema is applied by Migrate. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS match_players (
	match_id   TEXT    NOT NULL,
	player_id  TEXT    NOT NULL,
	number     INTEGER NOT NULL DEFAULT 0,
	name       TEXT    NOT NULL DEFAULT '',
	team       TEXT    NOT NULL CHECK (team IN ('home', 'away')),
	position   TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (match_id, player_id)
);

CREATE TABLE IF NOT EXISTS tracker_assignments (
	id          BIGSERIAL PRIMARY KEY,
	match_id    TEXT        NOT NULL,
	tracker_id  TEXT        NOT NULL,
	players     JSONB       NOT NULL DEFAULT '[]',
	event_types JSONB       NOT NULL DEFAULT '[]',
	role        TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tracker_assignments_lookup
	ON tracker_assignments (match_id, tracker_id, created_at DESC);

CREATE TABLE IF NOT EXISTS match_events (
	id         BIGSERIAL PRIMARY KEY,
	match_id   TEXT   NOT NULL,
	event_type TEXT   NOT NULL,
	player_id  TEXT   NOT NULL,
	team       TEXT   NOT NULL,
	ts_ms      BIGINT NOT NULL,
	tracker_id TEXT   NOT NULL,
	pending_id TEXT,
	details    JSONB  NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS match_events_by_match ON match_events (match_id, ts_ms);

CREATE UNIQUE INDEX IF NOT EXISTS match_events_pending
	ON match_events (tracker_id, pending_id) WHERE pending_id IS NOT NULL;
`
