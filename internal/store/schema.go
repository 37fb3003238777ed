package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventories (
    user_id           TEXT        NOT NULL,
    category          TEXT        NOT NULL,
    name              TEXT        NOT NULL,
    count             BIGINT      NOT NULL CHECK (count >= 0),
    first_acquired_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, category, name)
);
CREATE INDEX IF NOT EXISTS inventories_card_idx ON inventories (category, name);

CREATE TABLE IF NOT EXISTS vault_entries (
    user_id  TEXT   NOT NULL,
    category TEXT   NOT NULL,
    name     TEXT   NOT NULL,
    count    BIGINT NOT NULL CHECK (count >= 0),
    PRIMARY KEY (user_id, category, name)
);

CREATE TABLE IF NOT EXISTS discoveries (
    category        TEXT        NOT NULL,
    name            TEXT        NOT NULL,
    discoverer_id   TEXT        NOT NULL,
    discovery_index BIGSERIAL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (category, name)
);

CREATE TABLE IF NOT EXISTS daily_draws (
    user_id TEXT NOT NULL,
    day     TEXT NOT NULL,
    PRIMARY KEY (user_id, day)
);

CREATE TABLE IF NOT EXISTS sacrificial_draws (
    user_id TEXT NOT NULL,
    day     TEXT NOT NULL,
    PRIMARY KEY (user_id, day)
);

CREATE TABLE IF NOT EXISTS bonus_draws (
    user_id TEXT   PRIMARY KEY,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS weekly_trades (
    user_id     TEXT   NOT NULL,
    week        TEXT   NOT NULL,
    trades_used BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, week)
);

CREATE TABLE IF NOT EXISTS trade_requests (
    id                 TEXT        PRIMARY KEY,
    requester_id       TEXT        NOT NULL,
    target_id          TEXT        NOT NULL,
    offered_category   TEXT        NOT NULL,
    offered_name       TEXT        NOT NULL,
    requested_category TEXT        NOT NULL,
    requested_name     TEXT        NOT NULL,
    status             TEXT        NOT NULL DEFAULT 'pending',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at         TIMESTAMPTZ NOT NULL,
    resolved_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS trade_requests_pending_idx ON trade_requests (status, expires_at);
CREATE INDEX IF NOT EXISTS trade_requests_requester_idx ON trade_requests (requester_id);
CREATE INDEX IF NOT EXISTS trade_requests_target_idx ON trade_requests (target_id);
`

// InitSchema creates all engine tables. Statements are idempotent, so it
// is safe to run on every seeder invocation.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
