package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token store (SQLite).
var Migrations = migrate.NewGroup("token")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_token_tokens",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_tokens (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    symbol       TEXT NOT NULL DEFAULT '',
    decimals     INTEGER NOT NULL DEFAULT 0,
    total_supply INTEGER NOT NULL DEFAULT 0 CHECK (total_supply >= 0),
    owner        TEXT NOT NULL DEFAULT '',
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_token_tokens_owner ON token_tokens (owner);
CREATE INDEX IF NOT EXISTS idx_token_tokens_symbol ON token_tokens (symbol);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_token_balances",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_balances (
    token_id   TEXT NOT NULL,
    account    TEXT NOT NULL,
    balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (token_id, account)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_token_transfers",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_transfers (
    id           TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL,
    from_account TEXT NOT NULL,
    to_account   TEXT NOT NULL,
    amount       INTEGER NOT NULL DEFAULT 0,
    timestamp    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_token_transfers_token_ts ON token_transfers (token_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_token_transfers_from ON token_transfers (token_id, from_account);
CREATE INDEX IF NOT EXISTS idx_token_transfers_to ON token_transfers (token_id, to_account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_transfers`)
				return err
			},
		},
	)
}
