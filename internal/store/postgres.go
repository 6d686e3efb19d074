package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	match_id   UUID PRIMARY KEY,
	code       TEXT NOT NULL,
	host_name  TEXT NOT NULL,
	guest_name TEXT NOT NULL,
	duration   TEXT NOT NULL,
	won_by     TEXT NOT NULL,
	reason     TEXT NOT NULL,
	moves      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS games_code_idx ON games (code);
`

const insertGame = `
INSERT INTO games (match_id, code, host_name, guest_name, duration, won_by, reason, moves, created_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (match_id) DO NOTHING`

// Postgres archives finished games.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, pings it and creates the schema.
func ConnectPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) RecordFinished(ctx context.Context, g FinishedGame) error {
	args, err := finishedArgs(g)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, insertGame, args...); err != nil {
		return fmt.Errorf("insert game %s: %w", g.Code, err)
	}
	return nil
}

// finishedArgs orders the insert parameters.
func finishedArgs(g FinishedGame) ([]any, error) {
	moves, err := json.Marshal(g.Moves)
	if err != nil {
		return nil, fmt.Errorf("marshal moves for %s: %w", g.Code, err)
	}
	return []any{
		g.MatchID, g.Code, g.HostName, g.GuestName,
		g.Duration.String(), g.WonBy.String(), g.Reason.String(),
		moves, g.CreatedAt, g.EndedAt,
	}, nil
}
