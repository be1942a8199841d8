package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	starts_at  TIMESTAMPTZ NOT NULL,
	ends_at    TIMESTAMPTZ NOT NULL,
	timezone   TEXT NOT NULL DEFAULT 'UTC'
);
CREATE TABLE IF NOT EXISTS contacts (
	name  TEXT PRIMARY KEY,
	phone TEXT NOT NULL
);`

// Postgres stores events and contacts in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("postgres store ready")
	return p, nil
}

// Migrate creates the tables if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) InsertEvent(ctx context.Context, ev Event) (Event, error) {
	if ev.Title == "" {
		return Event{}, fmt.Errorf("event title is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timezone == "" {
		ev.Timezone = "UTC"
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO calendar_events (id, title, starts_at, ends_at, timezone) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.Title, ev.Start, ev.End, ev.Timezone)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

func (p *Postgres) FindContact(ctx context.Context, name string) (Contact, error) {
	var c Contact
	err := p.pool.QueryRow(ctx,
		`SELECT name, phone FROM contacts WHERE lower(name) = $1`,
		strings.ToLower(strings.TrimSpace(name))).Scan(&c.Name, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, fmt.Errorf("contact %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Contact{}, fmt.Errorf("find contact: %w", err)
	}
	return c, nil
}

// TestConnection is used by the health handler.
func (p *Postgres) TestConnection(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
