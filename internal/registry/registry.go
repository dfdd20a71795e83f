// Package registry tracks the lifecycle of compression jobs so the status
// API can answer "where is my job" without touching GCS or Pub/Sub.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("registry: job not found")

const (
	KindCompress   = "compress"
	KindDecompress = "decompress"

	StateQueued  = "queued"
	StateWorking = "working"
	StateDone    = "done"
	StateFailed  = "failed"
)

type Job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, id, kind string) error
	SetState(ctx context.Context, id, state, detail string) error
	Get(ctx context.Context, id string) (Job, error)
}

// PostgresStore is the production Store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  state TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, id, kind string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, kind, state, detail, updated_at) VALUES ($1, $2, $3, '', now())`,
		id, kind, StateQueued)
	return err
}

func (s *PostgresStore) SetState(ctx context.Context, id, state, detail string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET state = $2, detail = $3, updated_at = now() WHERE id = $1`,
		id, state, detail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Job, error) {
	var j Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, state, detail, updated_at FROM jobs WHERE id = $1`, id).
		Scan(&j.ID, &j.Kind, &j.State, &j.Detail, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	return j, nil
}
