// Package store persists canvas snapshots in PostgreSQL. Every save appends
// a new version; loading always reads the newest one.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkslate/inkslate/backend-go/internal/typeid"
)

var ErrNotFound = errors.New("canvas not found")

const schema = `
CREATE TABLE IF NOT EXISTS canvases (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS canvas_snapshots (
	id         TEXT PRIMARY KEY,
	canvas_id  TEXT NOT NULL REFERENCES canvases(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (canvas_id, version)
);`

type Canvas struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Snapshot struct {
	ID        string          `json:"id"`
	CanvasID  string          `json:"canvasId"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Postgres struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateCanvas registers a new canvas and stores doc as its version 1.
func (s *Postgres) CreateCanvas(ctx context.Context, name string, doc []byte) (*Canvas, error) {
	id := typeid.NewCanvasID()
	var c Canvas
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO canvases (id, name) VALUES ($1, $2)
			 RETURNING id, name, created_at, updated_at`,
			id, name,
		).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert canvas: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO canvas_snapshots (id, canvas_id, version, document) VALUES ($1, $2, 1, $3)`,
			typeid.NewSnapshotID(), id, doc,
		)
		if err != nil {
			return fmt.Errorf("create initial snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	return &c, nil
}

func (s *Postgres) GetCanvas(ctx context.Context, canvasID string) (*Canvas, error) {
	var c Canvas
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM canvases WHERE id = $1`, canvasID,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return &c, nil
}

func (s *Postgres) ListCanvases(ctx context.Context) ([]Canvas, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM canvases ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	canvases, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Canvas])
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	return canvases, nil
}

// SaveSnapshot appends doc as the next version of the canvas and returns
// that version. Concurrent saves of the same canvas are serialized on the
// canvas row.
func (s *Postgres) SaveSnapshot(ctx context.Context, canvasID string, doc []byte) (int, error) {
	var version int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM canvases WHERE id = $1 FOR UPDATE`, canvasID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock canvas: %w", err)
		}
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM canvas_snapshots WHERE canvas_id = $1`, canvasID,
		).Scan(&version)
		if err != nil {
			return fmt.Errorf("next version: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO canvas_snapshots (id, canvas_id, version, document) VALUES ($1, $2, $3, $4)`,
			typeid.NewSnapshotID(), canvasID, version, doc,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE canvases SET updated_at = now() WHERE id = $1`, canvasID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return version, nil
}

// LatestSnapshot returns the newest stored version of a canvas.
func (s *Postgres) LatestSnapshot(ctx context.Context, canvasID string) (*Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, canvas_id, version, document, created_at
		 FROM canvas_snapshots WHERE canvas_id = $1
		 ORDER BY version DESC LIMIT 1`, canvasID,
	).Scan(&snap.ID, &snap.CanvasID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &snap, nil
}
