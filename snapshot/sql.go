package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS draw_sessions (
	name     TEXT PRIMARY KEY,
	payload  JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
)`

const upsertQuery = `INSERT INTO draw_sessions (name, payload, saved_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`

const loadQuery = `SELECT payload, saved_at FROM draw_sessions WHERE name = $1`

type sessionRow struct {
	Payload []byte    `db:"payload"`
	SavedAt time.Time `db:"saved_at"`
}

// SQLStore keeps snapshots in a Postgres draw_sessions table
type SQLStore struct {
	db *sqlx.DB
}

// OpenPostgres connects with lib/pq
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewSQLStore(db), nil
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate draw_sessions: %w", err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, name string, snap Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, name, payload, savedAt.UTC()); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := checkName(name); err != nil {
		return Snapshot{}, err
	}
	var row sessionRow
	err := s.db.GetContext(ctx, &row, loadQuery, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return Snapshot{}, &Error{Err: err}
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = row.SavedAt
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
