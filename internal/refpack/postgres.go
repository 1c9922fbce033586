package refpack

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the entity_references table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS entity_references (
    session_id  TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    ref_id      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    summary     TEXT NOT NULL DEFAULT '',
    assigned_at BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, entity_name)
);
CREATE INDEX IF NOT EXISTS idx_entity_references_ref ON entity_references(session_id, ref_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] on the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] before
// issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the entity_references table
// and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("refpack: migrate: %w", err)
	}
	return nil
}

// SaveSession upserts all references for one session. Rows keep their
// original ref_id on conflict; only the summary is refreshed.
func (s *PostgresStore) SaveSession(ctx context.Context, sessionID string, refs []EntityReference) error {
	const query = `
		INSERT INTO entity_references (session_id, entity_name, ref_id, entity_type, summary, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (session_id, entity_name) DO UPDATE SET
			summary = EXCLUDED.summary,
			updated_at = now()`

	for i, ref := range refs {
		if _, err := s.db.Exec(ctx, query, sessionID, ref.Name, ref.ID, ref.Type, ref.Summary, i); err != nil {
			return fmt.Errorf("refpack: save session %q entity %q: %w", sessionID, ref.Name, err)
		}
	}
	return nil
}

// LoadSession returns the persisted references for a session in assignment
// order. A session with no rows yields an empty slice.
func (s *PostgresStore) LoadSession(ctx context.Context, sessionID string) ([]EntityReference, error) {
	const query = `
		SELECT ref_id, entity_name, entity_type, summary
		FROM entity_references
		WHERE session_id = $1
		ORDER BY assigned_at`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("refpack: load session %q: %w", sessionID, err)
	}
	defer rows.Close()

	var refs []EntityReference
	for rows.Next() {
		var ref EntityReference
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Type, &ref.Summary); err != nil {
			return nil, fmt.Errorf("refpack: load session %q scan: %w", sessionID, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refpack: load session %q: %w", sessionID, err)
	}
	return refs, nil
}

// Sessions lists all session IDs with persisted references.
func (s *PostgresStore) Sessions(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT session_id FROM entity_references ORDER BY session_id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("refpack: sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("refpack: sessions scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refpack: sessions: %w", err)
	}
	return ids, nil
}
