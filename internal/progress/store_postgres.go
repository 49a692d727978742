package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Schema creates the tables used by the PostgreSQL implementations.
const Schema = `
CREATE TABLE IF NOT EXISTS progress_documents (
	user_id    TEXT PRIMARY KEY,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS progress_events (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT,
	device_id  TEXT,
	event_type TEXT NOT NULL,
	course_id  TEXT,
	section_id TEXT,
	topic_key  TEXT,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS progress_events_user_idx ON progress_events (user_id, created_at);
`

// EnsureSchema applies Schema. It is safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply progress schema: %w", err)
	}
	return nil
}

// PostgresRemoteStore keeps each user's progress document in one JSONB row.
type PostgresRemoteStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRemoteStore creates a PostgreSQL-backed remote store.
func NewPostgresRemoteStore(pool *pgxpool.Pool) (*PostgresRemoteStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRemoteStore{pool: pool}, nil
}

func (s *PostgresRemoteStore) Load(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM progress_documents WHERE user_id = $1`,
		userID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress document: %w", err)
	}

	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode progress document: %w", err)
	}
	return doc, nil
}

func (s *PostgresRemoteStore) MergeSection(ctx context.Context, userID, courseID, sectionID string, rec SectionRecord) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if rec == nil {
		rec = SectionRecord{}
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal section record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress_documents (user_id, data, updated_at)
		 VALUES ($1, jsonb_build_object($2::text, jsonb_build_object($3::text, $4::jsonb)), NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET data = jsonb_set(
		       progress_documents.data,
		       ARRAY[$2::text],
		       COALESCE(progress_documents.data -> $2::text, '{}'::jsonb)
		         || jsonb_build_object(
		              $3::text,
		              COALESCE(progress_documents.data -> $2::text -> $3::text, '{}'::jsonb) || $4::jsonb
		            ),
		       true
		     ),
		     updated_at = NOW()`,
		userID,
		courseID,
		sectionID,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("merge progress section: %w", err)
	}
	return nil
}

func (s *PostgresRemoteStore) DeleteSection(ctx context.Context, userID, courseID, sectionID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`UPDATE progress_documents
		 SET data = data #- ARRAY[$2::text, $3::text],
		     updated_at = NOW()
		 WHERE user_id = $1`,
		userID,
		courseID,
		sectionID,
	)
	if err != nil {
		return fmt.Errorf("delete progress section: %w", err)
	}
	return nil
}
