package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"nyassess/domain/assessment"
	"nyassess/internal/errors"
	"nyassess/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const payloadSchema = `
CREATE TABLE IF NOT EXISTS school_payloads (
	subject    TEXT        NOT NULL,
	school     TEXT        NOT NULL,
	slug       TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	built_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (subject, school)
);
CREATE TABLE IF NOT EXISTS school_names (
	position INTEGER NOT NULL PRIMARY KEY,
	name     TEXT    NOT NULL
);`

// PayloadRepository stores pre-materialized school payloads in PostgreSQL
type PayloadRepository struct {
	db *sqlx.DB
}

// Connect opens a PostgreSQL connection and ensures the payload tables exist
func Connect(ctx context.Context, url string) (*PayloadRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	repo := NewPayloadRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPayloadRepository creates a new PostgreSQL payload repository
func NewPayloadRepository(db *sqlx.DB) *PayloadRepository {
	return &PayloadRepository{db: db}
}

// EnsureSchema creates the payload tables if they are missing
func (r *PayloadRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, payloadSchema); err != nil {
		return errors.DatabaseError("failed to create payload tables", err)
	}
	return nil
}

// WriteSchool upserts one school's payload
func (r *PayloadRepository) WriteSchool(ctx context.Context, subject assessment.Subject, school, slug string, payload assessment.Payload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", school, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO school_payloads (subject, school, slug, payload, built_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (subject, school)
		DO UPDATE SET slug = EXCLUDED.slug, payload = EXCLUDED.payload, built_at = EXCLUDED.built_at
	`, string(subject), school, slug, payloadJSON)
	if err != nil {
		return errors.DatabaseError(fmt.Sprintf("failed to store %s payload for %s", subject, school), err)
	}
	return nil
}

// WriteNames replaces the stored school-name list
func (r *PayloadRepository) WriteNames(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM school_names`); err != nil {
		return errors.DatabaseError("failed to clear school names", err)
	}
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO school_names (position, name) VALUES ($1, $2)`, i, name); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert school name %q", name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit school names", err)
	}
	return nil
}

// SchoolPayload returns the stored payload JSON for one school
func (r *PayloadRepository) SchoolPayload(ctx context.Context, subject assessment.Subject, school string) (json.RawMessage, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload,
		`SELECT payload FROM school_payloads WHERE subject = $1 AND school = $2`, string(subject), school)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(fmt.Sprintf("no stored %s payload for %q", subject, school))
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to read school payload", err)
	}
	return json.RawMessage(payload), nil
}

// Names returns the stored school-name list in written order
func (r *PayloadRepository) Names(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := r.db.SelectContext(ctx, &names, `SELECT name FROM school_names ORDER BY position`); err != nil {
		return nil, errors.DatabaseError("failed to read school names", err)
	}
	return names, nil
}

// Close releases the database connection
func (r *PayloadRepository) Close() error {
	return r.db.Close()
}

var _ ports.PayloadSink = (*PayloadRepository)(nil)
