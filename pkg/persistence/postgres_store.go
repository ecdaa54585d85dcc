package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS oxtrust_entries (
    id           BIGSERIAL PRIMARY KEY,
    dn           TEXT NOT NULL,
    dn_key       TEXT NOT NULL UNIQUE,
    object_class TEXT NOT NULL DEFAULT '',
    doc          JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS oxtrust_entries_object_class_idx ON oxtrust_entries (object_class);
`

// PostgresEntryStore implements EntryStore using PostgreSQL. Documents are
// stored as JSONB keyed by the normalized DN.
type PostgresEntryStore struct {
	db *pgxpool.Pool
}

// NewPostgresEntryStore creates a new PostgreSQL entry store
func NewPostgresEntryStore(db *pgxpool.Pool) (*PostgresEntryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &PostgresEntryStore{db: db}, nil
}

// EnsureSchema creates the entries table when missing
func (s *PostgresEntryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresEntryStore) Find(ctx context.Context, dn string) (Document, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	var doc Document
	err := s.db.QueryRow(ctx,
		`SELECT dn, object_class, doc FROM oxtrust_entries WHERE dn_key = $1`, key,
	).Scan(&doc.DN, &doc.ObjectClass, &doc.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s", ErrEntryNotFound, dn)
		}
		return Document{}, fmt.Errorf("failed to get entry: %w", err)
	}
	return doc, nil
}

func (s *PostgresEntryStore) Contains(ctx context.Context, dn string) (bool, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM oxtrust_entries WHERE dn_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return exists, nil
}

func (s *PostgresEntryStore) Persist(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO oxtrust_entries (dn, dn_key, object_class, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (dn_key) DO NOTHING`,
		doc.DN, key, doc.ObjectClass, []byte(doc.Data))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEntryExists, doc.DN)
	}
	return nil
}

func (s *PostgresEntryStore) Merge(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE oxtrust_entries
		 SET dn = $2, object_class = $3, doc = $4, updated_at = now()
		 WHERE dn_key = $1`,
		key, doc.DN, doc.ObjectClass, []byte(doc.Data))
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, doc.DN)
	}
	return nil
}

func (s *PostgresEntryStore) Remove(ctx context.Context, dn string) error {
	key := NormalizeDN(dn)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM oxtrust_entries WHERE dn_key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, dn)
	}
	return nil
}

// FindEntries narrows candidates in SQL and re-checks every row with the
// in-process matcher, so SQL rendering only has to be a superset.
func (s *PostgresEntryStore) FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error) {
	base := NormalizeDN(baseDN)
	if base == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDN, baseDN)
	}

	where, args := filter.SQL(f, filter.Postgres, 3)
	query := `SELECT dn, object_class, doc FROM oxtrust_entries
		WHERE dn_key LIKE $1 ESCAPE '\'
		AND ($2::text = '' OR object_class = $2)
		AND ` + where + `
		ORDER BY id`
	args = append([]any{"%," + escapeLike(base), objectClass}, args...)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	result := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DN, &doc.ObjectClass, &doc.Data); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if !filter.Matches(f, doc.Data) {
			continue
		}
		result = append(result, doc)
		if sizeLimit > 0 && len(result) >= sizeLimit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return result, nil
}

func (s *PostgresEntryStore) PersistenceType() string {
	return TypePostgres
}

// Close releases the pool
func (s *PostgresEntryStore) Close() error {
	s.db.Close()
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
