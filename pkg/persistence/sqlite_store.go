package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS oxtrust_entries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    dn           TEXT NOT NULL,
    dn_key       TEXT NOT NULL UNIQUE,
    object_class TEXT NOT NULL DEFAULT '',
    doc          TEXT NOT NULL,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS oxtrust_entries_object_class_idx ON oxtrust_entries (object_class);
`

// SQLiteEntryStore implements EntryStore on an embedded SQLite database.
type SQLiteEntryStore struct {
	db *sql.DB
}

// NewSQLiteEntryStore opens the database at path (":memory:" is allowed)
// and creates the schema.
func NewSQLiteEntryStore(ctx context.Context, path string) (*SQLiteEntryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteEntryStore{db: db}, nil
}

func (s *SQLiteEntryStore) Find(ctx context.Context, dn string) (Document, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	var (
		doc  Document
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT dn, object_class, doc FROM oxtrust_entries WHERE dn_key = ?`, key,
	).Scan(&doc.DN, &doc.ObjectClass, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s", ErrEntryNotFound, dn)
		}
		return Document{}, fmt.Errorf("failed to get entry: %w", err)
	}
	doc.Data = []byte(data)
	return doc, nil
}

func (s *SQLiteEntryStore) Contains(ctx context.Context, dn string) (bool, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM oxtrust_entries WHERE dn_key = ?`, key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteEntryStore) Persist(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO oxtrust_entries (dn, dn_key, object_class, doc)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (dn_key) DO NOTHING`,
		doc.DN, key, doc.ObjectClass, string(doc.Data))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return expectAffected(res, ErrEntryExists, doc.DN)
}

func (s *SQLiteEntryStore) Merge(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE oxtrust_entries
		 SET dn = ?, object_class = ?, doc = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE dn_key = ?`,
		doc.DN, doc.ObjectClass, string(doc.Data), key)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectAffected(res, ErrEntryNotFound, doc.DN)
}

func (s *SQLiteEntryStore) Remove(ctx context.Context, dn string) error {
	key := NormalizeDN(dn)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM oxtrust_entries WHERE dn_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectAffected(res, ErrEntryNotFound, dn)
}

func (s *SQLiteEntryStore) FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error) {
	base := NormalizeDN(baseDN)
	if base == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDN, baseDN)
	}

	where, filterArgs := filter.SQL(f, filter.SQLite, 0)
	var query strings.Builder
	query.WriteString(`SELECT dn, object_class, doc FROM oxtrust_entries WHERE dn_key LIKE ? ESCAPE '\'`)
	args := []any{"%," + escapeLike(base)}
	if objectClass != "" {
		query.WriteString(` AND object_class = ?`)
		args = append(args, objectClass)
	}
	query.WriteString(` AND ` + where + ` ORDER BY id`)
	args = append(args, filterArgs...)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	result := []Document{}
	for rows.Next() {
		var (
			doc  Document
			data string
		)
		if err := rows.Scan(&doc.DN, &doc.ObjectClass, &data); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		doc.Data = []byte(data)
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

func (s *SQLiteEntryStore) PersistenceType() string {
	return TypeSQLite
}

func (s *SQLiteEntryStore) Close() error {
	return s.db.Close()
}

func expectAffected(res sql.Result, sentinel error, dn string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", sentinel, dn)
	}
	return nil
}
