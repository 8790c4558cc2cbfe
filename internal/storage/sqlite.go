package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable is returned when the store was never configured
	// or has been closed. Operations fail immediately rather than silently
	// returning empty results.
	ErrStoreUnavailable = errors.New("embedding store not available")
)

// SQLiteStore implements EmbeddingStore using SQLite with BLOB vector columns
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed embedding store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ready guards every operation against a missing or closed database
func (s *SQLiteStore) ready() error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// tableFor maps a namespace to its embedding table
func tableFor(ns Namespace) (string, error) {
	switch ns {
	case NamespaceDocument:
		return "document_embeddings", nil
	case NamespaceEntity:
		return "entity_embeddings", nil
	default:
		return "", fmt.Errorf("unknown namespace %q", ns)
	}
}

// Get returns the live record for an identifier, or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, identifier string) (*EmbeddingRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	table, err := tableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT identifier, vector, content_hash, model_tag, updated_at
		FROM %s
		WHERE identifier = ?
	`, table)

	var record EmbeddingRecord
	err = s.db.QueryRowContext(ctx, query, identifier).Scan(
		&record.Identifier, &record.Vector, &record.ContentHash,
		&record.ModelTag, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAll returns every record in a namespace
func (s *SQLiteStore) GetAll(ctx context.Context, ns Namespace) ([]*EmbeddingRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	table, err := tableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT identifier, vector, content_hash, model_tag, updated_at
		FROM %s
		ORDER BY identifier
	`, table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*EmbeddingRecord, 0)
	for rows.Next() {
		var record EmbeddingRecord
		if err := rows.Scan(
			&record.Identifier, &record.Vector, &record.ContentHash,
			&record.ModelTag, &record.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Upsert creates or overwrites the record for an identifier
func (s *SQLiteStore) Upsert(ctx context.Context, ns Namespace, record *EmbeddingRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	table, err := tableFor(ns)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (identifier, vector, content_hash, model_tag, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			vector = excluded.vector,
			content_hash = excluded.content_hash,
			model_tag = excluded.model_tag,
			updated_at = excluded.updated_at
	`, table)

	now := time.Now()
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	if _, err := s.db.ExecContext(ctx, query,
		record.Identifier, record.Vector, record.ContentHash,
		record.ModelTag, record.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Delete removes the record for an identifier. Deleting a missing
// identifier is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, ns Namespace, identifier string) error {
	if err := s.ready(); err != nil {
		return err
	}
	table, err := tableFor(ns)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE identifier = ?", table)
	if _, err := s.db.ExecContext(ctx, query, identifier); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// Count returns the number of live records in a namespace
func (s *SQLiteStore) Count(ctx context.Context, ns Namespace) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	table, err := tableFor(ns)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LoadAllHashes returns identifier -> content hash without touching vectors
func (s *SQLiteStore) LoadAllHashes(ctx context.Context, ns Namespace) (map[string]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	table, err := tableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT identifier, content_hash FROM %s", table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]string)
	for rows.Next() {
		var identifier, hash string
		if err := rows.Scan(&identifier, &hash); err != nil {
			return nil, err
		}
		hashes[identifier] = hash
	}

	return hashes, rows.Err()
}

// Note keyword index operations

// UpsertNote creates or replaces a note in the keyword index
func (s *SQLiteStore) UpsertNote(ctx context.Context, path, title, content string) error {
	if err := s.ready(); err != nil {
		return err
	}

	query := `
		INSERT INTO notes (path, title, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, path, title, content, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note from the keyword index
func (s *SQLiteStore) DeleteNote(ctx context.Context, path string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// SearchNotes performs BM25 full-text search over the note index and
// returns an already-ranked result list (rank = slice order)
func (s *SQLiteStore) SearchNotes(ctx context.Context, query string, limit int) ([]KeywordResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return []KeywordResult{}, nil
	}

	sqlQuery := `
		SELECT n.path, n.title, snippet(notes_fts, 1, '', '', '...', 12) as snip,
		       bm25(notes_fts) as score
		FROM notes_fts
		INNER JOIN notes n ON notes_fts.rowid = n.rowid
		WHERE notes_fts MATCH ?
		ORDER BY score LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, sqlQuery, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]KeywordResult, 0, limit)
	for rows.Next() {
		var result KeywordResult
		var score float64
		if err := rows.Scan(&result.Path, &result.Title, &result.Snippet, &score); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// sanitizeFTSQuery rewrites a user query as quoted phrase terms so
// match-expression syntax (operators, wildcards, column filters) cannot
// be injected. Terms are implicitly ANDed by FTS5.
func sanitizeFTSQuery(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(terms) == 0 {
		return ""
	}

	var b strings.Builder
	for i, term := range terms {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(`"`)
		b.WriteString(term)
		b.WriteString(`"`)
	}
	return b.String()
}
