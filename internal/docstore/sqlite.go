// Package docstore persists document records and their ingestion
// lifecycle in SQLite.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	ErrNotFound = errors.New("document not found")

	// ErrNoReadyDocument means the tenant has no document in query scope.
	ErrNoReadyDocument = errors.New("no ready document for tenant")

	// ErrAlreadyTerminal guards the exactly-once terminal transition.
	ErrAlreadyTerminal = errors.New("document already in a terminal state")
)

// timeLayout is fixed-width UTC so that lexicographic order of the stored
// strings matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	file_ref      TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('processing', 'ready', 'failed')),
	error_message TEXT NOT NULL DEFAULT '',
	chunk_count   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	processed_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents (tenant_id, status);
`

// Store is the SQLite-backed document store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at the given path with WAL
// mode for concurrent status reads during ingestion writes.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable and writable state is intact.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new document in StatusProcessing.
func (s *Store) Create(ctx context.Context, doc *Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, file_ref, file_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.TenantID, doc.FileRef, doc.FileName, StatusProcessing,
		doc.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, file_ref, file_name, status, error_message, chunk_count, created_at, processed_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ActiveForTenant returns the tenant's document currently in query scope:
// the most recently processed ready document. Returns ErrNoReadyDocument
// when the tenant has none.
func (s *Store) ActiveForTenant(ctx context.Context, tenantID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, file_ref, file_name, status, error_message, chunk_count, created_at, processed_at
		FROM documents
		WHERE tenant_id = ? AND status = ?
		ORDER BY processed_at DESC, id DESC
		LIMIT 1`, tenantID, StatusReady)
	doc, err := scanDocument(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoReadyDocument
	}
	return doc, err
}

// HasProcessing reports whether the tenant has an ingestion still in
// flight. Used to distinguish "processing" from "no document" in query
// responses.
func (s *Store) HasProcessing(ctx context.Context, tenantID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE tenant_id = ? AND status = ?`,
		tenantID, StatusProcessing).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting processing documents: %w", err)
	}
	return n > 0, nil
}

// MarkReady flips a processing document to ready, recording its final
// chunk count and processing time. The transition happens exactly once;
// a document already terminal returns ErrAlreadyTerminal.
func (s *Store) MarkReady(ctx context.Context, id string, chunkCount int) error {
	return s.transition(ctx, id, StatusReady, "", chunkCount)
}

// MarkFailed flips a processing document to failed with a human-readable
// reason. Failed ingestions are not resumable; a fresh upload is required.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.transition(ctx, id, StatusFailed, message, 0)
}

func (s *Store) transition(ctx context.Context, id string, status Status, message string, chunkCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error_message = ?, chunk_count = ?, processed_at = ?
		WHERE id = ? AND status = ?`,
		status, message, chunkCount, time.Now().UTC().Format(timeLayout),
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyTerminal
	}
	return nil
}

// FailStale sweeps documents stuck in processing longer than olderThan to
// failed, so an interrupted ingestion cannot hang without a terminal
// state. Returns the ids of the swept documents.
func (s *Store) FailStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(timeLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM documents WHERE status = ? AND created_at < ?`,
		StatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("selecting stale documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale documents: %w", err)
	}

	for _, id := range ids {
		err := s.MarkFailed(ctx, id, "ingestion did not complete; upload the document again")
		if err != nil && !errors.Is(err, ErrAlreadyTerminal) {
			return nil, err
		}
	}
	return ids, nil
}

// PriorReady returns the tenant's ready documents other than excludeID,
// so their chunks can be dropped from the vector index once a
// replacement document takes over query scope.
func (s *Store) PriorReady(ctx context.Context, tenantID, excludeID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, file_ref, file_name, status, error_message, chunk_count, created_at, processed_at
		FROM documents
		WHERE tenant_id = ? AND status = ? AND id != ?`,
		tenantID, StatusReady, excludeID)
	if err != nil {
		return nil, fmt.Errorf("selecting prior documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var createdAt string
	var processedAt sql.NullString
	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.FileRef, &doc.FileName,
		&doc.Status, &doc.ErrorMessage, &doc.ChunkCount,
		&createdAt, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if processedAt.Valid {
		t, err := time.Parse(timeLayout, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing processed_at: %w", err)
		}
		doc.ProcessedAt = &t
	}
	return &doc, nil
}
