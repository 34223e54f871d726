// Package storage implements the session-keyed dataset store on SQLite.
// Uploaded ledgers are the only state that outlives a single command;
// everything else in the system is recomputed per invocation.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/Veraticus/mentat/internal/service"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Retention bounds the store's eviction policy: sessions beyond MaxSessions
// (oldest first) or older than TTL are removed by Evict.
type Retention struct {
	MaxSessions int
	TTL         time.Duration
}

// DefaultRetention returns the default retention policy.
func DefaultRetention() Retention {
	return Retention{
		MaxSessions: 20,
		TTL:         7 * 24 * time.Hour,
	}
}

// SQLiteStore implements service.DatasetStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	now       func() time.Time
	retention Retention
}

var _ service.DatasetStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the store at dbPath.
// ":memory:" is supported for tests.
func NewSQLiteStore(dbPath string, retention Retention) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("opening dataset store: empty path: %w", common.ErrInvalidConfig)
	}
	if retention.MaxSessions < 1 {
		retention.MaxSessions = DefaultRetention().MaxSessions
	}
	if retention.TTL <= 0 {
		retention.TTL = DefaultRetention().TTL
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening dataset store: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging dataset store: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		retention: retention,
		now:       time.Now,
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_rows (
			session_id TEXT NOT NULL,
			invoice_no TEXT NOT NULL,
			stock_code TEXT NOT NULL,
			description TEXT,
			quantity INTEGER NOT NULL,
			unit_price REAL NOT NULL,
			invoice_date DATETIME NOT NULL,
			customer_id TEXT NOT NULL,
			country TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_rows_session ON ledger_rows(session_id)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("migrating dataset store: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores a batch under a fresh session id and applies retention.
func (s *SQLiteStore) Save(ctx context.Context, source string, batch []model.TransactionRecord) (string, error) {
	if len(batch) == 0 {
		return "", fmt.Errorf("saving session: %w", common.ErrEmptyDataset)
	}

	sessionID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, source, row_count, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, source, len(batch), s.now().UTC(),
	); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger_rows
		 (session_id, invoice_no, stock_code, description, quantity, unit_price, invoice_date, customer_id, country)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("saving session rows: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range batch {
		if _, err := stmt.ExecContext(ctx,
			sessionID, rec.InvoiceNo, rec.StockCode, rec.Description,
			rec.Quantity, rec.UnitPrice, rec.InvoiceDate.UTC(), rec.CustomerID, rec.Country,
		); err != nil {
			return "", fmt.Errorf("saving session rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}

	if _, err := s.Evict(ctx); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get loads the batch for a session.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]model.TransactionRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, common.ErrSessionNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT invoice_no, stock_code, description, quantity, unit_price, invoice_date, customer_id, country
		 FROM ledger_rows WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var batch []model.TransactionRecord
	for rows.Next() {
		var rec model.TransactionRecord
		if err := rows.Scan(
			&rec.InvoiceNo, &rec.StockCode, &rec.Description, &rec.Quantity,
			&rec.UnitPrice, &rec.InvoiceDate, &rec.CustomerID, &rec.Country,
		); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	return batch, nil
}

// List returns stored sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]service.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, row_count, created_at FROM sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []service.SessionInfo
	for rows.Next() {
		var info service.SessionInfo
		if err := rows.Scan(&info.ID, &info.Source, &info.Rows, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and its rows.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting session %s: %w", sessionID, common.ErrSessionNotFound)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_rows WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session rows %s: %w", sessionID, err)
	}
	return nil
}

// Evict enforces retention: sessions past the TTL go first, then the oldest
// sessions beyond the count bound.
func (s *SQLiteStore) Evict(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.retention.TTL)

	expired, err := s.collectIDs(ctx,
		`SELECT id FROM sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	overflow, err := s.collectIDs(ctx,
		`SELECT id FROM sessions WHERE created_at >= ?
		 ORDER BY created_at DESC, id LIMIT -1 OFFSET ?`, cutoff, s.retention.MaxSessions)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, id := range append(expired, overflow...) {
		if err := s.Delete(ctx, id); err != nil {
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}

func (s *SQLiteStore) collectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("evicting sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("evicting sessions: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evicting sessions: %w", err)
	}
	return ids, nil
}
