// Package service defines the interfaces the command surface depends on,
// keeping the analytics packages decoupled from any concrete storage.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/mentat/internal/model"
)

// SessionInfo describes one stored dataset.
type SessionInfo struct {
	CreatedAt time.Time
	ID        string
	Source    string
	Rows      int
}

// DatasetStore owns uploaded ledgers keyed by opaque session identifiers.
// Implementations define their own eviction policy; callers must treat a
// missing session as evicted, not as an application bug.
type DatasetStore interface {
	// Save stores a batch and returns the new session id.
	Save(ctx context.Context, source string, batch []model.TransactionRecord) (string, error)
	// Get returns the batch for a session.
	Get(ctx context.Context, sessionID string) ([]model.TransactionRecord, error)
	// List returns stored sessions, newest first.
	List(ctx context.Context) ([]SessionInfo, error)
	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
	// Evict applies the store's retention policy and reports how many
	// sessions it removed.
	Evict(ctx context.Context) (int, error)
	// Close releases the underlying resources.
	Close() error
}
