package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/Veraticus/mentat/internal/storage"
)

func openStore() (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("storage.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "mentat", "mentat.db")
	}

	retention := storage.DefaultRetention()
	if v := viper.GetInt("storage.max_sessions"); v > 0 {
		retention.MaxSessions = v
	}
	if v := viper.GetDuration("storage.ttl"); v > 0 {
		retention.TTL = v
	}

	return storage.NewSQLiteStore(dbPath, retention)
}

// loadSession resolves the --session flag (or the most recent session when
// unset) and returns its batch.
func loadSession(ctx context.Context, cmd *cobra.Command) ([]model.TransactionRecord, string, error) {
	store, err := openStore()
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = store.Close() }()

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessions, err := store.List(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(sessions) == 0 {
			return nil, "", common.NewUserError("No sessions stored. Run 'mentat import' first", common.ErrSessionNotFound)
		}
		sessionID = sessions[0].ID
	}

	batch, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	return batch, sessionID, nil
}

func parseReferenceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
