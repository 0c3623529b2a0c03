// Package history keeps an audit log of changes made to the tunnel
// configuration in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yllada/wg-manager/common"
)

// Action names a configuration change.
type Action string

const (
	ActionAddPeer    Action = "add-peer"
	ActionRemovePeer Action = "remove-peer"
	ActionRenamePeer Action = "rename-peer"
	ActionSave       Action = "save"
)

// Event is one recorded change.
type Event struct {
	ID        uuid.UUID
	Time      time.Time
	Action    Action
	PublicKey string
	Name      string
	// Count is the number of peers affected.
	Count    int
	ConfPath string
}

// Store is a history database.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		action     TEXT NOT NULL,
		public_key TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		affected   INTEGER NOT NULL DEFAULT 0,
		conf_path  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS events_created_at ON events(created_at)`,
}

var connArgs = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// DefaultPath returns the database location in the user's config directory.
func DefaultPath() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.HistoryFileName), nil
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("error creating history directory: %w", err)
		}
		dsn = "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + strings.Join(connArgs, "&")
	}
	common.LogDebug("Opening history database %s", dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening history database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating history schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Record stores ev. A zero ID or Time is filled in.
func (s *Store) Record(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, created_at, action, public_key, name, affected, conf_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), ev.Time.UnixNano(), string(ev.Action), ev.PublicKey, ev.Name, ev.Count, ev.ConfPath)
	if err != nil {
		return fmt.Errorf("error recording history event: %w", err)
	}
	return nil
}

// List returns up to limit events, newest first. A limit of 0 or less
// returns every event.
func (s *Store) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, action, public_key, name, affected, conf_path
		 FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev     Event
			id     string
			nanos  int64
			action string
		)
		if err := rows.Scan(&id, &nanos, &action, &ev.PublicKey, &ev.Name, &ev.Count, &ev.ConfPath); err != nil {
			return nil, fmt.Errorf("error reading history: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt history event id %q: %w", id, err)
		}
		ev.Time = time.Unix(0, nanos)
		ev.Action = Action(action)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
