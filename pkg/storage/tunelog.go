package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/n7pkt/flbridge/pkg/logging"
)

// TuneEvent is one recorded frequency change and where it came from:
// a rigctld client, the web API, or a reconciler push.
type TuneEvent struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Frequency int64     `json:"frequency"`
}

// TuneLog keeps a bounded history of tune events in SQLite. It is a
// log, not a state store: the bridge never reads it back to seed its
// sync state.
type TuneLog struct {
	db        *sql.DB
	dbPath    string
	maxEvents int
}

// NewTuneLog opens (or creates) the tune log at dbPath, keeping at most
// maxEvents rows.
func NewTuneLog(dbPath string, maxEvents int) (*TuneLog, error) {
	tl := &TuneLog{
		dbPath:    dbPath,
		maxEvents: maxEvents,
	}

	if err := tl.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize tune log: %w", err)
	}

	return tl, nil
}

func (tl *TuneLog) initialize() error {
	if dir := filepath.Dir(tl.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connectionString := tl.dbPath + "?_busy_timeout=10000&_journal_mode=WAL"

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	tl.db = db

	schema := `
	CREATE TABLE IF NOT EXISTS tune_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL,
		frequency INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tune_events_timestamp ON tune_events(timestamp DESC);
	`
	if _, err := tl.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Infof("storage", "tune log initialized: %s (max %d events)", tl.dbPath, tl.maxEvents)
	return nil
}

// Close closes the database
func (tl *TuneLog) Close() error {
	return tl.db.Close()
}

// RecordTune appends one tune event. It satisfies the Recorder
// interfaces of the rigctld server and the reconciler, neither of which
// can do anything useful with a storage error, so failures are logged
// and swallowed here.
func (tl *TuneLog) RecordTune(source string, frequency int64) {
	tx, err := tl.db.Begin()
	if err != nil {
		logging.Warnf("storage", "failed to record tune event: %v", err)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO tune_events (timestamp, source, frequency) VALUES (?, ?, ?)",
		time.Now().UTC(), source, frequency,
	)
	if err != nil {
		logging.Warnf("storage", "failed to record tune event: %v", err)
		return
	}

	// Keep the log bounded
	_, err = tx.Exec(`
		DELETE FROM tune_events WHERE id NOT IN (
			SELECT id FROM tune_events ORDER BY id DESC LIMIT ?
		)`, tl.maxEvents)
	if err != nil {
		logging.Warnf("storage", "failed to prune tune log: %v", err)
		return
	}

	if err := tx.Commit(); err != nil {
		logging.Warnf("storage", "failed to record tune event: %v", err)
	}
}

// RecentEvents returns up to limit events, newest first
func (tl *TuneLog) RecentEvents(limit int) ([]TuneEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := tl.db.Query(
		"SELECT id, timestamp, source, frequency FROM tune_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tune events: %w", err)
	}
	defer rows.Close()

	events := make([]TuneEvent, 0, limit)
	for rows.Next() {
		var event TuneEvent
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Source, &event.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan tune event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// EventCount returns the number of stored events
func (tl *TuneLog) EventCount() (int, error) {
	var count int
	err := tl.db.QueryRow("SELECT COUNT(*) FROM tune_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tune events: %w", err)
	}
	return count, nil
}
