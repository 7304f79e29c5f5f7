package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/russellromney/confidant/internal/models"
)

// SQLiteJournal implements Journal using SQLite
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at dbPath
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		action TEXT NOT NULL,
		environment TEXT,
		version TEXT,
		success BOOLEAN DEFAULT 1,
		error_message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON journal(timestamp);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record appends an entry, filling in ID and Timestamp when unset
func (j *SQLiteJournal) Record(entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := j.db.Exec(`
		INSERT INTO journal (id, timestamp, action, environment, version, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, entry.Action, nullString(entry.Environment), nullString(entry.Version), entry.Success, nullString(entry.ErrorMessage))
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// Entries returns up to limit entries, newest first
func (j *SQLiteJournal) Entries(limit int) ([]models.JournalEntry, error) {
	rows, err := j.db.Query(`
		SELECT id, timestamp, action, environment, version, success, error_message
		FROM journal ORDER BY timestamp DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		var env, version, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &env, &version, &e.Success, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Environment = env.String
		e.Version = version.String
		e.ErrorMessage = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Helper function for nullable strings
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
