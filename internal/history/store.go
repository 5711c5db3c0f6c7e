// Package history records every dispatched response in SQLite so operators
// can audit what fired, when, and why.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"autoresponder/internal/common/logging"
	"autoresponder/internal/engine"
	"autoresponder/internal/rules"
)

// Entry is one recorded firing.
type Entry struct {
	ID          string    `json:"id"`
	Server      string    `json:"server"`
	Channel     string    `json:"channel"`
	Trigger     string    `json:"trigger"`
	SenderNick  string    `json:"sender_nick"`
	Message     string    `json:"message"`
	Response    string    `json:"response"`
	Destination string    `json:"destination"`
	Delayed     bool      `json:"delayed"`
	FiredAt     time.Time `json:"fired_at"`
}

// Stats summarizes recorded firings.
type Stats struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
	Delayed int `json:"delayed"`
}

// Store is a SQLite-backed firing log.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore opens (or creates) the history database at path.
func NewStore(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS firings (
		id TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		channel TEXT NOT NULL,
		trigger_text TEXT NOT NULL,
		sender_nick TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		destination TEXT NOT NULL,
		delayed BOOLEAN NOT NULL DEFAULT 0,
		fired_at DATETIME NOT NULL
	)`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *Store) Health() error {
	return s.db.Ping()
}

// RecordFiring implements engine.Recorder. A failed insert is logged and
// otherwise swallowed: history must never block or fail message processing.
func (s *Store) RecordFiring(rule *rules.Rule, msg engine.Message, response string, delayed bool) {
	_, err := s.db.Exec(
		`INSERT INTO firings (id, server, channel, trigger_text, sender_nick, message, response, destination, delayed, fired_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		msg.Server,
		msg.OriginChannel,
		rule.TriggerText,
		msg.SenderNick,
		msg.Text,
		response,
		rule.Destination(),
		delayed,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("Failed to record firing", logging.Err(err))
	}
}

// Recent returns the most recent firings, newest first.
func (s *Store) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	listRows, err := s.db.Query(
		`SELECT id, server, channel, trigger_text, sender_nick, message, response, destination, delayed, fired_at
		 FROM firings ORDER BY fired_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query firings: %w", err)
	}
	defer listRows.Close()

	var entries []*Entry
	for listRows.Next() {
		entry := &Entry{}
		if err := listRows.Scan(
			&entry.ID, &entry.Server, &entry.Channel, &entry.Trigger,
			&entry.SenderNick, &entry.Message, &entry.Response,
			&entry.Destination, &entry.Delayed, &entry.FiredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan firing: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, listRows.Err()
}

// Stats returns aggregate firing counts.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	row := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN fired_at >= ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN delayed THEN 1 ELSE 0 END), 0)
		 FROM firings`, cutoff)

	if err := row.Scan(&stats.Total, &stats.Last24h, &stats.Delayed); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return stats, nil
}
