// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// Package eventlog persists VICI events to a local SQLite journal, for
// applications that want a durable record of charon's event stream
// (ike-updown, child-updown, and the rest) independent of whatever is
// watching the live Client.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/strongswan/govici"
)

// Store is a SQLite-backed journal of VICI events.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, creating its schema
// if necessary.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("eventlog: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: ping database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			rendered   TEXT NOT NULL,
			recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_events_name ON events(name);
		CREATE INDEX IF NOT EXISTS idx_events_recorded_at ON events(recorded_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the journal's underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends ev to the journal, assigning it a fresh UUID primary key.
func (s *Store) Record(ev *govici.Event) (string, error) {
	id := uuid.NewString()
	rendered := ""
	if ev.Message != nil {
		rendered = ev.Message.String()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, name, rendered) VALUES (?, ?, ?)`,
		id, ev.Name, rendered,
	)
	if err != nil {
		return "", fmt.Errorf("eventlog: insert event: %w", err)
	}
	return id, nil
}

// Follow runs until ctx is cancelled, c.ReadEvent returns an error, or
// recording an event fails, recording every event the client receives. It is meant to be run on its
// own goroutine against a Client dedicated to event delivery, separate
// from any Client used for Call.
func (s *Store) Follow(ctx context.Context, c *govici.Client) error {
	type result struct {
		ev  *govici.Event
		err error
	}
	for {
		ch := make(chan result, 1)
		go func() {
			ev, err := c.ReadEvent()
			ch <- result{ev, err}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-ch:
			if r.err != nil {
				return r.err
			}
			if _, err := s.Record(r.ev); err != nil {
				return err
			}
		}
	}
}

// Entry is one journaled event as read back from the store.
type Entry struct {
	ID         string
	Name       string
	Rendered   string
	RecordedAt string
}

// Recent returns the most recently recorded entries, newest first, capped
// at limit.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, name, rendered, recorded_at FROM events ORDER BY recorded_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Rendered, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByName returns the number of journaled events for each distinct
// event name, for use by monitoring/reporting tools.
func (s *Store) CountByName() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT name, COUNT(*) FROM events GROUP BY name`)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("eventlog: scan row: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
