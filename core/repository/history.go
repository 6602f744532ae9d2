// Package repository persists a local history of submitted jobs so
// the CLI can answer "what did I run" without talking to the service.
package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flow-client/core/models"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryStore records submitted jobs in a local SQLite database
type HistoryStore struct {
	db *sql.DB
}

// Entry is one recorded submission. Status holds the last status the
// client observed, not necessarily the job's current server-side state.
type Entry struct {
	JobID       string
	QueueID     string
	Name        string
	Status      string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// OpenHistory opens (creating if needed) the history database at path
func OpenHistory(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &HistoryStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			job_id       TEXT PRIMARY KEY,
			queue_id     TEXT NOT NULL,
			name         TEXT NOT NULL,
			status       TEXT NOT NULL,
			submitted_at DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSubmission stores a freshly submitted job
func (s *HistoryStore) RecordSubmission(jobID, queueID, name string) error {
	query := `
		INSERT INTO jobs (job_id, queue_id, name, status, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	_, err := s.db.Exec(query, jobID, queueID, name, string(models.JobStatusSubmitted), now, now)
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", jobID, err)
	}
	return nil
}

// UpdateStatus stores the latest observed status for a job. Updating a
// job this store never saw is not an error; the job may have been
// submitted from another machine.
func (s *HistoryStore) UpdateStatus(jobID string, status models.JobStatus) error {
	query := `UPDATE jobs SET status = ?, updated_at = ? WHERE job_id = ?`
	_, err := s.db.Exec(query, string(status), time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", jobID, err)
	}
	return nil
}

// List returns the most recent submissions, newest first
func (s *HistoryStore) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT job_id, queue_id, name, status, submitted_at, updated_at
		FROM jobs
		ORDER BY submitted_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.JobID, &e.QueueID, &e.Name, &e.Status, &e.SubmittedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
