package repository

import (
	"path/filepath"
	"testing"
	"time"

	"flow-client/core/models"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := OpenHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordSubmission("job-1", "@default", "first job"); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := store.RecordSubmission("job-2", "@default", "second job"); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}

	entries, err := store.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// newest first
	if entries[0].JobID != "job-2" || entries[1].JobID != "job-1" {
		t.Errorf("unexpected ordering: %s, %s", entries[0].JobID, entries[1].JobID)
	}
	if entries[0].Status != string(models.JobStatusSubmitted) {
		t.Errorf("expected SUBMITTED, got %q", entries[0].Status)
	}
}

func TestUpdateStatus(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordSubmission("job-1", "@default", "a job"); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}
	if err := store.UpdateStatus("job-1", models.JobStatusSucceeded); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	entries, err := store.List(1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if entries[0].Status != string(models.JobStatusSucceeded) {
		t.Errorf("expected SUCCEEDED, got %q", entries[0].Status)
	}
}

func TestUpdateStatusUnknownJob(t *testing.T) {
	store := openTestStore(t)

	// jobs submitted elsewhere are simply unknown here, not an error
	if err := store.UpdateStatus("never-seen", models.JobStatusFailed); err != nil {
		t.Errorf("expected no error for unknown job, got %v", err)
	}
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.RecordSubmission(id, "@default", "job "+id); err != nil {
			t.Fatalf("RecordSubmission failed: %v", err)
		}
	}

	entries, err := store.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with limit 2, got %d", len(entries))
	}
}
