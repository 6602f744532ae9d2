package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flow-client/core/jobspec"
	"flow-client/core/models"
)

func sampleJob(tasks int) jobspec.Job {
	job := jobspec.Job{
		Name: "test job",
		Tags: []string{"test"},
	}
	for i := 0; i < tasks; i++ {
		job.Tasks = append(job.Tasks, jobspec.Task{
			Name:        "noop",
			Type:        "task",
			Executor:    "bifrost",
			Inputs:      []any{},
			Limitations: jobspec.Limitations{MaxExecutionTimeInSeconds: 60},
			Payload:     map[string]any{"action": "Evaluate"},
			Requirements: jobspec.Requirements{
				CPU:    1,
				Memory: 1024,
			},
		})
	}
	return job
}

// artifactServer serves a fixed record list for a job's logs and
// outputs, with blob content "data:<resource>" behind signed URLs.
// Resources listed in broken return a 404 from their signed URL.
func artifactServer(t *testing.T, records []models.ArtifactRecord, broken map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/authentication/v2/token":
			json.NewEncoder(w).Encode(models.TokenResponse{AccessToken: "tok"})
		case strings.HasSuffix(r.URL.Path, "/logs"), strings.HasSuffix(r.URL.Path, "/outputs"):
			json.NewEncoder(w).Encode(models.ArtifactList{Results: records})
		case strings.HasSuffix(r.URL.Path, "/download-url"):
			parts := strings.Split(r.URL.Path, "/")
			resource := parts[len(parts)-2]
			json.NewEncoder(w).Encode(models.DownloadURL{URL: "http://" + r.Host + "/signed/" + resource})
		case strings.HasPrefix(r.URL.Path, "/signed/"):
			resource := strings.TrimPrefix(r.URL.Path, "/signed/")
			if broken[resource] {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte("data:" + resource))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadJobOutputsOrdering(t *testing.T) {
	records := []models.ArtifactRecord{
		{SpaceID: "s", ResourceID: "r1", Path: "out/planeWithTrees.usd"},
		{SpaceID: "s", ResourceID: "r2", Path: "out/stats.json"},
		{SpaceID: "s", ResourceID: "r3", Path: "out/preview.png"},
	}
	srv := artifactServer(t, records, nil)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	if err := c.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	dir := t.TempDir()
	paths, err := c.DownloadJobOutputs(ctx, "job-1", dir)
	if err != nil {
		t.Fatalf("DownloadJobOutputs failed: %v", err)
	}

	// returned paths must match the listing's length and order
	want := []string{
		filepath.Join(dir, "planeWithTrees.usd"),
		filepath.Join(dir, "stats.json"),
		filepath.Join(dir, "preview.png"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d", len(want), len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %q, got %q", i, want[i], paths[i])
		}
		data, err := os.ReadFile(paths[i])
		if err != nil {
			t.Fatalf("reading downloaded file: %v", err)
		}
		if !strings.HasPrefix(string(data), "data:") {
			t.Errorf("unexpected content in %s: %q", paths[i], data)
		}
	}
}

func TestDownloadJobLogsPrefixed(t *testing.T) {
	records := []models.ArtifactRecord{
		{SpaceID: "s", ResourceID: "r1", Path: "task0/stdout.log"},
	}
	srv := artifactServer(t, records, nil)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	if err := c.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	dir := t.TempDir()
	paths, err := c.DownloadJobLogs(ctx, "job-1", dir)
	if err != nil {
		t.Fatalf("DownloadJobLogs failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	if got, want := paths[0], filepath.Join(dir, "joblog_stdout.log"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDownloadJobOutputsEmpty(t *testing.T) {
	srv := artifactServer(t, []models.ArtifactRecord{}, nil)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	if err := c.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	paths, err := c.DownloadJobOutputs(ctx, "job-1", t.TempDir())
	if err != nil {
		t.Fatalf("expected no error for an empty listing, got %v", err)
	}
	if paths == nil || len(paths) != 0 {
		t.Errorf("expected an empty path list, got %#v", paths)
	}
}

func TestDownloadJobOutputsPartialFailure(t *testing.T) {
	records := []models.ArtifactRecord{
		{SpaceID: "s", ResourceID: "r1", Path: "a.usd"},
		{SpaceID: "s", ResourceID: "r2", Path: "b.usd"},
		{SpaceID: "s", ResourceID: "r3", Path: "c.usd"},
	}
	srv := artifactServer(t, records, map[string]bool{"r2": true})

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	if err := c.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	dir := t.TempDir()
	paths, err := c.DownloadJobOutputs(ctx, "job-1", dir)
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}

	// the successfully written paths come back alongside the error
	if len(paths) != 1 {
		t.Fatalf("expected 1 successful path before the failure, got %d", len(paths))
	}
	if got, want := paths[0], filepath.Join(dir, "a.usd"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
