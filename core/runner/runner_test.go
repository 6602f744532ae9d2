package runner

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flow-client/api/mock"
	"flow-client/core/client"
	"flow-client/core/jobspec"
	"flow-client/core/models"
	"flow-client/core/repository"
	"flow-client/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const (
	testClientID     = "runner-client"
	testClientSecret = "runner-secret"
)

func setup(t *testing.T) (*mock.Service, *client.Client) {
	t.Helper()
	service := mock.NewService(testClientID, testClientSecret)
	srv := httptest.NewServer(service)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{
		BaseURL:      srv.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	return service, c
}

func writeInputs(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	inputs := []string{
		filepath.Join(dir, "plane.usd"),
		filepath.Join(dir, "addTrees.json"),
	}
	for _, p := range inputs {
		if err := os.WriteFile(p, []byte("content of "+filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("writing input: %v", err)
		}
	}
	return dir, inputs
}

func scatterSpec(t *testing.T, inputs []string) Spec {
	t.Helper()
	return Spec{
		SpaceID: "scratch:@default",
		Inputs:  inputs,
		BuildJob: func(urns map[string]string) jobspec.Job {
			return jobspec.ScatterJob(jobspec.ScatterParams{
				GraphURN:       urns["addTrees.json"],
				InputURN:       urns["plane.usd"],
				InputFilename:  "plane.usd",
				OutputFilename: "planeWithTrees.usd",
				TreeCount:      10,
			})
		},
		OutDir:       filepath.Join(t.TempDir(), "outputs"),
		LogDir:       filepath.Join(t.TempDir(), "logs"),
		PollInterval: time.Millisecond,
		MaxWait:      5 * time.Second,
	}
}

func TestRunLifecycle(t *testing.T) {
	service, c := setup(t)
	_, inputs := writeInputs(t)
	spec := scatterSpec(t, inputs)

	r := New(c, nil, nil, zerolog.Nop())
	res, err := r.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Job.Status != models.JobStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", res.Job.Status)
	}
	if service.JobCount() != 1 {
		t.Errorf("expected 1 submitted job, got %d", service.JobCount())
	}

	// the run yields exactly the output set the job declared
	if len(res.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d: %v", len(res.Outputs), res.Outputs)
	}
	if got, want := res.Outputs[0], filepath.Join(spec.OutDir, "planeWithTrees.usd"); got != want {
		t.Errorf("expected output %q, got %q", want, got)
	}
	if _, err := os.Stat(res.Outputs[0]); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	if len(res.Logs) != 1 {
		t.Fatalf("expected 1 log, got %d: %v", len(res.Logs), res.Logs)
	}
	if got, want := res.Logs[0], filepath.Join(spec.LogDir, "joblog_stdout.log"); got != want {
		t.Errorf("expected log %q, got %q", want, got)
	}
}

func TestRunFailedJobStillFetchesLogs(t *testing.T) {
	service, c := setup(t)
	service.FinalStatus = models.JobStatusFailed
	_, inputs := writeInputs(t)
	spec := scatterSpec(t, inputs)

	r := New(c, nil, nil, zerolog.Nop())
	res, err := r.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Job.Status != models.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", res.Job.Status)
	}
	// a failed job produced nothing, and that is not an error
	if len(res.Outputs) != 0 {
		t.Errorf("expected no outputs for a failed job, got %v", res.Outputs)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	_, c := setup(t)
	_, inputs := writeInputs(t)
	spec := scatterSpec(t, inputs)

	history, err := repository.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer history.Close()

	r := New(c, history, nil, zerolog.Nop())
	res, err := r.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries, err := history.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].JobID != res.JobID {
		t.Errorf("expected job id %q in history, got %q", res.JobID, entries[0].JobID)
	}
	if entries[0].Status != string(models.JobStatusSucceeded) {
		t.Errorf("expected final status recorded, got %q", entries[0].Status)
	}
}

type fakePutter struct {
	keys []string
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	io.Copy(io.Discard, params.Body)
	f.keys = append(f.keys, *params.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestRunArchivesOutputs(t *testing.T) {
	_, c := setup(t)
	_, inputs := writeInputs(t)
	spec := scatterSpec(t, inputs)

	putter := &fakePutter{}
	archiver := storage.NewArchiverWithClient(putter, "artifacts-bucket", "runs", zerolog.Nop())

	r := New(c, nil, archiver, zerolog.Nop())
	res, err := r.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Archived) != 1 {
		t.Fatalf("expected 1 archived key, got %d", len(res.Archived))
	}
	if got, want := res.Archived[0], "runs/"+res.JobID+"/planeWithTrees.usd"; got != want {
		t.Errorf("expected key %q, got %q", want, got)
	}
	if len(putter.keys) != 1 || putter.keys[0] != res.Archived[0] {
		t.Errorf("archiver did not put the reported key: %v", putter.keys)
	}
}
