// Package runner drives one job through its whole lifecycle: upload
// inputs, submit, poll to completion, download outputs and logs.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"flow-client/core/client"
	"flow-client/core/jobspec"
	"flow-client/core/models"
	"flow-client/core/repository"
	"flow-client/storage"

	"github.com/rs/zerolog"
)

// Runner executes job lifecycles against one client. The history
// store and archiver are optional; nil disables them.
type Runner struct {
	client   *client.Client
	history  *repository.HistoryStore
	archiver *storage.Archiver
	logger   zerolog.Logger
}

// New creates a runner
func New(c *client.Client, history *repository.HistoryStore, archiver *storage.Archiver, logger zerolog.Logger) *Runner {
	return &Runner{
		client:   c,
		history:  history,
		archiver: archiver,
		logger:   logger,
	}
}

// Spec describes one run: which local files to upload, how to build
// the job description from their URNs, and where results land.
type Spec struct {
	// SpaceID is the storage space inputs are uploaded into
	SpaceID string

	// Inputs are local file paths, uploaded under their basenames
	Inputs []string

	// BuildJob receives the uploaded URNs keyed by input basename and
	// returns the job description to submit
	BuildJob func(urns map[string]string) jobspec.Job

	// OutDir and LogDir receive downloaded outputs and logs; both are
	// created if absent
	OutDir string
	LogDir string

	PollInterval time.Duration
	MaxWait      time.Duration
}

// Result reports what a run produced
type Result struct {
	JobID    string
	Job      models.Job
	Outputs  []string
	Logs     []string
	Archived []string
}

// Run executes the lifecycle strictly in sequence. Any failing step
// aborts the run; the error carries the step's kind for errors.Is.
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	var res Result

	if err := r.client.Authenticate(ctx); err != nil {
		return res, err
	}

	r.logger.Info().Int("count", len(spec.Inputs)).Msg("uploading input files")
	urns := make(map[string]string, len(spec.Inputs))
	for _, input := range spec.Inputs {
		name := filepath.Base(input)
		urn, err := r.client.UploadFile(ctx, input, spec.SpaceID, name)
		if err != nil {
			return res, err
		}
		urns[name] = urn
	}

	job := spec.BuildJob(urns)
	jobID, err := r.client.SubmitJob(ctx, job)
	if err != nil {
		return res, err
	}
	res.JobID = jobID
	r.recordSubmission(jobID, job.Name)

	if jobs, err := r.client.ListJobs(ctx); err == nil {
		r.logger.Info().Int("queued", len(jobs)).Msg("jobs visible in queue")
	}

	r.logger.Info().Str("job", jobID).Msg("waiting for job to complete")
	final, err := r.client.WaitForJob(ctx, jobID, client.WaitOptions{
		Interval: spec.PollInterval,
		MaxWait:  spec.MaxWait,
	})
	if err != nil {
		return res, err
	}
	res.Job = final
	r.recordStatus(jobID, final.Status)
	r.logger.Info().Str("job", jobID).Str("status", string(final.Status)).Msg("job finished")

	// outputs and logs are fetched even for failed jobs; the logs are
	// usually the only way to see why a job failed
	res.Outputs, err = r.client.DownloadJobOutputs(ctx, jobID, spec.OutDir)
	if err != nil {
		return res, err
	}
	r.logger.Info().Int("count", len(res.Outputs)).Msg("downloaded job outputs")

	if r.archiver != nil && len(res.Outputs) > 0 {
		res.Archived, err = r.archiver.ArchiveFiles(ctx, jobID, res.Outputs)
		if err != nil {
			return res, fmt.Errorf("archiving outputs: %w", err)
		}
	}

	res.Logs, err = r.client.DownloadJobLogs(ctx, jobID, spec.LogDir)
	if err != nil {
		return res, err
	}
	r.logger.Info().Int("count", len(res.Logs)).Msg("downloaded job logs")

	return res, nil
}

func (r *Runner) recordSubmission(jobID, name string) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordSubmission(jobID, r.client.QueueID(), name); err != nil {
		r.logger.Warn().Err(err).Msg("failed to record submission in history")
	}
}

func (r *Runner) recordStatus(jobID string, status models.JobStatus) {
	if r.history == nil {
		return
	}
	if err := r.history.UpdateStatus(jobID, status); err != nil {
		r.logger.Warn().Err(err).Msg("failed to update history status")
	}
}
