package client

import (
	"context"
	"fmt"
	"time"

	"flow-client/core/jobspec"
	"flow-client/core/models"
)

// SubmitJob posts a job description to the client's queue and returns
// the assigned job identifier. The description's task payloads are
// passed through untouched; the service, not this client, validates
// their shape.
func (c *Client) SubmitJob(ctx context.Context, job jobspec.Job) (string, error) {
	var out models.SubmitResult
	u := c.computeURL("/queues/%s/jobs", pathEscape(c.queueID))
	if err := c.postJSON(ctx, u, job, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: service returned no job id", ErrSubmit)
	}

	c.logger.Info().Str("job", out.ID).Str("queue", c.queueID).Msg("job submitted")
	return out.ID, nil
}

// ListJobs returns all jobs visible in the client's queue
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var out models.JobList
	u := c.computeURL("/queues/%s/jobs", pathEscape(c.queueID))
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("%w: listing jobs: %v", ErrPoll, err)
	}
	return out.Results, nil
}

// GetJob fetches the current record for one job
func (c *Client) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	var out models.Job
	u := c.computeURL("/queues/%s/jobs/%s", pathEscape(c.queueID), pathEscape(jobID))
	if err := c.getJSON(ctx, u, &out); err != nil {
		return models.Job{}, fmt.Errorf("%w: job %s: %v", ErrPoll, jobID, err)
	}
	return out, nil
}

// WaitOptions bounds a WaitForJob call. A zero Interval defaults to
// five seconds; a zero MaxWait means no bound beyond ctx.
type WaitOptions struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// WaitForJob polls GetJob at a fixed interval until the job reaches a
// terminal status and returns its final record. The wait is
// cancellable through ctx and optionally bounded by opts.MaxWait;
// either cutoff surfaces as an ErrTimeout-kinded error. A transport
// failure during a poll aborts the wait immediately with the poll's
// own error; a non-terminal status never does.
func (c *Client) WaitForJob(ctx context.Context, jobID string, opts WaitOptions) (models.Job, error) {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}

	var bound <-chan time.Time
	if opts.MaxWait > 0 {
		timer := time.NewTimer(opts.MaxWait)
		defer timer.Stop()
		bound = timer.C
	}

	for {
		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			return models.Job{}, err
		}

		c.logger.Info().Str("job", jobID).Str("status", string(job.Status)).Msg("job status")
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return models.Job{}, fmt.Errorf("%w: job %s: %v", ErrTimeout, jobID, ctx.Err())
		case <-bound:
			return models.Job{}, fmt.Errorf("%w: job %s still %s after %s", ErrTimeout, jobID, job.Status, opts.MaxWait)
		case <-time.After(opts.Interval):
		}
	}
}
