package models

// Job represents a compute job as reported by the remote service.
// Fields beyond the ones listed here are service-internal and ignored;
// the authoritative job state always lives server-side.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Status    JobStatus `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
	QueueID   string    `json:"queueId,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "SUBMITTED"
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCanceled  JobStatus = "CANCELED"
)

// IsTerminal reports whether no further status transition can occur.
// Status values the client does not know about are treated as
// non-terminal, so polling keeps going until the service settles.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// JobList is the response envelope for queue job listings
type JobList struct {
	Results []Job `json:"results"`
}

// ArtifactRecord describes one downloadable log or output artifact
// produced by a job: the storage space and resource holding its bytes,
// and the path it had relative to the task working directory.
type ArtifactRecord struct {
	SpaceID    string `json:"spaceId"`
	ResourceID string `json:"resourceId"`
	Path       string `json:"path"`
}

// ArtifactList is the response envelope for log/output listings
type ArtifactList struct {
	Results []ArtifactRecord `json:"results"`
}
