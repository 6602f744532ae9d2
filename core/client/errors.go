package client

import "errors"

// Sentinel error kinds for the client. Each operation wraps the kind
// matching its failure with fmt.Errorf("%w: ..."), so callers can
// classify failures with errors.Is without parsing messages.
var (
	// ErrAuth covers rejected credentials and an unreachable auth endpoint
	ErrAuth = errors.New("authentication failed")

	// ErrUpload covers any failed sub-step of the three-step upload
	ErrUpload = errors.New("upload failed")

	// ErrSubmit covers a rejected job submission
	ErrSubmit = errors.New("job submission failed")

	// ErrPoll covers a failed status or listing call, as opposed to a
	// legitimate non-terminal status, which is not an error
	ErrPoll = errors.New("status poll failed")

	// ErrDownload covers any failed sub-step of a download
	ErrDownload = errors.New("download failed")

	// ErrTimeout covers a wait that hit its bound or was cancelled
	// before the job reached a terminal status
	ErrTimeout = errors.New("wait for job timed out")
)
