package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"flow-client/core/models"
)

// downloadChunkSize bounds the copy buffer so large artifacts never
// sit fully in memory
const downloadChunkSize = 64 * 1024

// logFilePrefix is prepended to downloaded log basenames so logs and
// outputs can share a directory without colliding
const logFilePrefix = "joblog_"

// DownloadFile resolves a signed download URL for the resource and
// streams its bytes to destPath. A partially written file is removed
// on failure so a corrupt download is never left looking complete.
func (c *Client) DownloadFile(ctx context.Context, spaceID, resourceID, destPath string) error {
	var signed models.DownloadURL
	u := c.storageURL("/spaces/%s/resources/%s/download-url", pathEscape(spaceID), pathEscape(resourceID))
	if err := c.getJSON(ctx, u, &signed); err != nil {
		return fmt.Errorf("%w: resolving download url for %s/%s: %v", ErrDownload, spaceID, resourceID, err)
	}

	if err := c.streamToFile(ctx, signed.URL, destPath); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrDownload, spaceID, resourceID, err)
	}

	c.logger.Info().Str("dest", destPath).Msg("downloaded file")
	return nil
}

// streamToFile GETs a signed URL and copies the body to destPath in
// bounded chunks. The signed URL is pre-authorized, so no bearer
// header is sent.
func (c *Client) streamToFile(ctx context.Context, signedURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET signed url: %s", resp.Status)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}

	buf := make([]byte, downloadChunkSize)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		f.Close()
		os.Remove(destPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return err
	}
	return nil
}

// DownloadJobLogs downloads every log artifact of a job into dir
// (created if absent) and returns the written paths in listing order.
// On failure the paths written so far are returned alongside the error.
func (c *Client) DownloadJobLogs(ctx context.Context, jobID, dir string) ([]string, error) {
	records, err := c.listArtifacts(ctx, jobID, "logs")
	if err != nil {
		return nil, err
	}
	return c.downloadArtifacts(ctx, records, dir, logFilePrefix)
}

// DownloadJobOutputs downloads every output artifact of a job into dir
// (created if absent) and returns the written paths in listing order.
// On failure the paths written so far are returned alongside the error.
func (c *Client) DownloadJobOutputs(ctx context.Context, jobID, dir string) ([]string, error) {
	records, err := c.listArtifacts(ctx, jobID, "outputs")
	if err != nil {
		return nil, err
	}
	return c.downloadArtifacts(ctx, records, dir, "")
}

func (c *Client) listArtifacts(ctx context.Context, jobID, kind string) ([]models.ArtifactRecord, error) {
	var out models.ArtifactList
	u := c.computeURL("/queues/%s/jobs/%s/%s", pathEscape(c.queueID), pathEscape(jobID), kind)
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("%w: listing %s for job %s: %v", ErrDownload, kind, jobID, err)
	}
	return out.Results, nil
}

func (c *Client) downloadArtifacts(ctx context.Context, records []models.ArtifactRecord, dir, prefix string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	paths := make([]string, 0, len(records))
	for _, rec := range records {
		dest := filepath.Join(dir, prefix+filepath.Base(rec.Path))
		if err := c.DownloadFile(ctx, rec.SpaceID, rec.ResourceID, dest); err != nil {
			return paths, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
