package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"flow-client/core/models"
)

// UploadFile uploads a local file into the given storage space and
// resource slot and returns the permanent URN assigned to it. The
// upload takes three round trips: request signed upload URLs, PUT the
// bytes directly to the signed URL, then finalize the transaction with
// the etag the storage backend returned. Any failing sub-step aborts
// the whole upload; there is no partial-upload resume.
func (c *Client) UploadFile(ctx context.Context, localPath, spaceID, resourceID string) (string, error) {
	urls, err := c.requestUploadURLs(ctx, spaceID, resourceID)
	if err != nil {
		return "", err
	}
	if len(urls.URLs) == 0 {
		return "", fmt.Errorf("%w: service returned no upload urls for %s/%s", ErrUpload, spaceID, resourceID)
	}

	etag, err := c.putToSignedURL(ctx, urls.URLs[0].URL, localPath)
	if err != nil {
		return "", err
	}

	urn, err := c.completeUpload(ctx, spaceID, urls.Upload, etag)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("file", localPath).
		Str("space", spaceID).
		Str("resource", resourceID).
		Str("urn", urn).
		Msg("uploaded input file")
	return urn, nil
}

func (c *Client) requestUploadURLs(ctx context.Context, spaceID, resourceID string) (models.UploadURLs, error) {
	var out models.UploadURLs
	u := c.storageURL("/spaces/%s/resources/%s/upload-urls", pathEscape(spaceID), pathEscape(resourceID))
	if err := c.getJSON(ctx, u, &out); err != nil {
		return models.UploadURLs{}, fmt.Errorf("%w: requesting upload urls: %v", ErrUpload, err)
	}
	return out, nil
}

// putToSignedURL streams the file's bytes to the signed URL and
// returns the content digest (etag) the storage backend reports. The
// signed URL is pre-authorized, so no bearer header is sent.
func (c *Client) putToSignedURL(ctx context.Context, signedURL, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.ContentLength = info.Size()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: PUT to signed url: %v", ErrUpload, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: PUT to signed url: %s", ErrUpload, resp.Status)
	}

	etag := resp.Header.Get("Etag")
	if etag == "" {
		return "", fmt.Errorf("%w: signed url response carried no etag", ErrUpload)
	}
	return etag, nil
}

func (c *Client) completeUpload(ctx context.Context, spaceID string, tx models.UploadTransaction, etag string) (string, error) {
	in := models.CompleteUpload{
		ResourceID: tx.ResourceID,
		UploadID:   tx.ID,
		Parts:      []models.UploadPart{{PartID: 1, Etag: etag}},
	}

	var out models.UploadResult
	u := c.storageURL("/spaces/%s/uploads:complete", pathEscape(spaceID))
	if err := c.postJSON(ctx, u, in, &out); err != nil {
		return "", fmt.Errorf("%w: completing upload: %v", ErrUpload, err)
	}
	if out.URN == "" {
		return "", fmt.Errorf("%w: completion response carried no urn", ErrUpload)
	}
	return out.URN, nil
}
