package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production endpoint of the compute service
const DefaultBaseURL = "https://developer.api.autodesk.com"

// DefaultQueueID is the caller's personal queue
const DefaultQueueID = "@default"

// Options configures a Client. The zero value of every field has a
// usable default except ClientID and ClientSecret.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	QueueID      string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Client wraps the remote compute service's REST surface. The
// configuration is immutable after construction; the bearer token is
// the only mutable state, guarded for the transparent re-auth hook.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	queueID      string
	httpc        *http.Client
	logger       zerolog.Logger

	mu    sync.Mutex
	token string
}

// New creates a client from opts. No network call is made; callers
// must Authenticate before invoking any other operation.
func New(opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrAuth)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.QueueID == "" {
		opts.QueueID = DefaultQueueID
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		baseURL:      opts.BaseURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		queueID:      opts.QueueID,
		httpc:        opts.HTTPClient,
		logger:       opts.Logger,
	}, nil
}

// QueueID returns the queue this client submits to
func (c *Client) QueueID() string {
	return c.queueID
}

func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", fmt.Errorf("%w: not authenticated", ErrAuth)
	}
	return c.token, nil
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// doAuthorized sends one bearer-authorized request. On a 401 the
// client re-runs the credentials grant once and retries; a second 401
// is returned to the caller as-is. The body is buffered so the retry
// can replay it.
func (c *Client) doAuthorized(ctx context.Context, method, rawURL string, body []byte, contentType string) (*http.Response, error) {
	resp, err := c.send(ctx, method, rawURL, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	drain(resp)
	c.logger.Debug().Str("url", rawURL).Msg("token rejected, re-authenticating")
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, rawURL, body, contentType)
}

func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, contentType string) (*http.Response, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpc.Do(req)
}

// getJSON performs an authorized GET and decodes the response body
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.doAuthorized(ctx, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON performs an authorized POST of in and decodes the response
// body into out
func (c *Client) postJSON(ctx context.Context, rawURL string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.doAuthorized(ctx, http.MethodPost, rawURL, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: %s", rawURL, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) storageURL(format string, args ...any) string {
	return c.baseURL + "/flow/storage/v1" + fmt.Sprintf(format, args...)
}

func (c *Client) computeURL(format string, args ...any) string {
	return c.baseURL + "/flow/compute/v1" + fmt.Sprintf(format, args...)
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}

// drain discards and closes a response body so the connection can be
// reused
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
