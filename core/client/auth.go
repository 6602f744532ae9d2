package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"flow-client/core/models"
)

// oauthScope names the grants the client needs: storage reads and
// writes for uploads/downloads, and code execution for job submission
const oauthScope = "data:read data:create data:write code:all"

// Authenticate exchanges the client credentials for a bearer token and
// stores it for all subsequent calls. The grant uses a form-encoded
// body; every other call uses the token in an Authorization header.
// On failure the stored token is left untouched, so a client that was
// never authenticated stays unusable rather than sending empty bearers.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"scope":         {oauthScope},
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/authentication/v2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %s", ErrAuth, resp.Status)
	}

	var tok models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("%w: decoding token response: %v", ErrAuth, err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: token endpoint returned no access_token", ErrAuth)
	}

	c.setToken(tok.AccessToken)
	c.logger.Debug().Msg("authenticated")
	return nil
}
