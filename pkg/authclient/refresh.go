package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// doRefresh exchanges the refresh cookie for a new access token. Concurrent
// callers coalesce into one network call; every waiter gets the same token
// or the same error. A 401 or 403 from the server is terminal: the local
// session is cleared and ErrSessionExpired comes back. Any other failure is
// transient and leaves local state alone.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refreshOnce(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) refreshOnce(ctx context.Context) (string, error) {
	// Double-submit proof: the readable CSRF cookie is mirrored into the
	// header of the same name. Without the cookie there is nothing to prove
	// and the session is unrecoverable.
	csrf := c.csrfToken()
	if csrf == "" {
		c.clearLocal()
		return "", ErrSessionExpired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("/auth/refresh").String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(c.cfg.CSRFCookieName, csrf)

	resp, err := c.refreshc.Do(req)
	if err != nil {
		return "", fmt.Errorf("authclient: refresh request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.clearLocal()
		return "", ErrSessionExpired
	default:
		return "", decodeAPIError(resp)
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("authclient: decoding refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("authclient: refresh response carried no access token")
	}

	if err := c.store.SetToken(out.AccessToken); err != nil {
		return "", err
	}
	if err := c.store.SetAuthed(true); err != nil {
		return "", err
	}
	c.persistAuthCookies(resp)
	return out.AccessToken, nil
}
