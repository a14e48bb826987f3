package authclient

import (
	"io"
	"net/http"
	"strings"
)

// authTransport attaches the bearer token and, when an authenticated request
// comes back 401, refreshes and replays the request exactly once. Requests
// to the credential endpoints themselves are passed through untouched: a 401
// from login is a wrong password, not a stale token, and the refresh call
// must never recurse into itself.
type authTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.client.store.Token()

	out := req
	if token != "" {
		out = req.Clone(req.Context())
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, nil
	}
	if isCredentialPath(req.URL.Path) {
		return resp, nil
	}
	// Replaying needs a rewindable body.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	fresh, refreshErr := t.client.doRefresh(req.Context())
	if refreshErr != nil {
		// The caller sees the original 401; local state is already cleared
		// when the failure was terminal.
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := req.Clone(req.Context())
	retry.Header.Set("Authorization", "Bearer "+fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

func isCredentialPath(path string) bool {
	switch {
	case strings.HasSuffix(path, "/auth/login"),
		strings.HasSuffix(path, "/auth/register"),
		strings.HasSuffix(path, "/auth/refresh"):
		return true
	}
	return false
}
