package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrSessionExpired is the terminal refresh failure: the server rejected the
// refresh session or the CSRF proof, or the local cookies are gone. The only
// recovery is a fresh login.
var ErrSessionExpired = errors.New("session expired, login required")

// APIError is a structured error answer from the server.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// The server answers failures as {"error":{"message","statusCode"}}, but
// some endpoints historically used a bare {"message"}; both shapes are
// accepted.
type errorEnvelope struct {
	Error *struct {
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
	Message string `json:"message"`
}

// decodeAPIError turns a non-2xx response into an *APIError, falling back to
// the HTTP status text when no structured body is present.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	if env.Error != nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		if env.Error.StatusCode != 0 {
			apiErr.StatusCode = env.Error.StatusCode
		}
		return apiErr
	}
	if env.Message != "" {
		apiErr.Message = env.Message
	}
	return apiErr
}
