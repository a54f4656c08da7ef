package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pysugar/oauth-connect/internal/util"
)

// ErrMissingAPIKey is returned before any request when no API key is configured.
var ErrMissingAPIKey = errors.New("UNIPILE_API_KEY is not set")

// Error is a failed call to the Unipile API. StatusCode is 0 when the request
// never produced a response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("unipile %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("unipile %s (%d): %s", e.Op, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AuthLinkError is a failed hosted auth link request. The message is meant
// for operators and always includes the upstream status code.
type AuthLinkError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthLinkError) Error() string { return e.Message }

func (e *AuthLinkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// newAuthLinkError turns a non-2xx hosted link response into an actionable message.
func newAuthLinkError(status int, body []byte) *AuthLinkError {
	msg := errorMessage(body)
	var text string
	switch status {
	case http.StatusBadRequest:
		if msg == "" {
			msg = "invalid request"
		}
		text = fmt.Sprintf("Unipile error 400 - invalid request: %s. Check that the API key is correct and the parameters are valid. Details: %s",
			msg, util.TruncateBytes(body))
	case http.StatusUnauthorized:
		text = "Unipile error 401 - invalid or missing API key. Check UNIPILE_API_KEY in your .env file"
	case http.StatusNotFound:
		text = "Unipile error 404 - endpoint not found. Check that UNIPILE_BASE_URL points at your Unipile DSN"
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		text = fmt.Sprintf("Unipile error (%d): %s", status, msg)
	}
	return &AuthLinkError{StatusCode: status, Message: text}
}

// errorMessage probes the usual error fields of a JSON error body and falls
// back to the raw body.
func errorMessage(body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil {
		for _, key := range []string{"message", "error", "detail", "title"} {
			if s, ok := doc[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return util.TruncateBytes(body)
}
