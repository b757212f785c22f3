package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
	// Detail is the "detail" field of the body, set by the auth endpoints.
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError means the request got no HTTP response at all.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: no response: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsNetwork returns true if err (or any wrapped error) is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Detail returns the server's "detail" message carried by err, if any.
func Detail(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail
	}
	return ""
}

// Messages shown to the user.
const (
	MsgNoResponse = "No response from server. Please check your connection and try again."
	MsgUnexpected = "An unexpected error occurred. Please try again."
)

// UserMessage renders err for display, telling "the server never answered"
// apart from "the server answered with an error status".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsNetwork(err) {
		return MsgNoResponse
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return fmt.Sprintf("Server error (%d)", httpErr.StatusCode)
	}
	return MsgUnexpected
}

// newHTTPError extracts a readable message from an error body. The API uses
// {"error": ...} for lookups, {"detail": ...} for auth and per-field lists
// for validation failures.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status}

	var fields map[string]any
	if json.Unmarshal(body, &fields) == nil {
		if s, ok := fields["detail"].(string); ok {
			e.Detail = s
		}
		for _, key := range []string{"error", "detail", "message"} {
			if s, ok := fields[key].(string); ok && s != "" {
				e.Message = s
				return e
			}
		}
		if msg := fieldErrors(fields); msg != "" {
			e.Message = msg
			return e
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		e.Message = text
		return e
	}
	e.Message = http.StatusText(status)
	return e
}

// fieldErrors flattens {"field": ["msg", ...]} into "field: msg; ...".
func fieldErrors(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		list, ok := fields[k].([]any)
		if !ok {
			continue
		}
		var msgs []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			parts = append(parts, k+": "+strings.Join(msgs, " "))
		}
	}
	return strings.Join(parts, "; ")
}
