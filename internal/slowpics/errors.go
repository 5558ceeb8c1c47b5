package slowpics

import (
	"encoding/json"
	"fmt"
)

// PermissionError reports a 401/403 from the remote service. It carries
// the mode label ("clone" or "edit") and any API-supplied detail so the
// surfaced message can tell the user to re-authenticate.
type PermissionError struct {
	Mode   string
	Detail string
}

func (e *PermissionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("no %s access for this comparison (403/401). %s", e.Mode, e.Detail)
	}
	return fmt.Sprintf("no %s access for this comparison (403/401)", e.Mode)
}

// RateLimitError reports an HTTP 429.
type RateLimitError struct {
	Mode   string
	Detail string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate-limited: %s", e.Mode, e.Detail)
}

// HTTPError reports any other non-2xx response.
type HTTPError struct {
	Mode   string
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Mode, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s request failed with status %d", e.Mode, e.Status)
}

// ValidationError reports a local consistency failure (count mismatch,
// malformed DTO shape). Validation failures never reach the network.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// extractAPIError pulls {error, message} fields out of a JSON error
// body. Returns "" when the body is not a JSON object or has neither.
func extractAPIError(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	errVal, _ := payload["error"].(string)
	msgVal, _ := payload["message"].(string)
	switch {
	case errVal != "" && msgVal != "":
		return errVal + ": " + msgVal
	case msgVal != "":
		return msgVal
	case errVal != "":
		return errVal
	}
	return ""
}

// statusError translates a non-2xx response into the typed error for
// the taxonomy: permission, rate limit, or generic HTTP.
func statusError(mode string, status int, body []byte) error {
	detail := extractAPIError(body)
	switch {
	case status == 401 || status == 403:
		return &PermissionError{Mode: mode, Detail: detail}
	case status == 429:
		return &RateLimitError{Mode: mode, Detail: detail}
	default:
		return &HTTPError{Mode: mode, Status: status, Detail: detail}
	}
}
