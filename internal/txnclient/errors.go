package txnclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"expenses/internal/core"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindTransport means the request never got an HTTP response.
	KindTransport Kind = iota
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus
	// KindValidation means the response body did not have the expected shape.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindValidation:
		return "validation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FetchError is returned by every Client method.
type FetchError struct {
	Kind    Kind
	Status  int
	Details string
	Issues  core.ValidationErrors
	Err     error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%d: %s", e.Status, e.Details)
	case KindValidation:
		return "invalid response from backend:\n" + e.Issues.Error()
	}
	return fmt.Sprintf("error fetching data: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func transportError(err error) *FetchError {
	return &FetchError{Kind: KindTransport, Err: err}
}

func validationError(issues core.ValidationErrors) *FetchError {
	return &FetchError{Kind: KindValidation, Issues: issues, Err: issues}
}

// statusError reads the backend {"details": ...} body, falling back to
// the raw text for non-JSON bodies.
func statusError(status int, body []byte) *FetchError {
	details := strings.TrimSpace(string(body))
	var payload struct {
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Details != "" {
		details = payload.Details
	}
	return &FetchError{Kind: KindStatus, Status: status, Details: details}
}
