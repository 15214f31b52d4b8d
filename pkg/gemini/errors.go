package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Marker errors for classifying failures with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrUpstream           = errors.New("upstream failure")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Reason     string
	Message    string
	marker     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini: http %d %s: %s", e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("gemini: http %d: %s", e.StatusCode, msg)
}

// Unwrap exposes the classification marker.
func (e *APIError) Unwrap() error { return e.marker }

// Kind is the coarse failure category surfaced to users.
type Kind string

const (
	KindNone               Kind = ""
	KindInvalidCredentials Kind = "invalid_credentials"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindUpstream           Kind = "upstream"
)

// Classify maps err to a Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	default:
		return KindUpstream
	}
}

func newAPIError(statusCode int, env errorEnvelope, body string) *APIError {
	e := &APIError{
		StatusCode: statusCode,
		Status:     env.Error.Status,
		Message:    strings.TrimSpace(env.Error.Message),
	}
	for _, d := range env.Error.Details {
		if d.Reason != "" {
			e.Reason = d.Reason
			break
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(body)
	}
	e.marker = classifyResponse(e)
	return e
}

func classifyResponse(e *APIError) error {
	lower := strings.ToLower(e.Message)
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden,
		e.Reason == "API_KEY_INVALID",
		strings.Contains(lower, "api key not valid"):
		return ErrInvalidCredentials
	case e.StatusCode == http.StatusTooManyRequests,
		e.Status == "RESOURCE_EXHAUSTED",
		strings.Contains(lower, "quota"):
		return ErrQuotaExceeded
	default:
		return ErrUpstream
	}
}
