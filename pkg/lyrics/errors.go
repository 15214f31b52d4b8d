package lyrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/versewright/versewright/pkg/gemini"
)

// ErrInvalidInput marks requests rejected before any remote call was made.
var ErrInvalidInput = errors.New("invalid input")

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// ErrorKind classifies an operation failure for presentation.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidInput       ErrorKind = "invalid_input"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
	KindCanceled           ErrorKind = "canceled"
	KindGeneric            ErrorKind = "generic"
)

// Kind returns the category of err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	switch gemini.Classify(err) {
	case gemini.KindInvalidCredentials:
		return KindInvalidCredentials
	case gemini.KindQuotaExceeded:
		return KindQuotaExceeded
	default:
		return KindGeneric
	}
}

// UserMessage renders err as a message suitable for end users.
func UserMessage(err error) string {
	switch Kind(err) {
	case KindNone:
		return ""
	case KindInvalidInput:
		return fmt.Sprintf("Invalid input: %v", err)
	case KindInvalidCredentials:
		return "The Gemini API key is missing or not valid. Check the configuration and try again."
	case KindQuotaExceeded:
		return "The Gemini API quota has been exceeded. Please try again later."
	case KindCanceled:
		return "The request was cancelled."
	default:
		return fmt.Sprintf("Generation failed: %v", err)
	}
}
