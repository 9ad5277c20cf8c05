package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/KetonAI/backend/internal/infrastructure/resilience"
)

// ErrPromptBlocked reports a prompt refused by the upstream safety filters.
var ErrPromptBlocked = errors.New("prompt blocked")

// APIError is an error status returned by the Gemini API.
type APIError struct {
	StatusCode int
	// Status is the canonical error code, e.g. RESOURCE_EXHAUSTED.
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini error: status %d", e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini error (%d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether the same request might succeed later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// callerFault reports whether the request itself was refused, as opposed
// to the service or its credential failing.
func (e *APIError) callerFault() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return e.StatusCode >= http.StatusBadRequest && !e.Temporary()
}

// fromSDK converts genai API errors to *APIError and leaves others alone.
func fromSDK(err error) error {
	var sdkErr genai.APIError
	if errors.As(err, &sdkErr) {
		return &APIError{StatusCode: sdkErr.Code, Status: sdkErr.Status, Message: sdkErr.Message}
	}
	var sdkPtr *genai.APIError
	if errors.As(err, &sdkPtr) && sdkPtr != nil {
		return &APIError{StatusCode: sdkPtr.Code, Status: sdkPtr.Status, Message: sdkPtr.Message}
	}
	return err
}

// Verdict classifies an Open error for the circuit breaker. Requests the
// caller got wrong and blocked prompts prove the backend is answering, so
// they count as successes. A caller hanging up is ignored.
func Verdict(err error) resilience.Verdict {
	if err == nil {
		return resilience.Success
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Ignore
	}
	if errors.Is(err, ErrPromptBlocked) {
		return resilience.Success
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.callerFault() {
		return resilience.Success
	}
	return resilience.Failure
}
