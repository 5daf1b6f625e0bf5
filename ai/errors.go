package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingAPIKey    = errors.New("cohere API key not found")
	ErrEmptyResponse    = errors.New("no text content in model response")
	ErrMalformedJSON    = errors.New("model returned malformed JSON")
	ErrQAPairsExhausted = errors.New("failed to generate valid Q&A pairs after multiple attempts")
)

// APIError is a non-2xx answer from the model API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error: status=%d request_id=%s message=%s", e.StatusCode, e.RequestID, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// AuthError indicates 401/403; retrying will not help.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }
func (e *AuthError) Unwrap() error { return e.APIError }

type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}
func (e *RateLimitError) Unwrap() error { return e.APIError }

type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }
func (e *BadRequestError) Unwrap() error { return e.APIError }

type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }
func (e *ServerError) Unwrap() error { return e.APIError }

// IsPermanent reports errors that a retry cannot fix.
func IsPermanent(err error) bool {
	var auth *AuthError
	var bad *BadRequestError
	return errors.Is(err, ErrMissingAPIKey) || errors.As(err, &auth) || errors.As(err, &bad)
}
