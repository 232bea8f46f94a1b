package llm

import "errors"

var (
	// ErrMissingAPIKey indicates no model API key was configured.
	ErrMissingAPIKey = errors.New("model api key not configured")

	// ErrUnavailable indicates the model API is unreachable.
	ErrUnavailable = errors.New("model api unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("model request timed out")

	// ErrInvalidOutput indicates the model response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid model output format")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("model retry attempts exhausted")
)
