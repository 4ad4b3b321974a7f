package shared

import "fmt"

var (
	// Generation request errors
	ErrAuthRequired        = fmt.Errorf("authentication required")
	ErrValidation          = fmt.Errorf("validation failed")
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrPersistence         = fmt.Errorf("persistence failed")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest  = fmt.Errorf("API request failed")
	ErrRateLimited = fmt.Errorf("rate limited")
	ErrNotFound    = fmt.Errorf("not found")
	ErrLLMResponse = fmt.Errorf("invalid LLM response")
	ErrTimeout     = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
