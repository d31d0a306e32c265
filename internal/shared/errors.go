package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Resolution and playback errors
	ErrNotFound           = fmt.Errorf("no catalog match")
	ErrNetwork            = fmt.Errorf("network request failed")
	ErrRateLimited        = fmt.Errorf("request budget exhausted")
	ErrPlayback           = fmt.Errorf("playback failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ErrorKind classifies err into one of the user-facing categories.
//
// Returns "" for nil and "error" for anything unclassified.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrPlayback):
		return "playback"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrMissingArgument):
		return "invalid_input"
	default:
		return "error"
	}
}
