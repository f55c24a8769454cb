package domain

import "errors"

var (
	// ErrPRNotFound: the pull request or repository is absent or
	// inaccessible on the platform, or a tracked entry is missing from
	// the store.
	ErrPRNotFound = errors.New("pull request not found")

	// ErrRateLimited: the platform itself signaled throttling, distinct
	// from the engine's own limiter which only delays.
	ErrRateLimited = errors.New("platform rate limit exceeded")

	// ErrAuth: missing or rejected credential, fatal for that platform
	// until reconfigured.
	ErrAuth = errors.New("missing or invalid access token")

	// ErrTransient: timeout or connection failure, retryable.
	ErrTransient = errors.New("transient network failure")

	// ErrValidation: malformed add/remove command, rejected at the
	// service boundary before reaching the engine.
	ErrValidation = errors.New("validation failed")

	// ErrConfig: missing or invalid configuration at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrUnknownPlatform: a key names a platform no client is
	// registered for.
	ErrUnknownPlatform = errors.New("unknown platform")
)
