package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable covers network and HTTP failures from the question source.
	ErrProviderUnavailable = errors.New("question provider unavailable")
	// ErrRateLimited is returned when the question source asks us to slow down.
	// It always wraps ErrProviderUnavailable.
	ErrRateLimited = fmt.Errorf("%w: too many requests", ErrProviderUnavailable)
	// ErrMalformedResponse indicates the provider answered with a payload we cannot decode.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrStorageUnavailable wraps persistence read/write failures.
	ErrStorageUnavailable = errors.New("progress storage unavailable")
	// ErrNoProgress is returned by progress slots that hold nothing.
	ErrNoProgress = errors.New("no saved progress")
	// ErrSubmissionFailed is surfaced to the presentation layer so it can offer a retry.
	ErrSubmissionFailed = errors.New("quiz submission failed")
	// ErrInvalidTransition marks an operation the current session state does not permit.
	ErrInvalidTransition = errors.New("invalid quiz transition")
	// ErrSessionNotFound is returned when no quiz session is running for a user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidCredentials is returned by the credential check on a bad username/password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned when a session token is missing, unknown or expired.
	ErrUnauthenticated = errors.New("not authenticated")
)
