package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUnknownPlatform    = fmt.Errorf("unknown platform")
	ErrNoCandidates       = fmt.Errorf("no candidates")

	// Store errors
	ErrPlaylistNotFound  = fmt.Errorf("playlist not found")
	ErrTrackNotFound     = fmt.Errorf("track not found")
	ErrEntryNotFound     = fmt.Errorf("queue entry not found")
	ErrNoPendingEntries  = fmt.Errorf("no pending entries")
	ErrNotMirror         = fmt.Errorf("playlist is not a remote mirror")
	ErrPendingOperations = fmt.Errorf("playlist has unsynced operations")

	// Scheduler errors
	ErrAlreadyRunning = fmt.Errorf("sync already running")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// TransientRemoteError is a network or server-side failure of a remote call.
//
// Entries failing with it are marked failed and left for a manual retry.
type TransientRemoteError struct {
	Op         string
	StatusCode int // zero for network errors
	Err        error
}

func (e *TransientRemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient remote error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient remote error: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }

// AuthExpiredError reports a rejected credential. Every remaining entry in the drain scope fails with it.
type AuthExpiredError struct {
	Op  string
	Err error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s: authentication expired: %v", e.Op, e.Err)
}

func (e *AuthExpiredError) Unwrap() error { return e.Err }

// RemoteError is a non-retryable client error returned by the remote API (4xx other than auth).
type RemoteError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: remote error (status %d): %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: remote error (status %d)", e.Op, e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return ErrAPIRequest }

// NoMatchError is recorded on unmatched results. It never fails a drain or an import.
type NoMatchError struct {
	Title string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no usable candidate for %q", e.Title)
}

func (e *NoMatchError) Unwrap() error { return ErrNoCandidates }

// ValidationError describes a malformed payload or argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// IsTransient reports whether err contains a [TransientRemoteError].
func IsTransient(err error) bool {
	var t *TransientRemoteError
	return errors.As(err, &t)
}

// IsAuthExpired reports whether err contains an [AuthExpiredError].
func IsAuthExpired(err error) bool {
	var a *AuthExpiredError
	return errors.As(err, &a)
}

// IsValidation reports whether err contains a [ValidationError].
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
