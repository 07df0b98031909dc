package lastfm

import (
	"errors"
	"fmt"
)

// Error represents a Last.fm API error.
//
// The Error type provides structured error information including
// the Last.fm error code and message. It implements error, and
// provides additional methods for retry logic.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error with the same code.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if the error is temporary and the request
// may succeed when repeated.
//
// The following Last.fm error codes are considered temporary:
//   - 8: Operation failed - most likely the backend service failed
//   - 11: Service Offline - temporarily unavailable
//   - 16: Service Temporarily Unavailable
//   - 29: Rate limit exceeded
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeOperationFailed, ErrCodeServiceOffline, ErrCodeTempUnavailable, ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

// Predefined errors for common cases.
var (
	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("lastfm: invalid configuration")

	// ErrEmptyUsername is returned by user methods called without a user.
	ErrEmptyUsername = errors.New("lastfm: username is required")

	// ErrUserNotFound matches the API error returned for unknown users.
	ErrUserNotFound = &Error{Code: ErrCodeInvalidParameters}
)

// IsTemporary reports whether err is worth repeating: network failures,
// server-side HTTP statuses and temporary Last.fm error codes.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}

	var lastfmErr *Error
	if errors.As(err, &lastfmErr) {
		return lastfmErr.Temporary()
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return IsNetworkError(err)
}
