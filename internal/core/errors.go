package core

import "errors"

// Error codes for client-visible errors.
const (
	ErrCodeInvalidRoom    = "invalid_room"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeJoinFailed     = "join_failed"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal"
)

// ErrHubStopped is returned by hub queries once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError extracts a CoreError from err, falling back to an internal error.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeInternal, err.Error())
}
