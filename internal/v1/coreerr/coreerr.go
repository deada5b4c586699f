// Package coreerr defines the error taxonomy shared by every core component
// (OTP sessions, pair rooms, RTC sessions, voice sessions). Handlers never
// inspect component internals to decide a status code; they translate a
// *Error's Kind directly.
package coreerr

import "fmt"

// Kind classifies a failure the way the HTTP layer needs to see it, not the
// way any one component happens to produce it.
type Kind int

const (
	// KindNotFound means the entity is absent or already deleted.
	KindNotFound Kind = iota
	// KindValidation means the request body or a field was malformed.
	KindValidation
	// KindUnauthorized means an OTP (or similar credential) did not match.
	KindUnauthorized
	// KindConflict means a state-machine precondition was violated.
	KindConflict
	// KindGone means the entity time-expired.
	KindGone
	// KindTimeout means a bounded wait exceeded its deadline.
	KindTimeout
	// KindInternal means an invariant was violated or a channel was dropped.
	KindInternal
)

// Error is the single error type every component returns. It carries a Kind
// the HTTP layer maps to a status code, and a short message safe to show to
// a caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func Gone(format string, args ...any) *Error {
	return New(KindGone, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}
