// Package errors holds the error values shared by the battle engine and the
// helpers that classify them for callers.
//
// Sentinels name a condition and are matched with Is. The typed errors carry
// context (session id, resource, field, collaborator) and wrap a sentinel or
// an underlying cause:
//
//	err := errors.NewSessionError("status pending", errors.ErrSessionInactive).WithSessionID(id)
//	errors.Is(err, errors.ErrSessionInactive) // true
//
// IsRetryable reports transient collaborator trouble; IsUserFacing reports
// whether a message may be returned to a command caller verbatim.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-exported so callers only need this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Session sentinels.
var (
	ErrSessionNotFound = New("session not found")
	ErrSessionInactive = New("session is not active")
	ErrSchedulerFault  = New("scheduler fault")
)

// Vote sentinels.
var (
	ErrAlreadyVoted  = New("already voted")
	ErrInvalidChoice = New("invalid vote choice")
)

// Collaborator sentinels.
var (
	// ErrEmptyOutput means a collaborator answered with nothing usable.
	ErrEmptyOutput = New("collaborator returned empty output")
	// ErrNotConfigured means a binding is missing credentials or setup.
	ErrNotConfigured = New("collaborator not configured")
)

// General sentinels.
var (
	ErrTimeout      = New("operation timed out")
	ErrCanceled     = New("operation canceled")
	ErrInvalidInput = New("invalid input")
)

// publicSentinels describe rejected commands; their messages carry nothing
// internal and may be shown to callers.
var publicSentinels = []error{
	ErrSessionNotFound,
	ErrSessionInactive,
	ErrAlreadyVoted,
	ErrInvalidChoice,
	ErrInvalidInput,
}

// classified is implemented by every typed error in this package.
type classified interface {
	error
	retryable() bool
	userFacing() bool
}

type baseError struct {
	message   string
	cause     error
	transient bool
	public    bool
}

func (e *baseError) Unwrap() error    { return e.cause }
func (e *baseError) retryable() bool  { return e.transient }
func (e *baseError) userFacing() bool { return e.public }

// withCause renders "prefix: message[: cause]".
func (e *baseError) withCause(prefix string) string {
	msg := e.message
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// SessionError is a command or scheduler failure tied to one session.
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError returns a SessionError wrapping cause, usually a session or
// vote sentinel.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{baseError: baseError{message: message, cause: cause, public: true}}
}

// WithSessionID records the session the error belongs to.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

func (e *SessionError) Error() string {
	prefix := "session"
	if e.SessionID != "" {
		prefix = "session " + e.SessionID
	}
	return e.withCause(prefix)
}

// CollaboratorError is a failure reported by generation, screening, audio
// synthesis, adjudication or persistence. It is transient: the engine falls
// back and carries on. Its message is not shown to callers.
type CollaboratorError struct {
	baseError
	Operation string
	Provider  string
}

// NewCollaboratorError returns a CollaboratorError for the named operation.
func NewCollaboratorError(operation string, cause error) *CollaboratorError {
	return &CollaboratorError{
		baseError: baseError{message: operation + " failed", cause: cause, transient: true},
		Operation: operation,
	}
}

// WithProvider records the binding that failed.
func (e *CollaboratorError) WithProvider(provider string) *CollaboratorError {
	e.Provider = provider
	return e
}

func (e *CollaboratorError) Error() string {
	prefix := "collaborator error"
	if e.Provider != "" {
		prefix = fmt.Sprintf("collaborator error [provider=%s]", e.Provider)
	}
	return e.withCause(prefix)
}

// NotFoundError reports a resource missing from every tier.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError returns a NotFoundError such as "session 'abc' not found".
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError:    baseError{message: fmt.Sprintf("%s '%s' not found", resourceType, resourceID), public: true},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause sets the underlying error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

func (e *NotFoundError) Error() string { return e.withCause("") }

// ValidationError reports invalid command input. It matches ErrInvalidInput.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError: baseError{message: message, public: true}}
}

// WithField names the offending field.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause sets the underlying error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return e.withCause(prefix)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// TimeoutError reports a collaborator call that outlived its deadline. It
// matches ErrTimeout and is retryable.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError returns a TimeoutError for operation bounded by duration.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{message: operation, transient: true, public: true},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause sets the underlying error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var c classified
	if As(err, &c) {
		return c.retryable()
	}
	return Is(err, ErrTimeout)
}

// IsUserFacing reports whether err's message may be returned to a command
// caller as is.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var c classified
	if As(err, &c) {
		return c.userFacing()
	}
	for _, s := range publicSentinels {
		if Is(err, s) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err describes a missing resource.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return As(err, &notFound) || Is(err, ErrSessionNotFound)
}

// Wrap adds context to err, preserving the chain. Wrap(nil) is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
