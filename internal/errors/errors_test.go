package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSessionError(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		want string
	}{
		{"message only", NewSessionError("boom", nil), "session: boom"},
		{"with session", NewSessionError("panic: nil map", ErrSchedulerFault).WithSessionID("s-1"), "session s-1: panic: nil map: scheduler fault"},
		{"inactive", NewSessionError("status pending", ErrSessionInactive).WithSessionID("s-2"), "session s-2: status pending: session is not active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !IsUserFacing(tt.err) {
				t.Error("session errors are user facing")
			}
		})
	}

	err := fmt.Errorf("vote: %w", NewSessionError("voter v already voted in round 1", ErrAlreadyVoted))
	if !errors.Is(err, ErrAlreadyVoted) || errors.Is(err, ErrSchedulerFault) {
		t.Error("SessionError should match only its own cause")
	}
	var se *SessionError
	if !errors.As(err, &se) {
		t.Error("errors.As should find the SessionError")
	}
}

func TestCollaboratorError(t *testing.T) {
	err := NewCollaboratorError("generate", fmt.Errorf("connection reset")).WithProvider("anthropic")

	if got, want := err.Error(), "collaborator error [provider=anthropic]: generate failed: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
	if IsUserFacing(err) {
		t.Error("IsUserFacing() = true, want false")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("session", "abc")
	if got, want := err.Error(), "session 'abc' not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false, want true")
	}
	if !IsNotFound(fmt.Errorf("lookup: %w", err.WithCause(ErrSessionNotFound))) {
		t.Error("IsNotFound() on wrapped error = false, want true")
	}
	if !IsUserFacing(err) {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("choice must be A or B").WithField("choice").WithValue("C").WithCause(ErrInvalidChoice)
	if got, want := err.Error(), "validation error [field=choice, value=C]: choice must be A or B: invalid vote choice"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, ErrInvalidChoice) {
		t.Error("ValidationError should match ErrInvalidInput and its cause")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("generate verse", 8*time.Second)
	if got, want := err.Error(), "timeout error: generate verse (timeout: 8s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	if !IsRetryable(err) {
		t.Error("TimeoutError should be retryable")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("disk full"), false},
		{"wrapped inactive", Wrap(ErrSessionInactive, "registry is shut down"), true},
		{"wrapped already voted", Wrap(ErrAlreadyVoted, "vote"), true},
		{"not configured", Wrap(ErrNotConfigured, "generator is required"), false},
		{"collaborator wrapping timeout", NewCollaboratorError("screen", ErrTimeout), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable_Plain(t *testing.T) {
	if IsRetryable(nil) || IsNotFound(nil) {
		t.Error("nil error should not classify")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", ErrTimeout)) {
		t.Error("error wrapping ErrTimeout should be retryable")
	}
	if IsRetryable(errors.New("x")) {
		t.Error("plain errors are not retryable")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrSessionNotFound, "get %s", "s-1")
	if err.Error() != "get s-1: session not found" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !errors.Is(Wrap(ErrAlreadyVoted, "vote"), ErrAlreadyVoted) {
		t.Error("Wrap should preserve the chain")
	}
}
