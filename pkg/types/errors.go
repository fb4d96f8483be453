package types

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a failure surfaced to callers.
type ErrorKind string

const (
	ErrKindConfiguration     ErrorKind = "configuration_error"
	ErrKindWorkspace         ErrorKind = "workspace_error"
	ErrKindDependencyInstall ErrorKind = "dependency_install_error"
	ErrKindExecutionTimeout  ErrorKind = "execution_timeout"
	ErrKindNotFound          ErrorKind = "not_found"
	ErrKindAgentProtocol     ErrorKind = "agent_protocol_error"
	ErrKindInternal          ErrorKind = "internal_error"
	ErrKindInvalidRequest    ErrorKind = "invalid_request"
	ErrKindInstanceBusy      ErrorKind = "instance_busy"
)

// ErrNotFound is the sentinel matched by every NotFound error.
var ErrNotFound = errors.New("not found")

// Error is the typed error returned across package boundaries.
// Reason is a stable, human-readable message safe to show to API clients.
// Output optionally carries subprocess output (install or test logs).
type Error struct {
	Err    error
	Kind   ErrorKind
	Reason string
	Output string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match NotFound errors that wrap
// something else.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == ErrKindNotFound
}

// NewError creates a typed error.
func NewError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// ConfigurationError reports missing or invalid settings.
func ConfigurationError(reason string) *Error {
	return NewError(ErrKindConfiguration, reason, nil)
}

// WorkspaceError reports a filesystem failure in an instance workspace.
func WorkspaceError(reason string, err error) *Error {
	return NewError(ErrKindWorkspace, reason, err)
}

// DependencyInstallError reports a failed package install, with its output.
func DependencyInstallError(reason, output string) *Error {
	e := NewError(ErrKindDependencyInstall, reason, nil)
	e.Output = output
	return e
}

// ExecutionTimeoutError reports a subprocess that exceeded its deadline.
func ExecutionTimeoutError(reason, output string) *Error {
	e := NewError(ErrKindExecutionTimeout, reason, nil)
	e.Output = output
	return e
}

// NotFoundError reports a missing test or workspace.
func NotFoundError(reason string) *Error {
	return NewError(ErrKindNotFound, reason, ErrNotFound)
}

// AgentProtocolError reports a malformed capability call from the agent.
func AgentProtocolError(reason string) *Error {
	return NewError(ErrKindAgentProtocol, reason, nil)
}

// InvalidRequestError reports a request that is missing required input.
func InvalidRequestError(reason string) *Error {
	return NewError(ErrKindInvalidRequest, reason, nil)
}

// InstanceBusyError reports an id already owned by a running session. The
// caller never held the id, so it must not release or clean it up.
func InstanceBusyError(id string, err error) *Error {
	return NewError(ErrKindInstanceBusy, fmt.Sprintf("instance %s is already running", id), err)
}

// InternalError wraps an unexpected failure.
func InternalError(reason string, err error) *Error {
	return NewError(ErrKindInternal, reason, err)
}

// KindOf returns the kind of a typed error anywhere in err's chain,
// or ErrKindInternal when there is none.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return ErrKindNotFound
	}
	return ErrKindInternal
}

// IsKind reports whether err carries a typed error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
