// Package direrr renders the engine's error taxonomy as typed values: a
// single Error struct whose Kind names the taxonomy member, carrying the
// offending field path or subject and
// wrapping an underlying cause where one exists. This generalizes the
// teacher's per-subsystem error types (systemd.Error, systemd.ConnectionError,
// systemd.UnitNotFoundError) into a single taxonomy spanning every
// component instead of just systemd lifecycle calls.
package direrr

import "fmt"

// Kind identifies which taxonomy member an error belongs to.
type Kind int

// Taxonomy members.
const (
	KindInvalidConfig Kind = iota
	KindInvalidArgs
	KindNotFound
	KindExec
	KindUIDExhausted
	KindSubRangeExhausted
	KindLingerFailed
	KindServiceStartFailed
	KindServiceStopFailed
	KindServiceReloadFailed
	KindContainer
	KindRootRequired
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindInvalidArgs:
		return "InvalidArgs"
	case KindNotFound:
		return "NotFound"
	case KindExec:
		return "Exec"
	case KindUIDExhausted:
		return "UIDExhausted"
	case KindSubRangeExhausted:
		return "SubRangeExhausted"
	case KindLingerFailed:
		return "LingerFailed"
	case KindServiceStartFailed:
		return "ServiceStartFailed"
	case KindServiceStopFailed:
		return "ServiceStopFailed"
	case KindServiceReloadFailed:
		return "ServiceReloadFailed"
	case KindContainer:
		return "Container"
	case KindRootRequired:
		return "RootRequired"
	default:
		return "Unknown"
	}
}

// Error is the single typed error value for the whole taxonomy. Field is
// the offending field path (InvalidConfig/InvalidArgs), a subject name
// (NotFound, ServiceStartFailed, ...), or empty when the kind carries no
// natural subject (RootRequired). Cause wraps the underlying error, if any.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Field, e.Msg, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error of the same Kind, so callers can
// write errors.Is(err, &direrr.Error{Kind: direrr.KindNotFound}) style
// sentinels, though the idiomatic check is Kind via errors.As + e.Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func new(kind Kind, field, msg string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Msg: msg, Cause: cause}
}

// NewInvalidConfig reports a malformed configuration value at field.
func NewInvalidConfig(field, msg string) *Error {
	return new(KindInvalidConfig, field, msg, nil)
}

// NewInvalidArgs reports a malformed caller argument at field.
func NewInvalidArgs(field, msg string) *Error {
	return new(KindInvalidArgs, field, msg, nil)
}

// NewNotFound reports a missing entity of kind "what" named "name".
func NewNotFound(what, name string) *Error {
	return new(KindNotFound, what, "not found: "+name, nil)
}

// NewExec reports a failed external command, wrapping the command's own
// error.
func NewExec(argv string, cause error) *Error {
	return new(KindExec, argv, "command failed", cause)
}

// NewUIDExhausted reports that no UID remains in the configured allocation
// range.
func NewUIDExhausted(rangeDesc string) *Error {
	return new(KindUIDExhausted, rangeDesc, "no UID available in range", nil)
}

// NewSubRangeExhausted reports that no subordinate UID/GID range remains.
func NewSubRangeExhausted(rangeDesc string) *Error {
	return new(KindSubRangeExhausted, rangeDesc, "no subordinate range available", nil)
}

// NewLingerFailed reports that enabling linger for a user failed.
func NewLingerFailed(user string, cause error) *Error {
	return new(KindLingerFailed, user, "failed to enable linger", cause)
}

// NewServiceStartFailed reports a failed unit start.
func NewServiceStartFailed(unit string, cause error) *Error {
	return new(KindServiceStartFailed, unit, "failed to start", cause)
}

// NewServiceStopFailed reports a failed unit stop.
func NewServiceStopFailed(unit string, cause error) *Error {
	return new(KindServiceStopFailed, unit, "failed to stop", cause)
}

// NewServiceReloadFailed reports a failed daemon-reload.
func NewServiceReloadFailed(cause error) *Error {
	return new(KindServiceReloadFailed, "", "daemon-reload failed", cause)
}

// NewContainer reports a container-runtime-level failure not otherwise
// classified (image pull, create, inspect).
func NewContainer(subject string, cause error) *Error {
	return new(KindContainer, subject, "container operation failed", cause)
}

// NewRootRequired reports that an operation needs root privileges the
// current process does not have.
func NewRootRequired(operation string) *Error {
	return new(KindRootRequired, operation, "requires root privileges", nil)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if de, ok := err.(*Error); ok {
			e = de
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
