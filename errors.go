package rfs

import (
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Code classifies a failure into the taxonomy surfaced to callers
// (spec.md §7).
type Code string

const (
	CodeFileNotFound            Code = "FILE_NOT_FOUND"
	CodeFileIsDirectory         Code = "FILE_IS_DIRECTORY"
	CodeFileNotDirectory        Code = "FILE_NOT_DIRECTORY"
	CodeFileModifiedSince       Code = "FILE_MODIFIED_SINCE"
	CodeFileMoveConflict        Code = "FILE_MOVE_CONFLICT"
	CodeFileTooLarge            Code = "FILE_TOO_LARGE"
	CodeFileExceedsMemoryLimit  Code = "FILE_EXCEEDS_MEMORY_LIMIT"
	CodeFilePermissionDenied    Code = "FILE_PERMISSION_DENIED"
	CodeFileNotModifiedSince    Code = "FILE_NOT_MODIFIED_SINCE"
	CodeFileInvalidPath         Code = "FILE_INVALID_PATH"
	CodeNoProvider              Code = "NoProvider"
	CodeUnknown                 Code = "Unknown"
)

// Error is the tagged error every service operation returns on failure.
// It wraps the underlying cause (often a provider error) the way the
// teacher's internal/fs.Error wraps a syscall error, but maps in the
// opposite direction: from a raw error to this taxonomy rather than from
// this taxonomy down to a syscall code.
type Error struct {
	Code     Code
	Op       string
	Resource Resource
	Options  interface{} // the options the caller passed in, echoed for diagnostics
	Err      error
}

// NewError constructs a taxonomy error with no echoed options.
func NewError(code Code, op string, resource Resource, err error) *Error {
	return &Error{Code: code, Op: op, Resource: resource, Err: err}
}

// WithOptions returns a copy of e carrying opts for diagnostics.
func (e *Error) WithOptions(opts interface{}) *Error {
	cp := *e
	cp.Options = opts
	return &cp
}

// resourceForm renders a resource the way a user-facing message would:
// the local scheme collapses to a plain path, everything else uses the
// full URI string. Localization proper is out of scope (spec.md §1); this
// is the one formatting rule the taxonomy needs to satisfy spec.md §7's
// "includes the human-readable resource form".
func resourceForm(r Resource) string {
	if r.Scheme == "file" {
		return r.Path
	}
	return r.String()
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, resourceForm(e.Resource), e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, resourceForm(e.Resource), e.Code)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, target) match on Code alone whenever target is,
// or wraps, an *Error (its own cause is not compared), letting callers write
// errors.Is(err, rfs.NewError(rfs.CodeFileNotFound, "", rfs.Resource{}, nil)).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

type errorJSON struct {
	Code     Code        `json:"code"`
	Op       string      `json:"op"`
	Resource string      `json:"resource"`
	Options  interface{} `json:"options,omitempty"`
	Cause    string      `json:"cause,omitempty"`
}

// MarshalJSON lets callers (e.g. cmd/rfsctl --json) serialize a taxonomy
// error, grounded on jmgilman-go/errors's ToJSON/MarshalJSON pattern.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{Code: e.Code, Op: e.Op, Resource: e.Resource.String(), Options: e.Options}
	if e.Err != nil {
		j.Cause = e.Err.Error()
	}
	return json.Marshal(j)
}

// Provider error vocabulary. Concrete providers return (or wrap) these
// sentinels; MapProviderError turns them, or the stdlib equivalents, into
// the taxonomy above.
var (
	ErrProviderNotFound      = errors.New("rfs: resource not found")
	ErrProviderExists        = errors.New("rfs: resource already exists")
	ErrProviderIsDirectory   = errors.New("rfs: resource is a directory")
	ErrProviderNotDirectory  = errors.New("rfs: resource is not a directory")
	ErrProviderNoPermissions = errors.New("rfs: permission denied")
	ErrProviderUnavailable   = errors.New("rfs: capability not supported by provider")
)

// MapProviderError normalizes an arbitrary provider error into the
// taxonomy, per spec.md §7: "Provider errors are first normalized into a
// provider-error code, then mapped to the taxonomy via a lookup at the
// boundary of each pipeline."
func MapProviderError(op string, resource Resource, err error) *Error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return already
	}
	cause := pkgerrors.Cause(err)
	switch {
	case errors.Is(cause, ErrProviderNotFound):
		return NewError(CodeFileNotFound, op, resource, err)
	case errors.Is(cause, ErrProviderIsDirectory):
		return NewError(CodeFileIsDirectory, op, resource, err)
	case errors.Is(cause, ErrProviderNotDirectory):
		return NewError(CodeFileNotDirectory, op, resource, err)
	case errors.Is(cause, ErrProviderNoPermissions):
		return NewError(CodeFilePermissionDenied, op, resource, err)
	case errors.Is(cause, ErrProviderUnavailable):
		return NewError(CodeFilePermissionDenied, op, resource, err)
	default:
		return NewError(CodeUnknown, op, resource, err)
	}
}

// CodeOf extracts the taxonomy code from err, if it (or something it
// wraps) is an *Error. Front ends that need to translate the taxonomy
// into their own vocabulary (e.g. cmd/rfsmount's errno mapping) use this
// instead of a type assertion.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func isNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeFileNotFound
	}
	return errors.Is(pkgerrors.Cause(err), ErrProviderNotFound)
}

func isExists(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeUnknown && errors.Is(pkgerrors.Cause(e.Err), ErrProviderExists)
	}
	return errors.Is(pkgerrors.Cause(err), ErrProviderExists)
}
