package geo

import (
	"context"
	"errors"
	"strings"
)

// ErrorCode classifies a failed positioning query.
type ErrorCode string

const (
	CodePermissionDenied    ErrorCode = "permission-denied"
	CodePositionUnavailable ErrorCode = "position-unavailable"
	CodeTimeout             ErrorCode = "timeout"
	CodeUnknown             ErrorCode = "unknown"
)

// User-facing messages.
const (
	MsgPermissionDenied    = "Location access denied. Please enable location services."
	MsgPositionUnavailable = "Location information is unavailable."
	MsgTimeout             = "Location request timed out."
	MsgUnknown             = "An unknown error occurred while retrieving location."
	MsgNotSupported        = "Geolocation is not supported by this browser."
)

// ErrNotSupported means the host environment has no positioning API at all.
var ErrNotSupported = errors.New(MsgNotSupported)

// ParseErrorCode normalizes a wire code. Unrecognized codes collapse to CodeUnknown.
func ParseErrorCode(in string) ErrorCode {
	switch c := ErrorCode(strings.ToLower(strings.TrimSpace(in))); c {
	case CodePermissionDenied, CodePositionUnavailable, CodeTimeout:
		return c
	}
	return CodeUnknown
}

// Message returns the user-facing text for the code.
func (c ErrorCode) Message() string {
	switch c {
	case CodePermissionDenied:
		return MsgPermissionDenied
	case CodePositionUnavailable:
		return MsgPositionUnavailable
	case CodeTimeout:
		return MsgTimeout
	default:
		return MsgUnknown
	}
}

func (c ErrorCode) String() string {
	return string(c)
}

// PositionError is a failed positioning query.
type PositionError struct {
	Code ErrorCode
	Err  error // underlying cause, optional
}

func NewPositionError(code ErrorCode, cause error) *PositionError {
	return &PositionError{Code: code, Err: cause}
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// CodeOf maps any positioning error onto one of the four codes.
// An expired context counts as a timeout.
func CodeOf(err error) ErrorCode {
	var pe *PositionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Code
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeUnknown
	}
}

// MessageFor returns the user-facing message for a positioning error.
func MessageFor(err error) string {
	if errors.Is(err, ErrNotSupported) {
		return MsgNotSupported
	}
	return CodeOf(err).Message()
}
