package ops

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrWrongPassword     = errors.New("wrong password")
	ErrInvalidPages      = errors.New("invalid page selection")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrToolUnavailable   = errors.New("tool unavailable")
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrNoInput           = errors.New("no input files")
	ErrEmptyResult       = errors.New("operation produced nothing")
)

// Error is the failure type returned by Registry.Run.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ops %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is a stable snake_case classification used in logs and user replies.
func (e *Error) Code() string {
	switch {
	case errors.Is(e.Err, ErrWrongPassword):
		return "wrong_password"
	case errors.Is(e.Err, ErrInvalidPages):
		return "invalid_pages"
	case errors.Is(e.Err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(e.Err, ErrToolUnavailable):
		return "tool_unavailable"
	case errors.Is(e.Err, ErrInvalidParam):
		return "invalid_param"
	case errors.Is(e.Err, ErrNoInput):
		return "no_input"
	case errors.Is(e.Err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(e.Err, context.Canceled):
		return "canceled"
	default:
		return "op_failed"
	}
}

// Wrap attaches op to err unless err already carries an *Error.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Code returns the classification of err, or "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return (&Error{Err: err}).Code()
}
