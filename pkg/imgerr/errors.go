// Package imgerr defines the error taxonomy shared by the iteration core.
//
// Errors carry a Category so callers can distinguish programmer errors
// (RangeError, InvalidArgument) from geometry failures that a filter may
// recover from by choosing a different requested region.
package imgerr

import (
	"errors"
	"fmt"
)

// Category classifies an error raised by the core.
type Category string

// Error categories
const (
	// CategoryRange marks an index, offset or iterator position outside
	// the valid range: iterating past the end, writing outside the buffer.
	CategoryRange Category = "RangeError"

	// CategoryInvalidArgument marks malformed input such as a negative
	// region size or mismatched dimensions.
	CategoryInvalidArgument Category = "InvalidArgument"

	// CategoryInvalidRequestedRegion marks a requested region that falls
	// entirely outside the largest possible region of an image.
	CategoryInvalidRequestedRegion Category = "InvalidRequestedRegion"
)

// Sentinels for errors.Is matching on category.
var (
	ErrRange                  = &Error{Category: CategoryRange}
	ErrInvalidArgument        = &Error{Category: CategoryInvalidArgument}
	ErrInvalidRequestedRegion = &Error{Category: CategoryInvalidRequestedRegion}
)

// Error is a categorised error raised by the iteration core.
type Error struct {
	Category Category // Error category for programmatic handling
	Op       string   // Operation that failed, e.g. "region.Crop"
	Message  string   // Human-readable description
	Err      error    // Underlying cause, if any
}

func (e *Error) Error() string {
	msg := string(e.Category)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same category. This lets the
// sentinels above match any error of their category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Category == e.Category && t.Op == "" && t.Message == "" && t.Err == nil
}

// Range returns a RangeError for op.
func Range(op, format string, args ...any) *Error {
	return &Error{Category: CategoryRange, Op: op, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument returns an InvalidArgument error for op.
func InvalidArgument(op, format string, args ...any) *Error {
	return &Error{Category: CategoryInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf extracts the category of err, or "" if err is not from the core.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}
