package weights

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes weight matrix errors.
type ErrorCode string

const (
	// ErrCodeLayout indicates the weight file does not have the expected
	// variables, lengths or types.
	ErrCodeLayout ErrorCode = "LAYOUT"

	// ErrCodeIndexRange indicates an index outside the matrix's domain or range.
	ErrCodeIndexRange ErrorCode = "INDEX_RANGE"

	// ErrCodeOrigin indicates the index origin contradicts the data.
	ErrCodeOrigin ErrorCode = "INDEX_ORIGIN"
)

// Error is returned when a weight matrix cannot be built or applied.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLayoutError reports whether err is a weight file layout error.
func IsLayoutError(err error) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.Code == ErrCodeLayout
	}
	return false
}

// IsIndexError reports whether err is an index range or origin error.
func IsIndexError(err error) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.Code == ErrCodeIndexRange || we.Code == ErrCodeOrigin
	}
	return false
}

func newRangeError(space string, index, size int) *Error {
	return &Error{
		Code:    ErrCodeIndexRange,
		Message: fmt.Sprintf("%s index %d outside [0,%d)", space, index, size),
		Details: map[string]string{
			"space": space,
			"index": fmt.Sprintf("%d", index),
			"size":  fmt.Sprintf("%d", size),
		},
	}
}
