package conserve

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/weights"
)

// Kind separates the ways a verification can fail to produce a number.
//
// A remap that did not conserve is not an error: it is a Report whose
// RelativeError exceeds the tolerance.
type Kind string

const (
	// KindIO: an input is missing, unreadable or has the wrong layout.
	KindIO Kind = "IO_ERROR"

	// KindShape: field sizes or matrix indices are inconsistent.
	KindShape Kind = "SHAPE_MISMATCH"

	// KindDegenerate: the destination sum is indistinguishable from zero.
	KindDegenerate Kind = "NUMERICAL_DEGENERACY"
)

// Error is returned by the verifier for every failure.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a verifier error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// IsIOError reports whether err is an input/layout failure.
func IsIOError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindIO
}

// IsShapeError reports whether err is a shape or index mismatch.
func IsShapeError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindShape
}

// IsDegenerateError reports whether the conservation ratio could not be formed.
func IsDegenerateError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindDegenerate
}

// classify wraps errors from the dataset and weights layers in an *Error.
func classify(err error, path string) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}

	var we *weights.Error
	if errors.As(err, &we) {
		if we.Code == weights.ErrCodeLayout {
			return &Error{Kind: KindIO, Path: path, Err: err}
		}
		return &Error{Kind: KindShape, Path: path, Err: err}
	}

	var de *dataset.Error
	if errors.As(err, &de) {
		return &Error{Kind: KindIO, Path: path, Err: err}
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return &Error{Kind: KindIO, Path: path, Err: err}
	}

	return &Error{Kind: KindIO, Path: path, Message: fmt.Sprintf("unexpected %T", err), Err: err}
}

func shapeError(format string, args ...any) *Error {
	return &Error{Kind: KindShape, Message: fmt.Sprintf(format, args...)}
}
