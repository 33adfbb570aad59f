package response

import (
	"errors"
	"fmt"
)

type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// wrapped keeps the status code of base while reporting the cause.
type wrapped struct {
	base  error
	cause error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %s", w.base.Error(), w.cause.Error())
}

func (w *wrapped) Unwrap() []error {
	return []error{w.base, w.cause}
}

// Wrap attaches cause to a domain error so that errors.Is matches both and
// errors.As still finds the *Error carrying the status code.
func Wrap(base error, cause error) error {
	if cause == nil {
		return base
	}
	return &wrapped{base: base, cause: cause}
}

// Code returns the status code carried by err, or fallback.
func Code(err error, fallback int) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return fallback
}
