/*
Package errs classifies failures of a watcher run so the caller can decide
between retrying, aborting and carrying on.
*/
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetwork       Kind = "network"
	KindRateLimit     Kind = "rate_limit"
	KindParsing       Kind = "parsing"
	KindStorage       Kind = "storage"
	KindNotify        Kind = "notify"
	KindConfiguration Kind = "configuration"
)

// Error is a classified failure. Op names the step that failed ("fetch", "extract", ...).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the same request may succeed.
// Rate limits are not retried within a run.
func (e *Error) IsRetryable() bool {
	return e.Kind == KindNetwork
}

func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Network(op, message string, err error) *Error {
	return New(KindNetwork, op, message, err)
}

func RateLimit(op, message string) *Error {
	return New(KindRateLimit, op, message, nil)
}

func Parsing(op, message string, err error) *Error {
	return New(KindParsing, op, message, err)
}

func Storage(op, message string, err error) *Error {
	return New(KindStorage, op, message, err)
}

func Notify(op, message string, err error) *Error {
	return New(KindNotify, op, message, err)
}

func Configuration(message string, err error) *Error {
	return New(KindConfiguration, "config", message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is classified and retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}
