// Package apperr 定义业务错误分类，handler 根据 Kind 映射 HTTP 状态码。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Unauthorized     Kind = "unauthorized"
	Forbidden        Kind = "forbidden"
	NotFound         Kind = "not_found"
	ValidationError  Kind = "validation_error"
	StoreUnavailable Kind = "store_unavailable"
	Conflict         Kind = "conflict"
	Internal         Kind = "internal"
)

// RetryLaterMessage is what callers see for StoreUnavailable, whatever the cause.
const RetryLaterMessage = "service temporarily unavailable, please try again later"

// Retryable reports whether the caller may resubmit the same request.
func (k Kind) Retryable() bool {
	return k == StoreUnavailable
}

func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ValidationError:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case StoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage 返回可直接展示给调用方的文案
func (e *Error) PublicMessage() string {
	if e.Kind == StoreUnavailable || e.Kind == Internal {
		return RetryLaterMessage
	}
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, Internal otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
