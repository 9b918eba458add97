package errors

import (
	"errors"
	"fmt"
)

// Kind 错误分类 决定watch循环的处理方式
type Kind int8

const (
	KindInternal Kind = iota
	KindConfiguration
	KindTransport
	KindResponse
	KindSelection
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindResponse:
		return "response"
	case KindSelection:
		return "selection"
	default:
		return "internal"
	}
}

const (
	CodeInternal          = 500
	CodeInvalidDescriptor = 1001
	CodeTransport         = 2001
	CodeBadStatus         = 3001
	CodeDecodeFailure     = 3002
	CodeLeaderless        = 3003
	CodeMissingIndex      = 3004
	CodeNotFound          = 4001
	CodeEmpty             = 4002
)

var (
	ErrInternal          = New(CodeInternal, KindInternal, "internal error")
	ErrInvalidDescriptor = New(CodeInvalidDescriptor, KindConfiguration, "invalid service descriptor")
	ErrTransport         = New(CodeTransport, KindTransport, "discovery backend unreachable")
	ErrBadStatus         = New(CodeBadStatus, KindResponse, "bad status")
	ErrDecodeFailure     = New(CodeDecodeFailure, KindResponse, "decode failure")
	ErrLeaderless        = New(CodeLeaderless, KindResponse, "leaderless")
	ErrMissingIndex      = New(CodeMissingIndex, KindResponse, "missing index")
	ErrNotFound          = New(CodeNotFound, KindSelection, "service not found")
	ErrEmpty             = New(CodeEmpty, KindSelection, "no healthy instances")
)

type Error struct {
	code    int
	kind    Kind
	message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d - %s", e.code, e.message) }

func (e *Error) Code() int {
	return e.code
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Message() string {
	return e.message
}

// Is 按code比较 wrap之后的错误同样可以匹配
func (e *Error) Is(err error) bool {
	if se := new(Error); errors.As(err, &se) {
		return se.code == e.code
	}
	return false
}

// New 创建错误
func New(code int, kind Kind, message string) *Error {
	return &Error{
		code:    code,
		kind:    kind,
		message: message,
	}
}

// withCause 分类错误 + 原始错误
type withCause struct {
	err   *Error
	cause error
}

func (w *withCause) Error() string { return w.err.Error() + "| " + w.cause.Error() }

func (w *withCause) Cause() error { return w.cause }

func (w *withCause) Unwrap() []error { return []error{w.err, w.cause} }

// Wrap 给原始错误打上分类 errors.Is对两者都成立
func Wrap(err *Error, cause error) error {
	if cause == nil {
		return err
	}
	return &withCause{
		err:   err,
		cause: cause,
	}
}

// Wrapf 使用格式化信息作为原因
func Wrapf(err *Error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Errorf(format, args...))
}

// KindOf 获取错误分类 未分类的错误视为internal
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	if se := new(Error); errors.As(err, &se) {
		return se.kind
	}
	return KindInternal
}

// Retryable 配置错误和选择错误不会被watch循环重试
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConfiguration, KindSelection:
		return false
	}
	return true
}
