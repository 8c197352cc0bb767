package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindSizeLimit  Kind = "size_limit"
	KindUpload     Kind = "upload"
	KindStorage    Kind = "storage"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
)

// 各类别的哨兵错误，供 errors.Is 判断
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("not authenticated")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrSizeLimit  = errors.New("size limit exceeded")
	ErrUpload     = errors.New("upload failed")
	ErrStorage    = errors.New("storage error")
	ErrNetwork    = errors.New("network error")
	ErrInternal   = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindAuth:       ErrAuth,
	KindConflict:   ErrConflict,
	KindNotFound:   ErrNotFound,
	KindSizeLimit:  ErrSizeLimit,
	KindUpload:     ErrUpload,
	KindStorage:    ErrStorage,
	KindNetwork:    ErrNetwork,
	KindInternal:   ErrInternal,
}

// Error 带类别的业务错误，Message 面向用户，Cause 保留底层错误
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return sentinels[e.Kind].Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 与类别哨兵错误匹配
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Auth(message string) *Error {
	return New(KindAuth, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func SizeLimit(message string) *Error {
	return New(KindSizeLimit, message)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

func Network(message string, cause error) *Error {
	return Wrap(KindNetwork, message, cause)
}

// Upload 上传失败，reason 为 conflict/permission/bucket_missing/too_large/unknown
func Upload(reason, message string, cause error) *Error {
	return &Error{Kind: KindUpload, Reason: reason, Message: message, Cause: cause}
}

// Storage 非上传类存储失败
func Storage(reason, message string, cause error) *Error {
	return &Error{Kind: KindStorage, Reason: reason, Message: message, Cause: cause}
}

// As 提取 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误类别，非 *Error 归为 internal
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	if IsTimeout(err) {
		return KindNetwork
	}
	return KindInternal
}

// IsTimeout 判断是否为超时或取消
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// FromContext 超时转为网络错误，其它 *Error 原样返回，剩余包装为 fallback 类别
func FromContext(err error, fallback Kind, message string) error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	if IsTimeout(err) {
		return Network("Request timed out", err)
	}
	return Wrap(fallback, message, err)
}

// HTTPStatus 将错误映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrSizeLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUpload), errors.Is(err, ErrStorage):
		return http.StatusBadGateway
	case errors.Is(err, ErrNetwork):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
