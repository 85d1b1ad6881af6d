// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 上游认证错误 (2xxx)
	CodeAuthFailed   ErrorCode = "2001"
	CodeTokenExpired ErrorCode = "2002"
	CodeTokenInvalid ErrorCode = "2003"

	// 上游目录错误 (3xxx)
	CodeUpstreamError  ErrorCode = "3001"
	CodeMenuNotFound   ErrorCode = "3002"
	CodeParseFailed    ErrorCode = "3003"
	CodeCacheReadError ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeIndexingFailed  ErrorCode = "4001"
	CodeEmbeddingFailed ErrorCode = "4002"
	CodeSearchFailed    ErrorCode = "4003"
	CodeSchemaMismatch  ErrorCode = "4004"

	// 外部服务错误 (5xxx)
	CodeVectorDBError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeAuthFailed, CodeTokenExpired, CodeTokenInvalid:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeMenuNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSchemaMismatch:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeUpstreamError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrAuthFailed   = New(CodeAuthFailed, "upstream authentication failed")
	ErrTokenExpired = New(CodeTokenExpired, "access token expired")

	ErrUpstreamError = New(CodeUpstreamError, "upstream catalog request failed")
	ErrMenuNotFound  = New(CodeMenuNotFound, "menu not loaded")
	ErrParseFailed   = New(CodeParseFailed, "failed to parse catalog payload")

	ErrIndexingFailed  = New(CodeIndexingFailed, "indexing failed")
	ErrEmbeddingFailed = New(CodeEmbeddingFailed, "embedding failed")
	ErrSearchFailed    = New(CodeSearchFailed, "vector search failed")
	ErrSchemaMismatch  = New(CodeSchemaMismatch, "collection schema mismatch")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
