package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码
const (
	CodeValidation          = "VALIDATION"
	CodeNotFound            = "NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
)

// ErrorWrapper 错误包装器
type ErrorWrapper struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

// NewErrorWrapper 创建错误包装器
func NewErrorWrapper(code, message string, cause error) *ErrorWrapper {
	return &ErrorWrapper{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError 输入非法
func ValidationError(format string, args ...any) *ErrorWrapper {
	return NewErrorWrapper(CodeValidation, fmt.Sprintf(format, args...), nil)
}

// NotFoundError 资源不存在
func NotFoundError(format string, args ...any) *ErrorWrapper {
	return NewErrorWrapper(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

// UpstreamError 存储或缓存不可用
func UpstreamError(message string, cause error) *ErrorWrapper {
	return NewErrorWrapper(CodeUpstreamUnavailable, message, cause)
}

// WithDetails 添加错误详情
func (ew *ErrorWrapper) WithDetails(details any) *ErrorWrapper {
	ew.Details = details
	return ew
}

// Error 实现 error 接口
func (ew *ErrorWrapper) Error() string {
	if ew.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", ew.Code, ew.Message, ew.Cause)
	}
	return fmt.Sprintf("[%s] %s", ew.Code, ew.Message)
}

// Unwrap 支持 errors.Is / errors.As
func (ew *ErrorWrapper) Unwrap() error {
	return ew.Cause
}

// CodeOf 返回错误链上第一个 ErrorWrapper 的错误码，未包装的错误视为 INTERNAL
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var ew *ErrorWrapper
	if errors.As(err, &ew) {
		return ew.Code
	}
	return CodeInternal
}

// AsErrorWrapper 提取错误链中的 ErrorWrapper
func AsErrorWrapper(err error) (*ErrorWrapper, bool) {
	var ew *ErrorWrapper
	if errors.As(err, &ew) {
		return ew, true
	}
	return nil, false
}

// IsNotFound 判断是否为资源不存在
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidation 判断是否为输入非法
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// HTTPStatus 将错误码映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
