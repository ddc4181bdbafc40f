// Package errors provides the unified application error carrying a code and a cause
// Package errors 提供携带错误码与原始错误的统一应用错误
package errors

import (
	"errors"
	"time"

	"github.com/haierkeys/edu-program-service/pkg/code"
)

// AppError 统一应用错误结构体
// 包含错误码、消息、详情和时间戳
type AppError struct {
	// Code 错误码
	Code int `json:"code"`
	// Message 错误消息
	Message string `json:"message"`
	// Details 错误详情（可选）
	Details []string `json:"details,omitempty"`
	// Cause 原始错误（不序列化到JSON）
	Cause error `json:"-"`
	// Timestamp 错误发生时间
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap 实现 errors.Unwrap 接口，支持错误链路追踪
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches a *code.Code or *AppError with the same numeric code
// Is 匹配相同错误码的 *code.Code 或 *AppError
func (e *AppError) Is(target error) bool {
	switch t := target.(type) {
	case *code.Code:
		return t.Code() == e.Code
	case *AppError:
		return t.Code == e.Code
	}
	return false
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:      c.Code(),
		Message:   c.Msg(),
		Details:   c.Details(),
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// WithDetails 设置详情并返回自身（链式调用）
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = details
	return e
}

// Storage wraps an underlying store failure, nil stays nil and coded errors pass through
// Storage 包装底层存储错误，nil 保持 nil，已编码的错误原样返回
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return err
	}
	return NewAppError(code.ErrorStorage, err)
}

// IsAppError 检查错误是否为 AppError 类型
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 从错误链中获取 AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
