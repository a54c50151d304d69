package errors

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorTranslator 错误转换器
type ErrorTranslator struct{}

// NewErrorTranslator 创建错误转换器
func NewErrorTranslator() *ErrorTranslator {
	return &ErrorTranslator{}
}

var defaultTranslator = NewErrorTranslator()

// Translate 使用默认转换器转换错误
func Translate(err error) *AppError {
	return defaultTranslator.Translate(err)
}

// Translate 将各种类型的错误转换为AppError
func (t *ErrorTranslator) Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，直接返回
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return t.translateValidationErrors(validationErrs)
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError("resource").WithCause(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewConflictError("resource already exists").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{
			Code:     ErrCodeTimeout,
			Message:  "operation timed out",
			Type:     ErrorTypeExternal,
			HTTPCode: 504,
			Cause:    err,
		}
	}

	errMsg := err.Error()

	// 数据库唯一约束冲突（驱动层文本，保底判断）
	if strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "UNIQUE constraint") {
		return NewConflictError("resource already exists").WithCause(err)
	}

	// 外部服务错误
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "timeout") {
		return NewSystemError(ErrCodeExternalService, "External service unavailable").WithCause(err)
	}

	// 默认系统错误
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// translateValidationErrors 转换验证错误
func (t *ErrorTranslator) translateValidationErrors(errs validator.ValidationErrors) *AppError {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return NewValidationError("request validation failed").WithDetails(details)
}
