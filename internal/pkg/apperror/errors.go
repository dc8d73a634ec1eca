package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePayoutMissing     ErrorCode = "PAYOUT_ACCOUNT_MISSING"
	ErrCodeDisputeNotPending ErrorCode = "DISPUTE_NOT_PENDING"
	ErrCodeGateway           ErrorCode = "GATEWAY_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// InvalidTransition формирует ошибку недопустимого перехода статуса:
// в сообщении фиксируются текущий статус и запрошенное действие.
func InvalidTransition(current, action string) *AppError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("переход недопустим: заявка в статусе %q, действие %q", current, action))
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidTransition, ErrCodeDisputeNotPending:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodePayoutMissing:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsInvalidTransition(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidTransition
}

func IsPayoutMissing(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodePayoutMissing
}

func IsDisputeNotPending(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeDisputeNotPending
}

var (
	ErrRequestNotFound       = New(ErrCodeNotFound, "заявка не найдена")
	ErrPricingOptionNotFound = New(ErrCodeNotFound, "тариф не найден")
	ErrUserNotFound          = New(ErrCodeNotFound, "пользователь не найден")
	ErrDisputeNotFound       = New(ErrCodeNotFound, "спор не найден")
	ErrUnauthorized          = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden             = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials    = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrPayoutAccountMissing  = New(ErrCodePayoutMissing, "у автора не настроены реквизиты для выплат")
	ErrDisputeNotPending     = New(ErrCodeDisputeNotPending, "спор уже рассмотрен")
)
