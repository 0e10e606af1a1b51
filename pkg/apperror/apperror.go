package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an application error for HTTP status mapping
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindNotFound
	KindPermission
	KindInternal
)

// Machine-readable error codes returned to API clients. Revert failures are
// reported per transaction id using these codes.
const (
	CodeValidation        = "ValidationError"
	CodeInsufficientStock = "InsufficientStock"
	CodeInvalidReference  = "InvalidReference"
	CodeBatchReverted     = "BatchReverted"
	CodeNotFound          = "NotFound"
	CodeAlreadyReverted   = "AlreadyReverted"
	CodeDependentTx       = "DependentTransactionExists"
	CodePermissionDenied  = "PermissionDenied"
	CodeInternal          = "InternalError"
)

// Error carries a kind, a stable code, and a human-readable message
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error // Optional wrapped cause
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed application error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds a typed application error around a cause
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func InsufficientStock(message string) *Error {
	return New(KindConflict, CodeInsufficientStock, message)
}

func InvalidReference(message string) *Error {
	return New(KindValidation, CodeInvalidReference, message)
}

func BatchReverted(message string) *Error {
	return New(KindConflict, CodeBatchReverted, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func AlreadyReverted(message string) *Error {
	return New(KindConflict, CodeAlreadyReverted, message)
}

func DependentTransaction(message string) *Error {
	return New(KindConflict, CodeDependentTx, message)
}

func PermissionDenied(message string) *Error {
	return New(KindPermission, CodePermissionDenied, message)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, CodeInternal, message, err)
}

// CodeOf returns the stable code of err, or CodeInternal for untyped errors
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the response status the handlers should use
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
