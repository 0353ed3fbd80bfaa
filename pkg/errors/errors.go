package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned and wrapped values still compare to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios. Messages are the short user-facing text.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "Dokumen tidak ditemukan")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "Unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "Data tidak lengkap")
	ErrStorage      = New("STORAGE_ERROR", http.StatusInternalServerError, "Gagal memproses file di storage")
	ErrDatabase     = New("DATABASE_ERROR", http.StatusInternalServerError, "Gagal memproses data di database")
	ErrDecode       = New("DECODE_ERROR", http.StatusUnprocessableEntity, "Gagal memuat PDF. Coba refresh halaman.")
	ErrOutOfRange   = New("OUT_OF_RANGE", http.StatusBadRequest, "Halaman di luar jangkauan")
	ErrNotReady     = New("NOT_READY", http.StatusConflict, "Dokumen masih dimuat")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "Terjadi kesalahan server")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WrapAs wraps cause using the code, status and message of a predefined error.
func WrapAs(base *Error, cause error, message string) *Error {
	if base == nil {
		base = ErrInternal
	}
	if message == "" {
		message = base.Message
	}
	return Wrap(cause, base.Code, base.Status, message)
}
