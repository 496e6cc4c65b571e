package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation              ErrorKind = "validation_error"
	KindInsufficientInventory   ErrorKind = "insufficient_inventory"
	KindReceiptGenerationFailed ErrorKind = "receipt_generation_failed"
	KindInvalidStateTransition  ErrorKind = "invalid_state_transition"
	KindNotFound                ErrorKind = "not_found"
	KindDuplicateRequest        ErrorKind = "duplicate_request"
	KindConflict                ErrorKind = "conflict"
	KindUnauthorized            ErrorKind = "unauthorized"
	KindForbidden               ErrorKind = "forbidden"
	KindInternal                ErrorKind = "internal_error"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:              http.StatusBadRequest,
	KindInsufficientInventory:   http.StatusConflict,
	KindReceiptGenerationFailed: http.StatusServiceUnavailable,
	KindInvalidStateTransition:  http.StatusConflict,
	KindNotFound:                http.StatusNotFound,
	KindDuplicateRequest:        http.StatusConflict,
	KindConflict:                http.StatusConflict,
	KindUnauthorized:            http.StatusUnauthorized,
	KindForbidden:               http.StatusForbidden,
	KindInternal:                http.StatusInternalServerError,
}

// Error はusecaseが返す業務エラー。handlerはKindからステータスを決める
type Error struct {
	Kind    ErrorKind
	Message string

	// 在庫不足のときだけ埋まる
	ProductID int64
	Requested int64
	Available int64

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func AsError(err error) (*Error, bool) {
	var ue *Error
	ok := errors.As(err, &ue)
	return ue, ok
}

// KindOf はusecase.Error以外をすべて内部エラーとして扱う
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if ue, ok := AsError(err); ok {
		return ue.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func notFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func insufficientInventoryError(productID, requested, available int64) error {
	return &Error{
		Kind:      KindInsufficientInventory,
		Message:   fmt.Sprintf("insufficient inventory for product %d", productID),
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

// 保存層のエラーは中身を外に出さない（ログにだけ残る）
func internalError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timed out"
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// tx内で返したusecase.Errorはそのまま、それ以外は内部エラーに包む
func wrapTxError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return internalError(msg, err)
}
