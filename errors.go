package logic

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeInvalidLogic   = "LOGIC_INVALID"
	ErrCodeDuplicateLogic = "LOGIC_DUPLICATE"
	ErrCodeCancelled      = "LOGIC_CANCELLED"
	ErrCodeNilAction      = "LOGIC_NIL_ACTION"
	ErrCodeHostUnbound    = "LOGIC_HOST_UNBOUND"
	ErrCodeMonitorClosed  = "LOGIC_MONITOR_CLOSED"
	ErrCodePanic          = "LOGIC_PANIC"
	ErrCodeUnhandled      = "LOGIC_UNHANDLED"
)

var (
	ErrInvalidLogic = apperrors.New("invalid logic", apperrors.CategoryValidation).
			WithTextCode(ErrCodeInvalidLogic)
	ErrDuplicateLogic = apperrors.New("logic already registered", apperrors.CategoryConflict).
				WithTextCode(ErrCodeDuplicateLogic)
	ErrCancelled = apperrors.New("logic cancelled", apperrors.CategoryHandler).
			WithTextCode(ErrCodeCancelled)
	ErrNilAction = apperrors.New("nil action", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNilAction)
	ErrHostUnbound = apperrors.New("engine middleware is not attached to a host", apperrors.CategoryConflict).
			WithTextCode(ErrCodeHostUnbound)
	ErrMonitorClosed = apperrors.New("monitor closed", apperrors.CategoryConflict).
				WithTextCode(ErrCodeMonitorClosed)
	ErrPanic = apperrors.New("recovered panic", apperrors.CategoryHandler).
			WithTextCode(ErrCodePanic)
	ErrUnhandled = apperrors.New("unhandled logic value", apperrors.CategoryHandler).
			WithTextCode(ErrCodeUnhandled)
)

func cloneLogicError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrUnhandled
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code of a go-errors value, or "".
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsCancelled reports whether err was produced by a logic cancellation.
func IsCancelled(err error) bool {
	return ErrorCode(err) == ErrCodeCancelled
}

// errorMessage renders the text placed in monitor events.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return err.Error()
}
