package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAccessDenied
	KindAuthRequired
	KindConflict
	KindLocked
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindAuthRequired:
		return "auth_required"
	case KindConflict:
		return "conflict"
	case KindLocked:
		return "locked"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is the single error type returned by the services. Message is safe to
// show to clients for every kind except KindStorage and KindInternal.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func AccessDeniedError(message string) *Error {
	return &Error{Kind: KindAccessDenied, Message: message}
}

func AuthRequiredError(message string) *Error {
	return &Error{Kind: KindAuthRequired, Message: message}
}

func ConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func LockedError(message string) *Error {
	return &Error{Kind: KindLocked, Message: message}
}

// StorageError wraps a database failure. A nil cause yields nil so call sites
// can wrap unconditionally.
func StorageError(message string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
