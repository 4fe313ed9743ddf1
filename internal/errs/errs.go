// Package errs holds the error taxonomy shared by every layer of the engine.
//
// Every failure surfaced by the engine is an *Error carrying one Kind.
// Callers match on kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, errs.ErrNotEmpty) { ... }
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindDuplicateColumnName Kind = iota + 1
	KindUnknownColumnType
	KindRelationAlreadyExists
	KindTableNotFound
	KindNotEmpty
	KindUnknownColumn
	KindStorageFailure
)

// Category is the stable, client facing name of a kind.
func (k Kind) Category() string {
	switch k {
	case KindDuplicateColumnName:
		return "DuplicateColumnName"
	case KindUnknownColumnType:
		return "UnknownColumnType"
	case KindRelationAlreadyExists:
		return "RelationAlreadyExists"
	case KindTableNotFound:
		return "TableNotFound"
	case KindNotEmpty:
		return "NotEmpty"
	case KindUnknownColumn:
		return "UnknownColumn"
	case KindStorageFailure:
		return "StorageFailure"
	}
	return "Unknown"
}

func (k Kind) Status() int {
	switch k {
	case KindDuplicateColumnName, KindUnknownColumnType, KindUnknownColumn, KindNotEmpty:
		return http.StatusBadRequest
	case KindTableNotFound:
		return http.StatusNotFound
	case KindRelationAlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		if e.msg == "" {
			return e.cause.Error()
		}
		return e.msg + ": " + e.cause.Error()
	}
	if e.msg == "" {
		return e.Kind.Category()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }
func (e *Error) Status() int   { return e.Kind.Status() }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrDuplicateColumnName   = New(KindDuplicateColumnName, "")
	ErrUnknownColumnType     = New(KindUnknownColumnType, "")
	ErrRelationAlreadyExists = New(KindRelationAlreadyExists, "")
	ErrTableNotFound         = New(KindTableNotFound, "")
	ErrNotEmpty              = New(KindNotEmpty, "")
	ErrUnknownColumn         = New(KindUnknownColumn, "")
	ErrStorageFailure        = New(KindStorageFailure, "")
)

// KindOf returns the kind of the first *Error in err's chain.
// Errors from outside the taxonomy are storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// Storage wraps a backend error, leaving errors that already carry a kind untouched.
func Storage(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(KindStorageFailure, err, msg)
}
