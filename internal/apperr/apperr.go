// Package apperr classifies domain failures so transports can map them to
// status codes without knowing every concrete error type.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Kinded is implemented by every error that knows its own classification.
type Kinded interface {
	error
	ErrKind() Kind
}

// Error is the generic classified error. Domain packages declare their
// sentinels with New and richer failures as their own Kinded types.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(err error, kind Kind, code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) ErrKind() Kind { return e.Kind }
func (e *Error) ErrCode() string { return e.Code }

// KindOf returns the classification of the first Kinded error in the chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrKind()
	}
	return KindInternal
}

// CodeOf returns a machine readable code when the error carries one.
func CodeOf(err error) string {
	var c interface{ ErrCode() string }
	if errors.As(err, &c) {
		return c.ErrCode()
	}
	return ""
}

// PublicMessage is the text safe to show to a client. Internal and upstream
// failures never leak their cause.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindInternal:
		return "Internal server error"
	case KindUpstream:
		return "Payment provider unavailable"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Error()
	}
	return err.Error()
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
