package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Its string value is the stable `type` tag
// rendered to API clients.
type Kind string

const (
	KindInternal           Kind = "InternalError"
	KindValidation         Kind = "ValidationError"
	KindDuplicate          Kind = "DuplicateError"
	KindNotFound           Kind = "NotFoundError"
	KindAlreadyVerified    Kind = "AlreadyVerifiedError"
	KindInvalidCode        Kind = "InvalidCodeError"
	KindInvalidCredentials Kind = "InvalidCredentialsError"
	KindRoleMismatch       Kind = "RoleMismatchError"
	KindConfiguration      Kind = "ConfigurationError"
	KindDelivery           Kind = "DeliveryError"
	KindProfileIncomplete  Kind = "ProfileIncompleteError"
	KindRateLimited        Kind = "RateLimitedError"
)

// CodeReason explains why a one-time code was rejected.
type CodeReason string

const (
	ReasonNoCode   CodeReason = "no-code"
	ReasonExpired  CodeReason = "expired"
	ReasonMismatch CodeReason = "mismatch"
)

// Error is the domain error carried from the identity services to the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	// Field names the colliding input on a Duplicate error.
	Field string
	// Reason is set on InvalidCode errors.
	Reason CodeReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// style checks work regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Duplicate(field string) *Error {
	return &Error{Kind: KindDuplicate, Field: field, Message: fmt.Sprintf("an account with this %s already exists", field)}
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "account not found"
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

func AlreadyVerified() *Error {
	return &Error{Kind: KindAlreadyVerified, Message: "email is already verified"}
}

func InvalidCode(reason CodeReason) *Error {
	var msg string
	switch reason {
	case ReasonNoCode:
		msg = "no verification code was requested"
	case ReasonExpired:
		msg = "verification code has expired"
	default:
		msg = "invalid verification code"
	}
	return &Error{Kind: KindInvalidCode, Reason: reason, Message: msg}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
}

func RoleMismatch(msg string) *Error {
	return &Error{Kind: KindRoleMismatch, Message: msg}
}

func Configuration(msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: msg, Err: err}
}

func Delivery(err error) *Error {
	return &Error{Kind: KindDelivery, Message: "failed to deliver email, please try again later", Err: err}
}

func ProfileIncomplete(msg string) *Error {
	return &Error{Kind: KindProfileIncomplete, Message: msg}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "too many code requests, please try again later"}
}
