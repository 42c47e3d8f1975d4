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

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors shared across modules.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid user or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Caption parse violations. Each kind is distinguishable so callers can
// render specific guidance to the submitter.
var (
	ErrMissingContentTag   = New("MISSING_CONTENT_TAG", http.StatusUnprocessableEntity, "caption has no content tag")
	ErrAmbiguousContentTag = New("AMBIGUOUS_CONTENT_TAG", http.StatusUnprocessableEntity, "caption has more than one content tag")
	ErrLeadingTag          = New("LEADING_TAG_BEFORE_CONTENT", http.StatusUnprocessableEntity, "recognized tag appears before the content tag")
	ErrInvalidLectureNo    = New("INVALID_LECTURE_NUMBER", http.StatusUnprocessableEntity, "lecture number is not a positive integer")
	ErrLectureNoRequired   = New("LECTURE_NUMBER_REQUIRED", http.StatusUnprocessableEntity, "item type requires a lecture number")
	ErrDisallowedMeta      = New("DISALLOWED_META_TAG", http.StatusUnprocessableEntity, "year or lecturer tag not allowed for this item type")
)

// Resolution failures.
var (
	ErrUnknownAlias        = New("UNKNOWN_ALIAS", http.StatusUnprocessableEntity, "hashtag alias is not registered")
	ErrConflictingTagKinds = New("CONFLICTING_TAG_KINDS", http.StatusUnprocessableEntity, "caption mixes term-resource and card tags")
	ErrDisabledTaxonomy    = New("TAXONOMY_DISABLED", http.StatusUnprocessableEntity, "caption resolves to a disabled taxonomy row")
)

// Ingestion outcomes.
var (
	ErrDuplicateMaterial = New("DUPLICATE_MATERIAL", http.StatusConflict, "an identical material already exists in this scope")
	ErrUnboundTopic      = New("UNBOUND_TOPIC", http.StatusUnprocessableEntity, "source topic is not bound to a subject and section")
	ErrUnknownGroup      = New("UNKNOWN_GROUP", http.StatusUnprocessableEntity, "source chat is not registered as a group")
)

// ErrCacheMiss is an internal sentinel; a miss is not a failure and must
// never surface to API consumers.
var ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")

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
