package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API facing error: a stable machine code, the HTTP status it maps to and a human
// message. Details carries structured context such as conflict counts.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same code, so clones of a sentinel satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying the given key/value pairs on top of existing details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return &clone
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps err as the cause behind a typed error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTooManyRequests = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
	ErrCacheMiss       = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Room assignment validation.
var (
	ErrMissingPrimaryRoom   = New("MISSING_PRIMARY_ROOM", http.StatusBadRequest, "at least one active PRIMARY room assignment is required")
	ErrDuplicateRoom        = New("DUPLICATE_ROOM", http.StatusBadRequest, "room is assigned more than once")
	ErrMissingRoomReference = New("MISSING_ROOM_REFERENCE", http.StatusBadRequest, "active room assignment has no room")
	ErrEmptyRestrictionList = New("EMPTY_ROOM_RESTRICTION", http.StatusBadRequest, "room restriction requires at least one room")
)

// Generation jobs and schedule lifecycle.
var (
	ErrJobNotFinished      = New("JOB_NOT_FINISHED", http.StatusConflict, "Job not completed yet")
	ErrJobWithoutSchedule  = New("JOB_WITHOUT_SCHEDULE", http.StatusInternalServerError, "Generation completed but no schedule was produced")
	ErrInvalidTransition   = New("INVALID_STATUS_TRANSITION", http.StatusConflict, "status transition not allowed")
	ErrUnresolvedConflicts = New("UNRESOLVED_CONFLICTS", http.StatusConflict, "schedule still has hard conflicts")
)

// FromError returns the *Error in err's chain, or wraps err as ErrInternal.
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

// Clone copies a sentinel, replacing its message unless message is empty.
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
