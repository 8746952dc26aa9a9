// Package apperr defines the structured failures surfaced by calbridge.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is detected locally and never sent upstream.
	KindValidation Kind = "validation"
	// KindStorage is raised while materializing attachments.
	KindStorage Kind = "storage"
	// KindCalendarService means the calendar service rejected or failed a call.
	KindCalendarService Kind = "calendar_service"
	// KindMalformedDocument means an interchange document held no event blocks.
	KindMalformedDocument Kind = "malformed_document"
)

// Error is the structured failure returned by the core.
type Error struct {
	Kind     Kind
	Message  string
	Status   int  // upstream HTTP status, 0 when unknown
	NotFound bool // the referenced object does not exist
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	parts := []string{string(e.Kind), e.Message}

	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates a new validation failure
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// InvalidRange is the validation failure for a start that is not before its end.
func InvalidRange() *Error {
	return Validation("the specified time range is invalid, start time must be before end time")
}

// Storage creates a storage failure caused by a service error.
func Storage(msg string, status int, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Status: status, Cause: cause}
}

// StorageNotFound creates a storage failure for a missing object.
func StorageNotFound(objectID string, cause error) *Error {
	return &Error{
		Kind:     KindStorage,
		Message:  fmt.Sprintf("storage object %s not found", objectID),
		Status:   404,
		NotFound: true,
		Cause:    cause,
	}
}

// CalendarService creates a calendar service failure carrying the upstream status.
func CalendarService(msg string, status int, cause error) *Error {
	return &Error{
		Kind:     KindCalendarService,
		Message:  msg,
		Status:   status,
		NotFound: status == 404,
		Cause:    cause,
	}
}

// MalformedDocument reports an interchange document without event blocks.
func MalformedDocument(msg string) *Error {
	return &Error{Kind: KindMalformedDocument, Message: msg}
}

// IsKind checks if an error is of a specific kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsNotFound reports whether err refers to a missing object.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.NotFound
	}
	return false
}

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
