// Package errors provides the classified errors returned by the product catalog.
//
// Every failure that reaches a transport is one of three kinds: a validation error
// (malformed or out-of-range payload), a not-found error (no available product with the id)
// or an infrastructure error (anything else, typically the database).
// Validation and not-found errors are client errors and carry a client-facing message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrProductNotFound is the sentinel wrapped by every not-found error.
var ErrProductNotFound = errors.New("product not found")

// Kind classifies an error for the transports.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "infrastructure"
	}
}

// Error is a classified error. Status follows HTTP semantics.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports that no available product has the given id.
// It is classified as a bad request: the caller asked for something that does not exist.
func NotFound(id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Product #%d not found", id),
		Err:     ErrProductNotFound,
	}
}

// Validation reports a payload that failed decoding or validation. fields maps a field name to the failed rule.
func Validation(message string, fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: message,
		Fields:  fields,
	}
}

// KindOf returns the kind of err, KindInfrastructure when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// Public returns the status and the message that may be shown to a client.
// Infrastructure errors are reduced to a generic 500 so internals never leak.
func Public(err error) (status int, message string, fields map[string]string) {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInfrastructure {
		return e.Status, e.Message, e.Fields
	}
	return http.StatusInternalServerError, "Internal server error", nil
}

// StatusOf returns the HTTP status of err, 500 when err is not classified.
func StatusOf(err error) int {
	status, _, _ := Public(err)
	return status
}
