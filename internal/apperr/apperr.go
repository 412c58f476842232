// Package apperr defines the errors that cross the service boundary and the
// HTTP status each one maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug %q already exists", e.Slug)
}

type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return "email already exists"
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusCode maps err to the HTTP status a handler should answer with.
func StatusCode(err error) int {
	var (
		validation *ValidationError
		dupSlug    *DuplicateSlugError
		dupEmail   *DuplicateEmailError
		notFound   *NotFoundError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &dupSlug), errors.As(err, &dupEmail):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe text for err, taken from the classified
// error itself rather than any wrapping context. Unclassified errors get
// fallback so store internals do not leak.
func Message(err error, fallback string) string {
	var (
		validation *ValidationError
		dupSlug    *DuplicateSlugError
		dupEmail   *DuplicateEmailError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &dupSlug):
		return dupSlug.Error()
	case errors.As(err, &dupEmail):
		return dupEmail.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	}
	return fallback
}
