package services

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindLookupMiss
	KindConfirmationRequired
	KindNotLoaded
	KindStoreWrite
	KindSubscription
	KindSessionNotFound
)

// ServiceError carries a user-facing message and the HTTP status it maps to.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Status is the HTTP status for the error kind.
func (e *ServiceError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindLookupMiss:
		return http.StatusNotFound
	case KindConfirmationRequired:
		return http.StatusPreconditionRequired
	case KindNotLoaded, KindSubscription:
		return http.StatusServiceUnavailable
	case KindStoreWrite:
		return http.StatusBadGateway
	case KindSessionNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}

func validationError(msg string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: msg}
}
