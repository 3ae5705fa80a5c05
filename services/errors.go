package services

import (
	"net/http"
)

// Kind says who is at fault for a failure and therefore whether retrying
// the same request can help.
type Kind string

const (
	CallerFault          Kind = "caller_fault"
	ExternalServiceFault Kind = "external_service_fault"
	PersistenceFault     Kind = "persistence_fault"
	AuthorizationFault   Kind = "authorization_fault"
)

type Code string

const (
	CodeNoImage               Code = "NoImage"
	CodeInvalidInput          Code = "InvalidInput"
	CodeOffTopicOrAbusive     Code = "OffTopicOrAbusive"
	CodeInvalidLocation       Code = "InvalidLocation"
	CodeGeoServiceUnavailable Code = "GeoServiceUnavailable"
	CodeNoPotholeDetected     Code = "NoPotholeDetected"
	CodeClassifierUnavailable Code = "ClassifierUnavailable"
	CodeUploadFailed          Code = "UploadFailed"
	CodeAuthRequired          Code = "AuthRequired"
	CodeForbidden             Code = "Forbidden"
	CodeNotFound              Code = "NotFound"
	CodeInvalidTransition     Code = "InvalidTransition"
	CodePersistenceFailed     Code = "PersistenceFailed"
)

// Error is the labelled failure every gate and triage step returns.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that errors.Is(err, ErrNoImage) holds for any
// error carrying that code, whatever its message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Retryable reports whether resubmitting the unchanged request may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == ExternalServiceFault || e.Kind == PersistenceFault
}

func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeNoPotholeDetected, CodeInvalidLocation, CodeOffTopicOrAbusive:
		return http.StatusUnprocessableEntity
	case CodeGeoServiceUnavailable, CodeClassifierUnavailable:
		return http.StatusServiceUnavailable
	case CodeUploadFailed:
		return http.StatusBadGateway
	}
	switch e.Kind {
	case CallerFault:
		return http.StatusBadRequest
	case AuthorizationFault:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

var (
	ErrNoImage               = &Error{Kind: CallerFault, Code: CodeNoImage, Message: "Please take or upload at least one picture of the issue"}
	ErrInvalidInput          = &Error{Kind: CallerFault, Code: CodeInvalidInput, Message: "invalid input"}
	ErrOffTopicOrAbusive     = &Error{Kind: CallerFault, Code: CodeOffTopicOrAbusive, Message: "report content was rejected"}
	ErrInvalidLocation       = &Error{Kind: CallerFault, Code: CodeInvalidLocation, Message: "location could not be found, please enter a real address"}
	ErrGeoServiceUnavailable = &Error{Kind: ExternalServiceFault, Code: CodeGeoServiceUnavailable, Message: "location service is unavailable, please try again"}
	ErrNoPotholeDetected     = &Error{Kind: CallerFault, Code: CodeNoPotholeDetected, Message: "no pothole was detected in the photo"}
	ErrClassifierUnavailable = &Error{Kind: ExternalServiceFault, Code: CodeClassifierUnavailable, Message: "image analysis is unavailable, please try again"}
	ErrUploadFailed          = &Error{Kind: ExternalServiceFault, Code: CodeUploadFailed, Message: "image upload failed, please try again"}
	ErrAuthRequired          = &Error{Kind: CallerFault, Code: CodeAuthRequired, Message: "User not authenticated"}
	ErrForbidden             = &Error{Kind: AuthorizationFault, Code: CodeForbidden, Message: "you are not allowed to perform this action"}
	ErrNotFound              = &Error{Kind: CallerFault, Code: CodeNotFound, Message: "Issue not found"}
	ErrInvalidTransition     = &Error{Kind: CallerFault, Code: CodeInvalidTransition, Message: "transition not allowed from the current state"}
	ErrPersistenceFailed     = &Error{Kind: PersistenceFault, Code: CodePersistenceFailed, Message: "saving failed"}
)

// withCause returns a copy of base wrapping err.
func withCause(base *Error, err error) *Error {
	e := *base
	e.Err = err
	return &e
}

// withMessage returns a copy of base with a more specific message.
func withMessage(base *Error, msg string) *Error {
	e := *base
	e.Message = msg
	return &e
}

// persistence labels a data-store failure, keeping its text for the client.
func persistence(err error) *Error {
	return withMessage(withCause(ErrPersistenceFailed, err), err.Error())
}
