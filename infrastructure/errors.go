package infrastructure

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is a domain failure carrying the HTTP status it translates to.
// Every handler failure flows through WriteError so clients only ever see
// a JSON body of the form {"message": "..."}.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func Conflict(message string) *Error {
	return NewError(http.StatusConflict, message)
}

func InvalidCredentials() *Error {
	return NewError(http.StatusBadRequest, "wrong email or password")
}

func Unauthenticated() *Error {
	return NewError(http.StatusUnauthorized, "unauthorized user")
}

func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}

func UnprocessableEntity(message string) *Error {
	return NewError(http.StatusUnprocessableEntity, message)
}

func UpstreamError(message string) *Error {
	return NewError(http.StatusBadGateway, message)
}

func ServerError() *Error {
	return NewError(http.StatusInternalServerError, "Oops.. something went wrong")
}

// WriteError translates any error into the client-facing JSON shape.
// Errors that are not *Error default to a generic 500 so internal detail
// never leaks.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		domainErr = NewError(http.StatusInternalServerError, "internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domainErr.Status)
	_ = json.NewEncoder(w).Encode(domainErr)
}

// Handler is an http.HandlerFunc that reports failure instead of writing
// it. The adapter keeps status translation in one place.
type Handler func(w http.ResponseWriter, r *http.Request) error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		WriteError(w, err)
	}
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
