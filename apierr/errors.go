// Package apierr defines the typed failures surfaced at the API boundary.
// Every error carries the {type, title, detail} triple returned to clients
// plus the HTTP status used when the failure crosses the HTTP surface.
package apierr

import "net/http"

const (
	TypeAuth       = "auth"
	TypeValidation = "validation"
	TypeNotFound   = "not_found"
	TypeConflict   = "conflict"
	TypeConnection = "connection"
	TypeInternal   = "internal"
)

type Error struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Title + ": " + e.Detail
	}
	return e.Title
}

func newError(errType, title, detail string, status int) *Error {
	return &Error{Type: errType, Title: title, Detail: detail, Status: status}
}

func InvalidCredentials(detail string) *Error {
	return newError(TypeAuth, "InvalidCredentials", detail, http.StatusUnauthorized)
}

func InvalidToken(detail string) *Error {
	return newError(TypeAuth, "InvalidToken", detail, http.StatusUnauthorized)
}

func ExpiredToken(detail string) *Error {
	return newError(TypeAuth, "ExpiredToken", detail, http.StatusUnauthorized)
}

func RevokedSession(detail string) *Error {
	return newError(TypeAuth, "RevokedSession", detail, http.StatusUnauthorized)
}

func Unauthorized(detail string) *Error {
	return newError(TypeAuth, "Unauthorized", detail, http.StatusUnauthorized)
}

func MissingChatID(detail string) *Error {
	return newError(TypeValidation, "MissingChatId", detail, http.StatusBadRequest)
}

func EmptyContent(detail string) *Error {
	return newError(TypeValidation, "EmptyContent", detail, http.StatusBadRequest)
}

func Validation(detail string) *Error {
	return newError(TypeValidation, "ValidationError", detail, http.StatusBadRequest)
}

func UserNotFound(detail string) *Error {
	return newError(TypeNotFound, "UserNotFound", detail, http.StatusNotFound)
}

func ChatNotFound(detail string) *Error {
	return newError(TypeNotFound, "ChatNotFound", detail, http.StatusNotFound)
}

func DuplicateUsername(detail string) *Error {
	return newError(TypeConflict, "DuplicateUsername", detail, http.StatusConflict)
}

func DuplicateEmail(detail string) *Error {
	return newError(TypeConflict, "DuplicateEmail", detail, http.StatusConflict)
}

func NotStarted(detail string) *Error {
	return newError(TypeConnection, "NotStarted", detail, http.StatusConflict)
}

func StillConnecting(detail string) *Error {
	return newError(TypeConnection, "StillConnecting", detail, http.StatusConflict)
}

// Internal deliberately carries no detail: unclassified failures are
// logged server-side and must not leak context to the caller.
func Internal() *Error {
	return newError(TypeInternal, "InternalError", "", http.StatusInternalServerError)
}
