package app

import "errors"

// Sentinel kinds. Every error a service returns to a caller either wraps one
// of these or is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrUsernameExists    = newError(ErrConflict, "username already exists")
	ErrEmailExists       = newError(ErrConflict, "email already exists")
	ErrAccountExists     = newError(ErrConflict, "username or email already exists")
	ErrInvalidCredential = newError(ErrUnauthorized, "invalid username or password")
	ErrInvalidToken      = newError(ErrUnauthorized, "invalid or expired token")
	ErrUserNotFound      = newError(ErrNotFound, "user not found")
	ErrWrongPassword     = newError(ErrValidation, "current password is incorrect")

	ErrAssetNotFound    = newError(ErrNotFound, "asset not found")
	ErrFileNotFound     = newError(ErrNotFound, "file not found")
	ErrNotAssetOwner    = newError(ErrForbidden, "asset belongs to another user")
	ErrFileRequired     = newError(ErrValidation, "file is required")
	ErrFileTooLarge     = newError(ErrValidation, "file exceeds the upload size limit")
	ErrFileTypeRejected = newError(ErrValidation, "file type is not allowed")

	ErrCategoryNotFound = newError(ErrNotFound, "category not found")
	ErrCategoryExists   = newError(ErrConflict, "category name already exists")
	ErrUnknownCategory  = newError(ErrValidation, "category does not exist")
	ErrTagNotFound      = newError(ErrNotFound, "tag not found")
	ErrTagExists        = newError(ErrConflict, "tag name already exists")
	ErrUnknownTag       = newError(ErrValidation, "one or more tags do not exist")
)

// Error is a client-facing message classified by one of the sentinel kinds.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}
