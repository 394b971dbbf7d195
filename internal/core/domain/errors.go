package domain

import "errors"

// Reasons carried by ValidationError. Login failures always use
// MsgIncorrectCredentials, whether the username or the password was wrong.
const (
	MsgFieldsEmpty          = "fields can't be empty"
	MsgWeakPassword         = "password should contain 8 characters, 1 uppercase letter, 1 lowercase letter and 1 number at least"
	MsgUsernameExists       = "username already exists"
	MsgIncorrectCredentials = "incorrect credentials"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// ValidationError is a user-correctable rejection. Reason is safe to show.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StorageError wraps an infrastructure failure (user store, session store,
// hasher, timeouts). Its message is for logs only.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
