package domain

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrPasswordUnchanged  = errors.New("new password must differ from the current password")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")

	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrSelfRoleChange        = errors.New("cannot change own role")
	ErrSelfDelete            = errors.New("cannot delete own account")
	ErrTargetNotFound        = errors.New("target user not found")
	ErrInvalidRole           = errors.New("invalid role")

	ErrInternal = errors.New("internal error")
)

// ErrUserNotFound is returned by repositories on a lookup miss.
var ErrUserNotFound = ErrNotFound

// InternalError wraps an unexpected failure. The message stays generic so the
// attempt's details are not exposed; Unwrap keeps the cause for logging.
type InternalError struct {
	Op  string
	Err error
}

// NewInternalError wraps err as an InternalError for operation op.
func NewInternalError(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

func (e *InternalError) Error() string {
	return ErrInternal.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInternal) match any InternalError.
func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
