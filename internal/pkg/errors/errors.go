package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	ErrRemote           = errors.New("remote request failed")
	ErrMalformed        = errors.New("malformed remote record")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrAlreadyConnected = errors.New("user already connected")
	ErrWorkspaceFull    = fmt.Errorf("%w: workspace already has the maximum number of connected users", ErrForbidden)
	ErrNotInvited       = fmt.Errorf("%w: not invited to this workspace", ErrForbidden)
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsAccessDenied reports whether err is an authorization rejection.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}
