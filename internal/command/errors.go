package command

import (
	"errors"
)

var (
	// ErrForbidden is returned when the caller's role does not permit
	// the action. No component state is touched.
	ErrForbidden = errors.New("forbidden")

	// ErrBadCommand is returned on a malformed command string: wrong
	// field count, unknown action, invalid filename or id.
	ErrBadCommand = errors.New("bad command")
)
