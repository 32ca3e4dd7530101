package broker

import (
	"errors"
)

var (
	// ErrNotFound is returned when no request exists with the given id.
	ErrNotFound = errors.New("request not found")

	// ErrAlreadyResolved is returned when resolving a request that has
	// already left the pending state.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrInvalidAction is returned when a submitted action is not one
	// of CREATE, EDIT, DELETE.
	ErrInvalidAction = errors.New("invalid request action")

	// ErrMissingContent is returned when a CREATE or EDIT request is
	// submitted without content.
	ErrMissingContent = errors.New("request requires content")
)
