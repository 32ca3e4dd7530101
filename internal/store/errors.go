package store

import (
	"errors"
)

var (
	// ErrNotFound is returned when no file exists under the given name.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists is returned when creating a file whose name is taken.
	ErrAlreadyExists = errors.New("file already exists")
)
