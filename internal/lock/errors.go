package lock

import (
	"errors"
)

var (
	// ErrAlreadyLocked is returned when another user holds the lock.
	ErrAlreadyLocked = errors.New("file is already locked")

	// ErrNotLocked is returned when releasing a file with no lock.
	ErrNotLocked = errors.New("file is not locked")

	// ErrNotLockOwner is returned when a non-holder tries to release
	// a lock without force.
	ErrNotLockOwner = errors.New("lock is held by another user")

	// ErrFileLocked is returned when a write or delete is blocked by
	// a held lock.
	ErrFileLocked = errors.New("file is locked")

	// ErrFileInUse is returned when a delete is blocked by active readers.
	ErrFileInUse = errors.New("file is currently being read")
)
