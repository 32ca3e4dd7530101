package store

import (
	"context"
	"time"
)

// File is one named text file together with its mutation counter.
// Version starts at 0 on create and increments on every successful
// content update; delete + recreate starts over at 0.
type File struct {
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	Version      int64     `json:"version"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// FileStore is the authoritative mapping of filename -> content and
// version. Each operation is atomic with respect to other FileStore
// operations on the same name. Lock and reader-count enforcement is
// the caller's concern; the store only guards its own records.
type FileStore interface {
	// Create inserts a new file with version 0. Fails with
	// ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, name, content string) (*File, error)

	// Read returns the file's content and version. Fails with
	// ErrNotFound.
	Read(ctx context.Context, name string) (*File, error)

	// Update replaces the content and increments the version. Fails
	// with ErrNotFound.
	Update(ctx context.Context, name, content string) (*File, error)

	// Delete removes the file. Fails with ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns all filenames sorted lexically.
	List(ctx context.Context) ([]string, error)
}
