// Package lock tracks per-file write locks and reader counts in
// process memory. The lock table is authoritative only while a single
// process serves every command; running multiple instances against a
// shared DynamoDB store loses mutual exclusion, so deployments must
// pin the function to one concurrent execution or replace Manager
// with a shared lock table.
package lock

// Locker tracks per-file exclusive write locks and concurrent reader
// counts. All operations are non-blocking fast paths: contention is
// reported as an error, never queued. Locks have no expiry; they are
// released explicitly or swept when their holder logs out.
type Locker interface {
	// Acquire takes the write lock on name for holder. Re-acquiring a
	// lock already held by the same user succeeds. A lock held by
	// anyone else fails with ErrAlreadyLocked.
	Acquire(name, holder string) error

	// Release clears the lock. No lock fails with ErrNotLocked; a
	// holder mismatch fails with ErrNotLockOwner unless force is set
	// (admins may force-unlock).
	Release(name, holder string, force bool) error

	// BeginRead registers an in-flight read on name.
	BeginRead(name string)

	// EndRead unregisters an in-flight read. Callers must pair every
	// BeginRead with exactly one deferred EndRead so the count never
	// leaks, error paths included.
	EndRead(name string)

	// CheckWrite reports whether user may overwrite name right now.
	// A lock held by anyone else fails with ErrFileLocked; admins are
	// not exempt and must clear a foreign lock with a force Release
	// first.
	CheckWrite(name, user string) error

	// CheckDelete reports whether name can be deleted right now:
	// any held lock fails with ErrFileLocked, any active reader with
	// ErrFileInUse.
	CheckDelete(name string) error

	// ReleaseAllHeldBy drops every lock held by holder and returns
	// the affected filenames.
	ReleaseAllHeldBy(holder string) []string

	// Holder returns the current lock holder of name, if any.
	Holder(name string) (string, bool)

	// Snapshot returns copies of the lock table and the non-zero
	// reader counts.
	Snapshot() (locked map[string]string, readers map[string]int)
}

var _ Locker = (*Manager)(nil)
