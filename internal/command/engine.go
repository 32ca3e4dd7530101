// Package command parses the "::"-delimited command grammar, checks
// the caller's role against the capability table, and routes into the
// file store, lock manager, and request broker.
package command

import (
	"context"
	"fmt"
	"sync"

	"filegate/internal/broker"
	"filegate/internal/lock"
	"filegate/internal/model"
	"filegate/internal/store"
)

// Engine executes parsed commands against the core components. The
// store and the lock manager each guard their own state; the engine
// owns a per-file mutex so that check-then-act pairs spanning both
// (existence check + acquire, lock guard + mutate) cannot interleave.
type Engine struct {
	files    store.FileStore
	locks    lock.Locker
	requests *broker.Broker

	mu    sync.Mutex
	names map[string]*sync.Mutex
}

// NewEngine creates an Engine.
func NewEngine(files store.FileStore, locks lock.Locker, requests *broker.Broker) *Engine {
	return &Engine{
		files:    files,
		locks:    locks,
		requests: requests,
		names:    make(map[string]*sync.Mutex),
	}
}

// guard returns the mutex serializing mutations of name. Reads stay
// off this path; they are tracked by reader counts instead.
func (e *Engine) guard(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.names[name]
	if !ok {
		m = &sync.Mutex{}
		e.names[name] = m
	}
	return m
}

// Dispatch parses, authorizes, and executes one command for the given
// caller. Domain errors come back as fail Results; Dispatch itself
// never fails the process.
func (e *Engine) Dispatch(ctx context.Context, raw, username string, role model.Role) Result {
	cmd, err := Parse(raw)
	if err != nil {
		return failure(err)
	}
	if !Allowed(role, cmd.Action) {
		return failure(fmt.Errorf("%w: %s may not %s", ErrForbidden, role, cmd.Action))
	}

	switch cmd.Action {
	case ActionList:
		return e.list(ctx)
	case ActionRead:
		return e.read(ctx, cmd.Filename)
	case ActionCreate:
		return e.create(ctx, cmd.Filename, *cmd.Content)
	case ActionEdit:
		return e.edit(ctx, username, cmd.Filename, *cmd.Content)
	case ActionDelete:
		return e.delete(ctx, cmd.Filename)
	case ActionLock:
		return e.lock(ctx, username, cmd.Filename)
	case ActionUnlock:
		return e.unlock(username, cmd.Filename)
	case ActionMakeRequest:
		return e.makeRequest(ctx, username, cmd)
	case ActionListRequests:
		return e.listRequests(ctx, cmd.StatusFilter)
	case ActionHandleRequest:
		return e.handleRequest(ctx, username, cmd.RequestID, cmd.Approve)
	case ActionLogout:
		return e.logout(username)
	}

	return failure(fmt.Errorf("%w: unhandled action %q", ErrBadCommand, cmd.Action))
}

func (e *Engine) list(ctx context.Context) Result {
	names, err := e.files.List(ctx)
	if err != nil {
		return failure(err)
	}
	if names == nil {
		names = []string{}
	}
	locked, readers := e.locks.Snapshot()
	return Result{
		Status:      StatusSuccess,
		Files:       names,
		LockedFiles: locked,
		Readers:     readers,
	}
}

func (e *Engine) read(ctx context.Context, name string) Result {
	// The reader count covers the whole call; the deferred EndRead
	// pairs the BeginRead on every exit path, errors included.
	e.locks.BeginRead(name)
	defer e.locks.EndRead(name)

	f, err := e.files.Read(ctx, name)
	if err != nil {
		return failure(err)
	}
	return Result{Status: StatusSuccess, Content: &f.Content, Version: &f.Version}
}

func (e *Engine) create(ctx context.Context, name, content string) Result {
	m := e.guard(name)
	m.Lock()
	defer m.Unlock()

	f, err := e.files.Create(ctx, name, content)
	if err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("file %q created (version %d)", f.Name, f.Version))
}

func (e *Engine) edit(ctx context.Context, user, name, content string) Result {
	m := e.guard(name)
	m.Lock()
	defer m.Unlock()

	if err := e.locks.CheckWrite(name, user); err != nil {
		return failure(err)
	}
	f, err := e.files.Update(ctx, name, content)
	if err != nil {
		return failure(err)
	}
	res := success(fmt.Sprintf("file %q updated", f.Name))
	res.Version = &f.Version
	return res
}

func (e *Engine) delete(ctx context.Context, name string) Result {
	m := e.guard(name)
	m.Lock()
	defer m.Unlock()

	if err := e.locks.CheckDelete(name); err != nil {
		return failure(err)
	}
	if err := e.files.Delete(ctx, name); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("file %q deleted", name))
}

func (e *Engine) lock(ctx context.Context, user, name string) Result {
	m := e.guard(name)
	m.Lock()
	defer m.Unlock()

	// A lock may exist only for a file that exists.
	if _, err := e.files.Read(ctx, name); err != nil {
		return failure(err)
	}
	if err := e.locks.Acquire(name, user); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("file %q locked by %s", name, user))
}

func (e *Engine) unlock(user, name string) Result {
	// Admins may force-unlock locks they do not hold.
	if err := e.locks.Release(name, user, true); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("file %q unlocked", name))
}

func (e *Engine) makeRequest(ctx context.Context, user string, cmd *Command) Result {
	req, err := e.requests.Submit(ctx, user, cmd.RequestAction, cmd.Filename, cmd.Content)
	if err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("request #%d submitted", req.ID))
}

func (e *Engine) listRequests(ctx context.Context, filter model.RequestStatus) Result {
	reqs, err := e.requests.List(ctx, filter)
	if err != nil {
		return failure(err)
	}
	return Result{Status: StatusSuccess, Requests: reqs}
}

func (e *Engine) handleRequest(ctx context.Context, admin string, id int64, approve bool) Result {
	req, err := e.requests.Resolve(ctx, id, approve)
	if err != nil {
		return failure(err)
	}
	if !approve {
		return success(fmt.Sprintf("request #%d rejected", req.ID))
	}

	// The request stays approved even when the re-dispatched action
	// fails; approval and execution are distinct outcomes.
	if err := e.apply(ctx, admin, req); err != nil {
		return failure(fmt.Errorf("request #%d approved, but execution failed: %w", req.ID, err))
	}
	return success(fmt.Sprintf("request #%d approved", req.ID))
}

// apply re-dispatches an approved request against the store and lock
// manager exactly as if the resolving admin had issued it directly.
func (e *Engine) apply(ctx context.Context, admin string, req *model.ChangeRequest) error {
	m := e.guard(req.Filename)
	m.Lock()
	defer m.Unlock()

	switch req.Action {
	case model.RequestCreate:
		_, err := e.files.Create(ctx, req.Filename, *req.Content)
		return err
	case model.RequestEdit:
		if err := e.locks.CheckWrite(req.Filename, admin); err != nil {
			return err
		}
		_, err := e.files.Update(ctx, req.Filename, *req.Content)
		return err
	case model.RequestDelete:
		if err := e.locks.CheckDelete(req.Filename); err != nil {
			return err
		}
		return e.files.Delete(ctx, req.Filename)
	}
	return fmt.Errorf("%w: %q", broker.ErrInvalidAction, req.Action)
}

func (e *Engine) logout(user string) Result {
	released := e.locks.ReleaseAllHeldBy(user)
	if len(released) > 0 {
		return success(fmt.Sprintf("logged out; released %d lock(s)", len(released)))
	}
	return success("logged out")
}
