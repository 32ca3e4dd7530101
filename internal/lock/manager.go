package lock

import (
	"fmt"
	"sync"
	"time"

	"filegate/internal/model"
)

// Manager is the in-process Locker. Lock words and reader counts are
// ephemeral per-process state guarded by one mutex; every critical
// section is a map operation, so a single lock word is enough for the
// contract that per-file checks and transitions are atomic.
type Manager struct {
	mu      sync.Mutex
	locks   map[string]*model.FileLock
	readers map[string]int
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		locks:   make(map[string]*model.FileLock),
		readers: make(map[string]int),
	}
}

func (m *Manager) Acquire(name, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.locks[name]; ok {
		if existing.Holder == holder {
			// Idempotent re-acquire by the same user.
			return nil
		}
		return fmt.Errorf("%w by %s", ErrAlreadyLocked, existing.Holder)
	}

	m.locks[name] = &model.FileLock{
		Filename:   name,
		Holder:     holder,
		AcquiredAt: time.Now(),
	}
	return nil
}

func (m *Manager) Release(name, holder string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[name]
	if !ok {
		return ErrNotLocked
	}
	if existing.Holder != holder && !force {
		return ErrNotLockOwner
	}
	delete(m.locks, name)
	return nil
}

func (m *Manager) BeginRead(name string) {
	m.mu.Lock()
	m.readers[name]++
	m.mu.Unlock()
}

func (m *Manager) EndRead(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readers[name] > 0 {
		m.readers[name]--
	}
	if m.readers[name] == 0 {
		delete(m.readers, name)
	}
}

func (m *Manager) CheckWrite(name, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[name]
	if !ok || existing.Holder == user {
		return nil
	}
	return fmt.Errorf("%w by %s", ErrFileLocked, existing.Holder)
}

func (m *Manager) CheckDelete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.locks[name]; ok {
		return fmt.Errorf("%w by %s", ErrFileLocked, existing.Holder)
	}
	if n := m.readers[name]; n > 0 {
		return fmt.Errorf("%w by %d users", ErrFileInUse, n)
	}
	return nil
}

func (m *Manager) ReleaseAllHeldBy(holder string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var released []string
	for name, l := range m.locks {
		if l.Holder == holder {
			released = append(released, name)
			delete(m.locks, name)
		}
	}
	return released
}

func (m *Manager) Holder(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[name]
	if !ok {
		return "", false
	}
	return existing.Holder, true
}

func (m *Manager) Snapshot() (map[string]string, map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	locked := make(map[string]string, len(m.locks))
	for name, l := range m.locks {
		locked[name] = l.Holder
	}
	readers := make(map[string]int, len(m.readers))
	for name, n := range m.readers {
		if n > 0 {
			readers[name] = n
		}
	}
	return locked, readers
}
