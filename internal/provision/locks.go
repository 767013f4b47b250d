package provision

import "sync"

// Named locks guarding the host's shared mutable state, per spec §4.6.7 /
// §5. Promoting these to file locks on a well-known path is the documented
// path to multi-process safety (design note, spec §9); this implementation
// serializes within one process.
const (
	LockUIDAllocation    = "uid-allocation"
	LockSubuidAllocation = "subuid-allocation"
	LockSubidConfig      = "subid-config"
)

// LockRegistry is a process-wide named-mutex registry. Each name is a plain
// sync.Mutex, so waiters are not guaranteed to acquire it in FIFO order;
// callers must not re-acquire the same name while already holding it.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry constructs an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *LockRegistry) named(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[name]
	if !ok {
		m = &sync.Mutex{}
		r.locks[name] = m
	}
	return m
}

// With runs fn while holding the named lock.
func (r *LockRegistry) With(name string, fn func() error) error {
	m := r.named(name)
	m.Lock()
	defer m.Unlock()
	return fn()
}
