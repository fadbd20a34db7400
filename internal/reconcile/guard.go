package reconcile

import "sync"

// keyedGuard is a per-subscription try-lock.
type keyedGuard struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func newKeyedGuard() *keyedGuard {
	return &keyedGuard{held: make(map[int64]struct{})}
}

// TryLock claims id and reports whether it was free.
func (g *keyedGuard) TryLock(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[id]; busy {
		return false
	}
	g.held[id] = struct{}{}
	return true
}

func (g *keyedGuard) Unlock(id int64) {
	g.mu.Lock()
	delete(g.held, id)
	g.mu.Unlock()
}
