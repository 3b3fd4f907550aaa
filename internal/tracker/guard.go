package tracker

import "sync"

// inflightGuard is the server-side version of the client's "updating" flag:
// at most one transition per entity key at a time within this process. It is
// advisory only — it does not serialize writes from two server instances;
// those fall through to the status-guarded UPDATEs in the store.
type inflightGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{busy: make(map[string]struct{})}
}

// acquire marks key as busy. Returns false if a transition for the key is
// already running.
func (g *inflightGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.busy[key]; taken {
		return false
	}
	g.busy[key] = struct{}{}
	return true
}

func (g *inflightGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}
