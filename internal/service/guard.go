package service

import "github.com/puzpuzpuz/xsync/v3"

// ImportGuard prevents two imports of the same repository from running at
// once. The in-process implementation only covers a single server; a
// multi-instance deployment needs a shared lock behind this interface.
type ImportGuard interface {
	// TryAcquire reports whether the caller now owns id.
	TryAcquire(id string) bool
	Release(id string)
}

type memoryGuard struct {
	active *xsync.MapOf[string, struct{}]
}

// NewMemoryGuard returns an ImportGuard local to this process.
func NewMemoryGuard() ImportGuard {
	return &memoryGuard{active: xsync.NewMapOf[string, struct{}]()}
}

func (g *memoryGuard) TryAcquire(id string) bool {
	_, loaded := g.active.LoadOrStore(id, struct{}{})
	return !loaded
}

func (g *memoryGuard) Release(id string) {
	g.active.Delete(id)
}
