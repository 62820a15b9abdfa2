// Package uploadguard enforces single-flight uploads: at most one in-progress
// upload stream per client identity. Admission is an atomic check-and-insert;
// release must run on every exit path of the guarded request, which callers
// get by deferring Leave immediately after a successful TryEnter.
package uploadguard

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
)

// Guard is safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	active map[identity.Prefix]struct{}
	logger logging.Logger
}

func New(logger logging.Logger) *Guard {
	return &Guard{
		active: make(map[identity.Prefix]struct{}),
		logger: logger,
	}
}

// TryEnter atomically checks membership and inserts. It returns false if the
// identity already has an upload in flight.
func (g *Guard) TryEnter(p identity.Prefix) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[p]; busy {
		return false
	}
	g.active[p] = struct{}{}
	return true
}

// Leave removes the identity from the active set. Leaving an identity that
// is not present indicates unbalanced guard usage; it is logged as an
// anomaly but is otherwise harmless.
func (g *Guard) Leave(ctx context.Context, p identity.Prefix) {
	g.mu.Lock()
	_, present := g.active[p]
	delete(g.active, p)
	g.mu.Unlock()

	if !present {
		g.logger.Warn(ctx, "upload guard released an identity that was not held", "identity", p.String())
	}
}

// Len reports how many identities are currently uploading.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
