package ratelimit

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
)

func prefix(t *testing.T, addr string) identity.Prefix {
	t.Helper()
	return identity.FromAddr(netip.MustParseAddr(addr))
}

func TestAdmit_CapBoundary(t *testing.T) {
	const cap = 5
	l := New(cap)
	p := prefix(t, "10.0.0.1")

	for i := 0; i < cap; i++ {
		assert.True(t, l.Admit(p), "request %d should be admitted", i+1)
	}
	assert.False(t, l.Admit(p), "request past the cap must be denied")
}

func TestAdmit_IdentitiesAreIndependent(t *testing.T) {
	l := New(1)
	a := prefix(t, "10.0.0.1")
	b := prefix(t, "10.0.0.2")

	assert.True(t, l.Admit(a))
	assert.False(t, l.Admit(a))
	assert.True(t, l.Admit(b), "a different identity has its own budget")
}

func TestDecay_RestoresBudget(t *testing.T) {
	const cap = 10
	l := New(cap)
	p := prefix(t, "10.0.0.1")

	for i := 0; i < cap+1; i++ {
		l.Admit(p)
	}
	// Counter is now cap+1. One decay of step D admits D-1 more requests
	// before the next rejection (the rejected request itself was counted).
	const step = 3
	l.Decay(step)

	admitted := 0
	for l.Admit(p) {
		admitted++
	}
	assert.Equal(t, step-1, admitted)
}

func TestDecay_EvictsCooledDownIdentities(t *testing.T) {
	l := New(100)
	a := prefix(t, "10.0.0.1")
	b := prefix(t, "2001:db8::1")

	l.Admit(a)
	for i := 0; i < 5; i++ {
		l.Admit(b)
	}
	assert.Equal(t, 2, l.Len())

	l.Decay(2)
	// a decayed to zero and must be gone; b is still warm.
	assert.Equal(t, 1, l.Len())

	l.Decay(100)
	assert.Equal(t, 0, l.Len())
}

func TestDecayStep(t *testing.T) {
	assert.Equal(t, uint64(10), DecayStep(960, 96))
	assert.Equal(t, uint64(1), DecayStep(50, 96), "small caps still drain")
	assert.Equal(t, uint64(1), DecayStep(10, 0))
}

func TestAdmit_Concurrent(t *testing.T) {
	const cap = 1000
	l := New(cap)
	p := prefix(t, "10.0.0.1")

	var wg sync.WaitGroup
	admitted := make(chan bool, 2*cap)
	for i := 0; i < 2*cap; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- l.Admit(p)
		}()
	}
	wg.Wait()
	close(admitted)

	ok := 0
	for a := range admitted {
		if a {
			ok++
		}
	}
	assert.Equal(t, cap, ok, "exactly cap requests are admitted under contention")
}
