package reconciler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
	"github.com/dmitrijs2005/cryptshare/internal/server/metrics"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
	"github.com/dmitrijs2005/cryptshare/internal/server/ratelimit"
)

type fakeResources struct {
	expired    []models.Resource
	listErr    error
	destroyErr map[string]error
	destroyed  []string
}

func (f *fakeResources) ListExpired(context.Context) ([]models.Resource, error) {
	return f.expired, f.listErr
}

func (f *fakeResources) Destroy(_ context.Context, hash string) error {
	if err := f.destroyErr[hash]; err != nil {
		return err
	}
	f.destroyed = append(f.destroyed, hash)
	return nil
}

type fakeSessions struct {
	expired []models.AdminSession
	listErr error
	deleted []string
}

func (f *fakeSessions) ListExpiredSessions(context.Context) ([]models.AdminSession, error) {
	return f.expired, f.listErr
}

func (f *fakeSessions) DeleteSession(_ context.Context, digest string) error {
	f.deleted = append(f.deleted, digest)
	return nil
}

func newReconciler(res *fakeResources, sess *fakeSessions, lim *ratelimit.Limiter) (*Reconciler, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(buf, nil)))
	return New(res, sess, lim, 15*time.Minute, 960, logger, metrics.Noop{}), buf
}

func TestNew_DecayStep(t *testing.T) {
	r, _ := newReconciler(&fakeResources{}, &fakeSessions{}, ratelimit.New(960))
	// 960 requests refill over 96 fifteen-minute periods per day.
	assert.Equal(t, uint64(10), r.decayStep)
}

func TestSweep_RemovesExpired(t *testing.T) {
	res := &fakeResources{expired: []models.Resource{{Hash: "aaa"}, {Hash: "bbb"}}}
	sess := &fakeSessions{expired: []models.AdminSession{{TokenDigest: "ddd"}}}
	r, _ := newReconciler(res, sess, ratelimit.New(960))

	r.Sweep(context.Background())

	assert.Equal(t, []string{"aaa", "bbb"}, res.destroyed)
	assert.Equal(t, []string{"ddd"}, sess.deleted)
}

func TestSweep_DecaysLimiter(t *testing.T) {
	lim := ratelimit.New(960)
	p, err := identity.ParsePrefix("v4_7f000001")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		lim.Admit(p)
	}
	require.Equal(t, 1, lim.Len())

	r, _ := newReconciler(&fakeResources{}, &fakeSessions{}, lim)
	r.Sweep(context.Background())

	// Counter 5 minus decay step 10 evicts the entry.
	assert.Equal(t, 0, lim.Len())
}

func TestSweep_DestroyFailureSkipsOneResource(t *testing.T) {
	res := &fakeResources{
		expired:    []models.Resource{{Hash: "aaa"}, {Hash: "bbb"}},
		destroyErr: map[string]error{"aaa": errors.New("connection reset")},
	}
	r, buf := newReconciler(res, &fakeSessions{}, ratelimit.New(960))

	r.Sweep(context.Background())

	assert.Equal(t, []string{"bbb"}, res.destroyed)
	assert.Contains(t, buf.String(), "sweep could not remove expired file")
}

func TestSweep_ListFailureAbortsPhaseOnly(t *testing.T) {
	res := &fakeResources{listErr: errors.New("connection reset")}
	sess := &fakeSessions{expired: []models.AdminSession{{TokenDigest: "ddd"}}}
	r, buf := newReconciler(res, sess, ratelimit.New(960))

	r.Sweep(context.Background())

	// The session phase still ran.
	assert.Equal(t, []string{"ddd"}, sess.deleted)
	assert.Contains(t, buf.String(), "sweep could not list expired files")
}

func TestRun_StopsOnCancel(t *testing.T) {
	r, _ := newReconciler(&fakeResources{}, &fakeSessions{}, ratelimit.New(960))
	r.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancel")
	}
}
