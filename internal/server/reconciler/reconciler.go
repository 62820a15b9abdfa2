// Package reconciler runs the periodic sweep: it drains the rate limiter,
// removes expired files and their blobs, and prunes expired admin sessions.
// Nothing depends on the sweep for correctness; every read path already
// treats expired rows as absent. The sweep only reclaims the space.
package reconciler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/metrics"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
	"github.com/dmitrijs2005/cryptshare/internal/server/ratelimit"
)

// ResourceStore is the slice of the resource service the sweep needs.
type ResourceStore interface {
	ListExpired(ctx context.Context) ([]models.Resource, error)
	Destroy(ctx context.Context, hash string) error
}

// SessionStore is the slice of the admin service the sweep needs.
type SessionStore interface {
	ListExpiredSessions(ctx context.Context) ([]models.AdminSession, error)
	DeleteSession(ctx context.Context, tokenDigest string) error
}

// Reconciler owns the sweep loop.
type Reconciler struct {
	resources ResourceStore
	sessions  SessionStore
	limiter   *ratelimit.Limiter
	interval  time.Duration
	decayStep uint64
	logger    logging.Logger
	metrics   metrics.Metrics
}

// New sizes the limiter decay so that a full day of sweeps drains a
// completely used allowance.
func New(res ResourceStore, sess SessionStore, lim *ratelimit.Limiter,
	interval time.Duration, dailyLimit uint64, logger logging.Logger, mt metrics.Metrics) *Reconciler {
	periods := uint64(24 * time.Hour / interval)
	return &Reconciler{
		resources: res,
		sessions:  sess,
		limiter:   lim,
		interval:  interval,
		decayStep: ratelimit.DecayStep(dailyLimit, periods),
		logger:    logger,
		metrics:   mt,
	}
}

// Run sweeps on every tick until the context is cancelled. A failed sweep is
// logged and the loop keeps going; it never exits on its own.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info(ctx, "reconciler started", "interval", r.interval, "decay_step", r.decayStep)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. The three phases are independent; a database
// failure aborts the phase it occurs in and the others still run.
func (r *Reconciler) Sweep(ctx context.Context) {
	r.metrics.IncSweeps()

	r.limiter.Decay(r.decayStep)

	r.sweepResources(ctx)
	r.sweepSessions(ctx)
}

func (r *Reconciler) sweepResources(ctx context.Context) {
	expired, err := r.resources.ListExpired(ctx)
	if err != nil {
		r.logger.Error(ctx, "sweep could not list expired files", "error", err)
		return
	}

	reaped := 0
	for i := range expired {
		if err := r.resources.Destroy(ctx, expired[i].Hash); err != nil {
			// Left in place; the next sweep sees it again.
			r.logger.Error(ctx, "sweep could not remove expired file", "hash", expired[i].Hash, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.metrics.AddReapedResources(reaped)
		r.logger.Info(ctx, "sweep removed expired files", "count", reaped)
	}
}

func (r *Reconciler) sweepSessions(ctx context.Context) {
	expired, err := r.sessions.ListExpiredSessions(ctx)
	if err != nil {
		r.logger.Error(ctx, "sweep could not list expired sessions", "error", err)
		return
	}

	reaped := 0
	for i := range expired {
		if err := r.sessions.DeleteSession(ctx, expired[i].TokenDigest); err != nil {
			r.logger.Error(ctx, "sweep could not remove expired session", "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.metrics.AddReapedSessions(reaped)
		r.logger.Info(ctx, "sweep removed expired sessions", "count", reaped)
	}
}
