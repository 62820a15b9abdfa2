// Package metrics defines counters for the upload/download path and the
// background sweep, backed by Prometheus in production and a no-op for tests.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures the service-level counters.
type Metrics interface {
	IncUploads(outcome string)
	IncDownloads()
	IncRateLimited()
	IncUploadGuardRejected()
	IncSweeps()
	AddReapedResources(n int)
	AddReapedSessions(n int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUploads(string)        {}
func (Noop) IncDownloads()            {}
func (Noop) IncRateLimited()          {}
func (Noop) IncUploadGuardRejected()  {}
func (Noop) IncSweeps()               {}
func (Noop) AddReapedResources(int)   {}
func (Noop) AddReapedSessions(int)    {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	uploads             *prometheus.CounterVec
	downloads           prometheus.Counter
	rateLimited         prometheus.Counter
	uploadGuardRejected prometheus.Counter
	sweeps              prometheus.Counter
	reapedResources     prometheus.Counter
	reapedSessions      prometheus.Counter
	once                sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome",
		}, []string{"outcome"}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Completed blob downloads",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rate_limited_total",
			Help:      "Requests rejected by the leaky bucket",
		}),
		uploadGuardRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_guard_rejected_total",
			Help:      "Uploads rejected because the identity was already uploading",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_sweeps_total",
			Help:      "Completed reconciler passes",
		}),
		reapedResources: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_reaped_files_total",
			Help:      "Expired files physically removed by the reconciler",
		}),
		reapedSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_reaped_sessions_total",
			Help:      "Expired admin sessions removed by the reconciler",
		}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.uploads, p.downloads, p.rateLimited,
			p.uploadGuardRejected, p.sweeps, p.reapedResources, p.reapedSessions)
	})
}

func (p *Prom) IncUploads(outcome string) { p.uploads.WithLabelValues(outcome).Inc() }
func (p *Prom) IncDownloads()             { p.downloads.Inc() }
func (p *Prom) IncRateLimited()           { p.rateLimited.Inc() }
func (p *Prom) IncUploadGuardRejected()   { p.uploadGuardRejected.Inc() }
func (p *Prom) IncSweeps()                { p.sweeps.Inc() }
func (p *Prom) AddReapedResources(n int)  { p.reapedResources.Add(float64(n)) }
func (p *Prom) AddReapedSessions(n int)   { p.reapedSessions.Add(float64(n)) }

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
