// Package httpapi is the HTTP boundary: request identity resolution, rate
// limiting, multipart decoding, and the single place where the service error
// taxonomy is mapped to status codes. Handlers stay thin; the semantics live
// in the services.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/admin"
	"github.com/dmitrijs2005/cryptshare/internal/server/config"
	"github.com/dmitrijs2005/cryptshare/internal/server/metrics"
	"github.com/dmitrijs2005/cryptshare/internal/server/ratelimit"
	"github.com/dmitrijs2005/cryptshare/internal/server/resources"
	"github.com/dmitrijs2005/cryptshare/internal/server/uploadguard"
)

// sessionCookie names the admin session cookie.
const sessionCookie = "id"

// Server wires the services to their routes.
type Server struct {
	config    *config.Config
	resources *resources.Service
	admin     *admin.Service
	limiter   *ratelimit.Limiter
	guard     *uploadguard.Guard
	logger    logging.Logger
	metrics   metrics.Metrics
}

func New(cfg *config.Config, res *resources.Service, adm *admin.Service,
	lim *ratelimit.Limiter, guard *uploadguard.Guard,
	logger logging.Logger, mt metrics.Metrics) *Server {
	return &Server{
		config:    cfg,
		resources: res,
		admin:     adm,
		limiter:   lim,
		guard:     guard,
		logger:    logger,
		metrics:   mt,
	}
}

// Handler builds the route table. Every application route passes through the
// identity and rate-limit middleware; the scrape endpoint does not, so a
// drained allowance cannot blind monitoring.
func (s *Server) Handler() http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("POST /upload", s.handleUpload)
	app.HandleFunc("GET /download", s.handleDownload)
	app.HandleFunc("GET /file", s.handleFileInfo)
	app.HandleFunc("POST /delete", s.handleDelete)
	app.HandleFunc("POST /admin/login", s.handleAdminLogin)
	app.HandleFunc("POST /admin/logout", s.handleAdminLogout)
	app.HandleFunc("GET /admin/overview", s.handleAdminOverview)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", s.withRequestLog(s.withIdentity(s.withRateLimit(app))))
	return root
}
