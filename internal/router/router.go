package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/magmedia/brewbuddy/internal/metrics"
	"github.com/magmedia/brewbuddy/internal/middleware"
	"github.com/magmedia/brewbuddy/internal/proxy"
	"github.com/magmedia/brewbuddy/internal/web"
)

// Options lists everything the router mounts.
type Options struct {
	Relay          *proxy.Relay
	Metrics        *metrics.Metrics
	Web            *web.Handler
	Logging        *middleware.LoggingMiddleware
	AllowedOrigins []string
	StaticDir      string
	Started        time.Time
}

func New(opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if opts.Logging != nil {
		r.Use(opts.Logging.LogRequest)
	}

	r.Get("/health", proxy.HealthCheck(opts.Started))
	if opts.Metrics != nil {
		r.Get("/metrics", opts.Metrics.Handler())
	}

	// The relay answers every method itself: OPTIONS preflight, POST, 405.
	r.Handle("/api/chat", proxy.NewHTTPHandler(opts.Relay, opts.AllowedOrigins))

	r.Get("/", opts.Web.Page)
	r.Post("/", opts.Web.Turn)
	r.Handle("/assets/*", web.Assets())

	spa := web.SPA(opts.StaticDir, http.HandlerFunc(opts.Web.Page))
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			spa.ServeHTTP(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
	})

	return r
}
