// Package http serves the HTMX web UI: the edit page with its tag dialog,
// the overview dashboard and the yearly report. All data comes from the
// transactions backend through a Backend.
package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/overview"
	"expenses/internal/query"
	"expenses/internal/tagedit"
	"expenses/internal/txnclient"
	appweb "expenses/web"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Backend is the part of the transactions API the UI uses.
// *txnclient.Client satisfies it.
type Backend interface {
	FetchTransactions(ctx context.Context, f query.Filters, limit int) (txnclient.Page, error)
	FetchSimilar(ctx context.Context, f query.Filters, limit int) (txnclient.Similar, error)
	PatchTags(ctx context.Context, edit core.TagEdit) error
	FetchOverview(ctx context.Context) ([]overview.Row, error)
	FetchYearly(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error)
}

type Config struct {
	Addr               string
	PageLimit          int
	SessionTTL         time.Duration
	SessionLimit       int
	RateLimitPerMinute int
}

func (c Config) withDefaults() Config {
	if c.PageLimit <= 0 {
		c.PageLimit = 100
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.SessionLimit <= 0 {
		c.SessionLimit = 256
	}
	return c
}

type Server struct {
	http.Server
	cfg       Config
	backend   Backend
	templates *template.Template
	logger    *log.Logger
	slog      *log.StructuredLogger

	limiter  *ratelimit.Limiter
	sessions *cache.LRUCache[*tagedit.Submitter]
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Call Shutdown to stop the background cleanup goroutines.
func NewServer(cfg Config, backend Backend, logger *log.Logger) *Server {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		cfg:      cfg,
		backend:  backend,
		logger:   logger,
		slog:     log.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		sessions: cache.NewLRUCache[*tagedit.Submitter](cfg.SessionLimit, cfg.SessionTTL),
		caches:   cache.NewManager(),
	}
	s.caches.Register(s.sessions)
	s.caches.StartCleanup(5 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(trace.NewMiddleware(s.logger, trace.ClientIP).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.CacheStatic(time.Hour)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/edit", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(trace.ClientIP, s.rateLimited, http.MethodPost))

		r.Get("/edit", s.handleEdit)
		r.Get("/edit/results", s.handleResults)
		r.Get("/edit/similar", s.handleSimilar)
		r.Get("/edit/dialog", s.handleDialog)
		r.Post("/edit/dialog", s.handleDialogSubmit)
		r.Post("/edit/submit", s.handleSubmit)
		r.Get("/overview", s.handleOverview)
		r.Get("/yearly", s.handleYearly)
	})
	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, trace.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		TriggerErrorNotification("Too many requests").
		Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once templates are loaded.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a named template, or answers 500 when it fails before
// anything was written.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.slog.LogError(r.Context(), "Template render failed", err, log.OpRender,
			log.NewFields().WithComponent(log.ComponentTemplate))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// fragment renders a partial for an HTMX swap.
func (s *Server) fragment(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
