// Package api serves the transactions backend consumed by the web UI and
// the command line client.
package api

import (
	"context"
	"net/http"
	"time"

	"expenses/internal/log"
	"expenses/internal/middleware/trace"
	"expenses/internal/overview"
	"expenses/internal/storage"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Store is the persistence the API needs.
type Store interface {
	CreateTxn(ctx context.Context, t storage.Txn) (int64, error)
	QueryTxns(ctx context.Context, q storage.TxnQuery) ([]storage.Txn, error)
	QuerySimilar(ctx context.Context, ids []int64, q storage.TxnQuery) (storage.SimilarTxns, error)
	AddTags(ctx context.Context, ids []int64, tags []string) error
	RemoveTags(ctx context.Context, ids []int64, tags []string) error
	ClearTags(ctx context.Context, ids []int64) error
	Overview(ctx context.Context) ([]overview.Row, error)
	ExpensesByYearTag(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error)
	Ping(ctx context.Context) error
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization",
	"Access-Control-Allow-Methods": "POST, GET, OPTIONS, PUT, PATCH, DELETE",
}

type Server struct {
	store  Store
	tags   *TagService
	logger *log.Logger
}

func NewServer(store Store, tags *TagService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:  store,
		tags:   tags,
		logger: logger.WithComponent(log.ComponentAPI),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(trace.NewMiddleware(s.logger.WithComponent(log.ComponentHTTP), trace.ClientIP).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	for k, v := range corsHeaders {
		r.Use(chimw.SetHeader(k, v))
	}

	r.Get("/healthz", s.health)
	r.Route("/txns", func(r chi.Router) {
		r.Get("/", s.getTxns)
		r.Post("/", s.postTxn)
		r.Options("/", cors)
		r.Patch("/tags", s.patchTags)
		r.Options("/tags", cors)
		r.Get("/similar", s.getSimilar)
		r.Get("/overview", s.getOverview)
		r.Get("/yearly", s.getYearly)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func cors(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}
