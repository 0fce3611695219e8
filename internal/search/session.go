// Package search runs the interactive transaction search: filter edits
// go through the reducer, searches are debounced, and only the response
// to the latest search is delivered.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/debounce"
	"expenses/internal/log"
	"expenses/internal/query"
	"expenses/internal/txnclient"
)

// DefaultLimit is the page size of the edit page.
const DefaultLimit = 20

// Fetcher loads one page of transactions. *txnclient.Client satisfies it.
type Fetcher interface {
	FetchTransactions(ctx context.Context, f query.Filters, limit int) (txnclient.Page, error)
}

// Result is the outcome of one search.
type Result struct {
	Query   string
	Filters query.Filters
	Txns    []core.Transaction
	Err     error
}

type Config struct {
	Window time.Duration
	Limit  int
}

type Session struct {
	fetcher Fetcher
	deliver func(Result)
	limit   int
	logger  *log.Logger

	base     context.Context
	stop     context.CancelFunc
	debounce *debounce.Debouncer[query.Filters]
	seq      debounce.Sequencer
	wg       sync.WaitGroup

	mu       sync.Mutex
	filters  query.Filters
	inflight context.CancelFunc
}

// NewSession starts from initial filters. deliver is called from a
// background goroutine.
func NewSession(ctx context.Context, fetcher Fetcher, initial query.Filters, cfg Config, deliver func(Result)) *Session {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	base, stop := context.WithCancel(ctx)
	s := &Session{
		fetcher: fetcher,
		deliver: deliver,
		limit:   cfg.Limit,
		logger:  log.Default().WithComponent(log.ComponentSearch),
		base:    base,
		stop:    stop,
		filters: initial,
	}
	s.debounce = debounce.New(cfg.Window, s.search)
	return s
}

// Dispatch applies msg and schedules a search. It returns the new state.
func (s *Session) Dispatch(msg query.Msg) query.Filters {
	s.mu.Lock()
	s.filters = query.Update(s.filters, msg)
	f := s.filters
	s.mu.Unlock()
	s.debounce.Trigger(f)
	return f
}

// Filters returns the current filter state.
func (s *Session) Filters() query.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Flush runs the pending search now instead of waiting for the window.
func (s *Session) Flush() {
	s.debounce.Flush()
}

// Search runs a search for the current state immediately.
func (s *Session) Search() {
	s.search(s.Filters())
}

// Close cancels pending and in-flight searches and waits for them.
func (s *Session) Close() {
	s.debounce.Stop()
	s.stop()
	s.wg.Wait()
}

func (s *Session) search(f query.Filters) {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(s.base)
	defer cancel()

	// The newest token must also be the last search to claim inflight,
	// or an older search could cancel it.
	s.mu.Lock()
	token := s.seq.Next()
	if s.inflight != nil {
		s.inflight()
	}
	s.inflight = cancel
	s.mu.Unlock()

	q := query.Encode(f)
	page, err := s.fetcher.FetchTransactions(ctx, f, s.limit)
	if !s.seq.IsLatest(token) || ctx.Err() != nil {
		s.logger.Debug("Dropping stale search result", slog.String(log.FieldQuery, q))
		return
	}
	s.deliver(Result{Query: q, Filters: f, Txns: page.Txns, Err: err})
}
