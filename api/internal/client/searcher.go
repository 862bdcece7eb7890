package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"stockroom/api/internal/core/domain"
)

// DefaultSearchDelay is the quiet period before a typed query is sent.
const DefaultSearchDelay = 300 * time.Millisecond

// ProductSearcher is the slice of *Client the Searcher needs.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
}

// Searcher debounces search-as-you-type. Only the latest query ever reports.
// Reports are serialized, so the latest query always reports last. onResult
// must not call Query with a blank query.
type Searcher struct {
	api      ProductSearcher
	delay    time.Duration
	onResult func(query string, products []domain.Product, err error)

	// deliver is held across onResult. Never take it while holding mu.
	deliver sync.Mutex

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

func NewSearcher(api ProductSearcher, delay time.Duration, onResult func(string, []domain.Product, error)) *Searcher {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Searcher{api: api, delay: delay, onResult: onResult}
}

// Query replaces any pending or in-flight search with query.
// A blank query reports no results immediately and sends nothing.
func (s *Searcher) Query(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.seq++
	seq := s.seq

	if query == "" {
		s.mu.Unlock()
		s.report(context.Background(), seq, query, []domain.Product{}, nil)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = time.AfterFunc(s.delay, func() {
		products, err := s.api.SearchProducts(ctx, query)
		s.report(ctx, seq, query, products, err)
	})
	s.mu.Unlock()
}

// report hands a result to onResult unless a newer query has been made since.
// The check and the callback run under deliver, so a result that was current
// when it started reporting finishes before any newer one is reported.
func (s *Searcher) report(ctx context.Context, seq uint64, query string, products []domain.Product, err error) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale || ctx.Err() != nil {
		return
	}
	s.onResult(query, products, err)
}

// Close drops any pending search. Later queries are ignored.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.seq++
	s.closed = true
}

func (s *Searcher) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
