package testutil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/roach88/postcache/internal/record"
)

// StaticProvider returns the same records or error on every Fetch.
// Thread-safety: safe for concurrent use.
type StaticProvider struct {
	mu      sync.Mutex
	records []record.Record
	err     error
	calls   int
}

// NewStaticProvider returns a provider that yields records.
func NewStaticProvider(records ...record.Record) *StaticProvider {
	return &StaticProvider{records: records}
}

// NewFailingProvider returns a provider that fails with err.
func NewFailingProvider(err error) *StaticProvider {
	return &StaticProvider{err: err}
}

// Set replaces the canned response.
func (p *StaticProvider) Set(records []record.Record, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records, p.err = records, err
}

// Fetch implements remote.Provider.
func (p *StaticProvider) Fetch(ctx context.Context) ([]record.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return append([]record.Record(nil), p.records...), nil
}

// Calls returns how many times Fetch ran.
func (p *StaticProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Server is an httptest server answering every request with a fixed
// status and body.
type Server struct {
	*httptest.Server
	hits atomic.Int64
}

// NewServer starts a server that replies with status and body. It is
// closed when the test ends.
func NewServer(t *testing.T, status int, body string) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns the number of requests served.
func (s *Server) Hits() int {
	return int(s.hits.Load())
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
