// Package api exposes wallet PnL and equity snapshots over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/snapshot"
)

// PnlService computes wallet PnL.
type PnlService interface {
	GetWalletPnl(ctx context.Context, wallet, start, end string) (*domain.WalletPnlResponse, error)
}

// SnapshotService captures and lists equity snapshots.
type SnapshotService interface {
	Capture(ctx context.Context, wallet, trigger string) (*domain.EquitySnapshot, error)
	CaptureAll(ctx context.Context, trigger string) (*snapshot.CaptureReport, error)
	Track(ctx context.Context, wallet string, name *string) (*snapshot.TrackResult, error)
	Untrack(ctx context.Context, wallet string) (string, error)
	Tracked(ctx context.Context) ([]*domain.TrackedWallet, error)
	Snapshots(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error)
}

// Options configures Server.
type Options struct {
	Addr      string
	PnL       PnlService
	Snapshots SnapshotService // nil disables the snapshot routes
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer // nil serves the default registry
	Logger    *zap.Logger
	Version   string
	Backend   string // storage backend name, reported by /status
	Now       func() time.Time
}

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	pnl        PnlService
	snapshots  SnapshotService
	metrics    *observability.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	version    string
	backend    string
	now        func() time.Time
	startedAt  time.Time

	requests atomic.Int64
	watching func() int
}

// NewServer creates a Server bound to opts.Addr.
func NewServer(opts Options) *Server {
	s := &Server{
		pnl:       opts.PnL,
		snapshots: opts.Snapshots,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    opts.Logger,
		version:   opts.Version,
		backend:   opts.Backend,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	s.startedAt = s.now()

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetLiveWatching registers a source for the number of live-watched wallets.
func (s *Server) SetLiveWatching(fn func() int) {
	s.watching = fn
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", observability.HandlerFor(s.gatherer))
	} else {
		mux.Handle("GET /metrics", observability.Handler())
	}

	mux.HandleFunc("GET /api/wallets/{wallet}/pnl", s.handleWalletPnl)
	mux.HandleFunc("GET /api/hyperliquid/{wallet}/pnl", s.handleWalletPnl)

	if s.snapshots != nil {
		mux.HandleFunc("GET /api/snapshots/tracked/list", s.handleTrackedList)
		mux.HandleFunc("POST /api/snapshots/capture-all", s.handleCaptureAll)
		mux.HandleFunc("POST /api/snapshots/capture/{wallet}", s.handleCapture)
		mux.HandleFunc("POST /api/snapshots/track/{wallet}", s.handleTrack)
		mux.HandleFunc("DELETE /api/snapshots/track/{wallet}", s.handleUntrack)
		mux.HandleFunc("GET /api/snapshots/{wallet}", s.handleSnapshots)
	}

	return s.instrument(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
