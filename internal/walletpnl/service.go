// Package walletpnl serves daily PnL for a wallet: it fetches venue data,
// runs the PnL engine and caches the result.
package walletpnl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/hyperliquid"
	"hyperliquid-pnl-lab/internal/idhash"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/pnl"
	"hyperliquid-pnl-lab/internal/storage"
	"hyperliquid-pnl-lab/internal/tracing"
)

// DefaultComputeTimeout bounds a PnL computation once no caller can cancel it.
const DefaultComputeTimeout = 2 * time.Minute

// ErrHistoryDisabled is returned by History when no history store is configured.
var ErrHistoryDisabled = errors.New("pnl history store not configured")

// Options configures Service. Only Client is required.
type Options struct {
	Client       hyperliquid.InfoClient
	Snapshots    storage.EquitySnapshotStore // stored daily equity, optional
	Cache        storage.PnlCacheStore       // response cache, optional
	History      storage.DailyPnlStore       // daily row history, optional
	CacheTTL     time.Duration               // 0 disables caching
	MaxRangeDays int                         // 0 disables the cap
	Timeout      time.Duration               // bound on one shared computation, default DefaultComputeTimeout
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Now          func() time.Time
}

// Service computes wallet PnL responses.
type Service struct {
	client         hyperliquid.InfoClient
	snapshots      storage.EquitySnapshotStore
	cache          storage.PnlCacheStore
	history        storage.DailyPnlStore
	cacheTTL       time.Duration
	maxRangeDays   int
	computeTimeout time.Duration
	logger         *zap.Logger
	metrics        *observability.Metrics
	now            func() time.Time

	engine *pnl.Engine
	group  singleflight.Group
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		client:         opts.Client,
		snapshots:      opts.Snapshots,
		cache:          opts.Cache,
		history:        opts.History,
		cacheTTL:       opts.CacheTTL,
		maxRangeDays:   opts.MaxRangeDays,
		computeTimeout: opts.Timeout,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            opts.Now,
		engine:         pnl.NewEngine(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.computeTimeout <= 0 {
		s.computeTimeout = DefaultComputeTimeout
	}
	return s
}

// GetWalletPnl returns the daily PnL of wallet over [start, end].
// Concurrent calls for the same key share one computation; the returned
// response is shared and must be treated as read-only.
func (s *Service) GetWalletPnl(ctx context.Context, wallet, start, end string) (*domain.WalletPnlResponse, error) {
	w, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	dates, err := pnl.DateRange(start, end, s.maxRangeDays)
	if err != nil {
		return nil, err
	}

	key := idhash.PnlCacheKey(w, start, end)
	if resp, ok := s.cached(ctx, key); ok {
		return resp, nil
	}

	// The shared computation outlives any single caller; each caller only
	// stops waiting on its own cancellation.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		return s.compute(cctx, w, dates, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("pnl computation shared", zap.String("wallet", w))
		}
		return res.Val.(*domain.WalletPnlResponse), nil
	}
}

// History returns persisted daily rows for wallet over [start, end].
func (s *Service) History(ctx context.Context, wallet, start, end string) ([]*domain.DailyPnlRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	w, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	if _, err := pnl.CheckRange(start, end, 0); err != nil {
		return nil, err
	}
	return s.history.GetByWalletRange(ctx, w, start, end)
}

func (s *Service) cached(ctx context.Context, key string) (*domain.WalletPnlResponse, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}

	entry, err := s.cache.Get(ctx, key, s.now())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("pnl cache read failed", zap.Error(err))
		}
		s.recordCache(false)
		return nil, false
	}

	var resp domain.WalletPnlResponse
	if err := json.Unmarshal(entry.Payload, &resp); err != nil {
		s.logger.Warn("pnl cache entry undecodable", zap.String("key", key), zap.Error(err))
		s.recordCache(false)
		return nil, false
	}
	resp.Diagnostics.CacheHit = true
	s.recordCache(true)
	return &resp, true
}

func (s *Service) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

// fetched holds everything pulled from the venue and the snapshot store.
type fetched struct {
	fills   []domain.RawFill
	funding []domain.RawFunding
	state   *hyperliquid.ClearinghouseState
	spot    *hyperliquid.SpotClearinghouseState
	stored  []*domain.EquitySnapshot
}

func (s *Service) compute(ctx context.Context, wallet string, dates []string, key string) (resp *domain.WalletPnlResponse, err error) {
	start, end := dates[0], dates[len(dates)-1]
	ctx, span := tracing.StartSpan(ctx, "walletpnl.compute", trace.WithAttributes(
		attribute.String("wallet", wallet),
		attribute.String("start", start),
		attribute.String("end", end),
	))
	defer func() { tracing.End(span, err) }()

	began := s.now()
	data, err := s.fetch(ctx, wallet, start, end)
	if err != nil {
		return nil, err
	}
	fetchedAt := s.now()

	in := pnl.Input{
		Dates:   dates,
		Fills:   data.fills,
		Funding: data.funding,
	}
	if data.state != nil {
		anchor, marks, err := anchorFromState(data.state, pnl.DateOf(fetchedAt))
		if err != nil {
			return nil, err
		}
		in.Anchor, in.Marks = anchor, marks
	}
	if len(data.stored) > 0 {
		in.StoredEquity = make(map[string]decimal.Decimal, len(data.stored))
		for _, snap := range data.stored {
			in.StoredEquity[snap.Date] = snap.EquityUSD
		}
	}

	result, err := s.engine.Compute(in)
	if err != nil {
		return nil, err
	}

	runID := idhash.NewIDAt(fetchedAt)
	diag := result.Diagnostics
	diag.DataSource = domain.DataSourceHyperliquid
	diag.LastAPICall = &fetchedAt
	diag.RunID = runID
	if data.spot != nil {
		if n := len(data.spot.NonZero()); n > 0 {
			diag.Notes += fmt.Sprintf("; %d spot balances held, spot unrealized PnL is not marked", n)
		}
	}

	resp = &domain.WalletPnlResponse{
		Wallet:      wallet,
		Start:       start,
		End:         end,
		Daily:       result.Daily,
		Summary:     result.Summary,
		Diagnostics: diag,
	}

	s.persistHistory(ctx, resp, fetchedAt)
	s.store(ctx, key, resp, fetchedAt)

	elapsed := s.now().Sub(began)
	if s.metrics != nil {
		s.metrics.RecordEngineRun(diag.EquityMode.String(), elapsed.Seconds())
	}
	span.SetAttributes(attribute.String("equity_mode", diag.EquityMode.String()), attribute.String("run_id", runID))
	s.logger.Info("wallet pnl computed",
		zap.String("wallet", wallet),
		zap.String("start", start),
		zap.String("end", end),
		zap.String("mode", diag.EquityMode.String()),
		zap.String("run_id", runID),
		zap.Int("fills", len(data.fills)),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}

// fetch pulls fills, funding and account state concurrently. Spot state is
// best effort; stored snapshots are read when a store is configured.
func (s *Service) fetch(ctx context.Context, wallet, start, end string) (*fetched, error) {
	from, err := pnl.ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := pnl.ParseDate(end)
	if err != nil {
		return nil, err
	}
	startMs := from.UnixMilli()
	endMs := to.AddDate(0, 0, 1).UnixMilli() - 1

	var out fetched
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fills, err := s.client.UserFillsByTime(gctx, wallet, startMs, endMs)
		if err != nil {
			return fmt.Errorf("fetch fills: %w", err)
		}
		out.fills = fills
		return nil
	})
	g.Go(func() error {
		funding, err := s.client.UserFunding(gctx, wallet, startMs, endMs)
		if err != nil {
			return fmt.Errorf("fetch funding: %w", err)
		}
		out.funding = funding
		return nil
	})
	g.Go(func() error {
		state, err := s.client.ClearinghouseState(gctx, wallet)
		if err != nil {
			return fmt.Errorf("fetch clearinghouse state: %w", err)
		}
		out.state = state
		return nil
	})
	g.Go(func() error {
		spot, err := s.client.SpotClearinghouseState(gctx, wallet)
		if err != nil {
			if gctx.Err() == nil {
				s.logger.Warn("spot state unavailable", zap.String("wallet", wallet), zap.Error(err))
			}
			return nil
		}
		out.spot = spot
		return nil
	})
	if s.snapshots != nil {
		g.Go(func() error {
			stored, err := s.snapshots.GetByRange(gctx, wallet, start, end)
			if err != nil {
				return fmt.Errorf("load equity snapshots: %w", err)
			}
			out.stored = stored
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// anchorFromState builds the anchor and current marks observed on date.
func anchorFromState(state *hyperliquid.ClearinghouseState, date string) (*domain.AnchorPoint, *domain.PositionMarks, error) {
	equity, err := state.AccountValue()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pnl.ErrMalformedUpstreamData, err)
	}
	upnl, err := state.UnrealizedPnl()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pnl.ErrMalformedUpstreamData, err)
	}
	anchor := &domain.AnchorPoint{
		Date:          date,
		Equity:        equity,
		UnrealizedPnl: decimal.NewNullDecimal(upnl),
	}
	marks := &domain.PositionMarks{
		Date: date,
		Perp: upnl,
		Spot: decimal.Zero,
	}
	return anchor, marks, nil
}

func (s *Service) persistHistory(ctx context.Context, resp *domain.WalletPnlResponse, computedAt time.Time) {
	if s.history == nil {
		return
	}
	records := make([]*domain.DailyPnlRecord, len(resp.Daily))
	for i, row := range resp.Daily {
		records[i] = &domain.DailyPnlRecord{
			Wallet:        resp.Wallet,
			Date:          row.Date,
			RunID:         resp.Diagnostics.RunID,
			ComputedAt:    computedAt,
			RealizedPnl:   row.RealizedPnl,
			UnrealizedPnl: row.UnrealizedPnl,
			Fees:          row.Fees,
			Funding:       row.Funding,
			NetPnl:        row.NetPnl,
			Equity:        row.Equity,
			EquityMode:    resp.Diagnostics.EquityMode,
			PerpNet:       row.Perp.Net,
			SpotNet:       row.Spot.Net,
		}
	}
	if err := s.history.InsertBulk(ctx, records); err != nil {
		if s.metrics != nil {
			s.metrics.HistoryWriteFails.Inc()
		}
		s.logger.Warn("pnl history write failed", zap.String("wallet", resp.Wallet), zap.Error(err))
	}
}

func (s *Service) store(ctx context.Context, key string, resp *domain.WalletPnlResponse, now time.Time) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("pnl response not cacheable", zap.Error(err))
		return
	}
	entry := &domain.PnlCacheEntry{
		Key:       key,
		Wallet:    resp.Wallet,
		Start:     resp.Start,
		End:       resp.End,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cacheTTL),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		s.logger.Warn("pnl cache write failed", zap.String("wallet", resp.Wallet), zap.Error(err))
	}
}

// PurgeExpiredCache removes expired cache entries.
func (s *Service) PurgeExpiredCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.DeleteExpired(ctx, s.now())
}
