// Package snapshot captures end-of-day account equity for tracked wallets.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/hyperliquid"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/pnl"
	"hyperliquid-pnl-lab/internal/storage"
	"hyperliquid-pnl-lab/internal/walletpnl"
)

// ErrNoAccountState is returned when the venue has no account state for a wallet.
var ErrNoAccountState = errors.New("no clearinghouse state for wallet")

// Capture triggers, used as the metrics label.
const (
	TriggerManual = "manual"
	TriggerDaily  = "daily"
	TriggerHourly = "hourly"
	TriggerLive   = "live"
	TriggerTrack  = "track"
)

// DefaultCaptureConcurrency bounds parallel captures in CaptureAll.
const DefaultCaptureConcurrency = 4

// Options configures Service.
type Options struct {
	Client      hyperliquid.InfoClient
	Snapshots   storage.EquitySnapshotStore
	Wallets     storage.TrackedWalletStore
	Concurrency int
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
}

// Service captures and serves equity snapshots.
type Service struct {
	client      hyperliquid.InfoClient
	snapshots   storage.EquitySnapshotStore
	wallets     storage.TrackedWalletStore
	concurrency int
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		client:      opts.Client,
		snapshots:   opts.Snapshots,
		wallets:     opts.Wallets,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultCaptureConcurrency
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// CaptureReport summarizes a CaptureAll run.
type CaptureReport struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Wallets []string `json:"wallets"` // wallets captured successfully
}

// Capture fetches the current account state of wallet and upserts today's snapshot.
func (s *Service) Capture(ctx context.Context, wallet, trigger string) (*domain.EquitySnapshot, error) {
	w, err := walletpnl.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}

	state, err := s.client.ClearinghouseState(ctx, w)
	if err != nil {
		s.record(trigger, err)
		return nil, fmt.Errorf("fetch clearinghouse state: %w", err)
	}
	if state == nil {
		s.record(trigger, ErrNoAccountState)
		return nil, fmt.Errorf("%w %s", ErrNoAccountState, w)
	}
	return s.CaptureState(ctx, w, state, trigger)
}

// CaptureState upserts today's snapshot for wallet from an already observed state.
func (s *Service) CaptureState(ctx context.Context, wallet string, state *hyperliquid.ClearinghouseState, trigger string) (snap *domain.EquitySnapshot, err error) {
	defer func() { s.record(trigger, err) }()

	snap, err = fromState(wallet, state, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	s.logger.Info("equity snapshot captured",
		zap.String("wallet", wallet),
		zap.String("date", snap.Date),
		zap.String("equity_usd", snap.EquityUSD.StringFixed(2)),
		zap.String("trigger", trigger),
	)
	return snap, nil
}

func fromState(wallet string, state *hyperliquid.ClearinghouseState, now time.Time) (*domain.EquitySnapshot, error) {
	equity, err := state.AccountValue()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pnl.ErrMalformedUpstreamData, err)
	}
	margin, err := state.TotalMarginUsed()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pnl.ErrMalformedUpstreamData, err)
	}
	upnl, err := state.UnrealizedPnl()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pnl.ErrMalformedUpstreamData, err)
	}
	return &domain.EquitySnapshot{
		Wallet:           wallet,
		Date:             pnl.DateOf(now),
		EquityUSD:        equity,
		UnrealizedPnlUSD: upnl,
		AccountValue:     equity,
		TotalMarginUsed:  margin,
		PositionsCount:   len(state.AssetPositions),
		SnapshotTime:     now,
	}, nil
}

func (s *Service) record(trigger string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSnapshotCapture(trigger, err)
	}
}

// CaptureAll captures a snapshot for every active tracked wallet.
// Individual failures are counted, not returned.
func (s *Service) CaptureAll(ctx context.Context, trigger string) (*CaptureReport, error) {
	tracked, err := s.wallets.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked wallets: %w", err)
	}

	var (
		mu     sync.Mutex
		report = &CaptureReport{Wallets: []string{}}
		ok     = make([]bool, len(tracked))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tw := range tracked {
		g.Go(func() error {
			if _, err := s.Capture(gctx, tw.Wallet, trigger); err != nil {
				s.logger.Warn("snapshot capture failed", zap.String("wallet", tw.Wallet), zap.String("trigger", trigger), zap.Error(err))
				return nil
			}
			mu.Lock()
			ok[i] = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, tw := range tracked {
		if ok[i] {
			report.Success++
			report.Wallets = append(report.Wallets, tw.Wallet)
		} else {
			report.Failed++
		}
	}
	if s.metrics != nil {
		s.metrics.TrackedWallets.Set(float64(len(tracked)))
		if report.Success > 0 {
			s.metrics.LastSuccessfulCapture.SetToCurrentTime()
		}
	}
	return report, ctx.Err()
}

// TrackResult is the outcome of Track.
type TrackResult struct {
	Wallet          *domain.TrackedWallet  `json:"tracked_wallet"`
	InitialSnapshot *domain.EquitySnapshot `json:"initial_snapshot"`
}

// Track enrolls wallet for periodic capture and takes an initial snapshot.
// A wallet without account state is still tracked; its snapshot is nil.
func (s *Service) Track(ctx context.Context, wallet string, name *string) (*TrackResult, error) {
	w, err := walletpnl.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			name = nil
		} else {
			name = &trimmed
		}
	}

	tw, err := s.wallets.Add(ctx, w, name)
	if err != nil {
		return nil, fmt.Errorf("track wallet: %w", err)
	}

	snap, err := s.Capture(ctx, w, TriggerTrack)
	if err != nil && !errors.Is(err, ErrNoAccountState) {
		return nil, err
	}
	return &TrackResult{Wallet: tw, InitialSnapshot: snap}, nil
}

// Untrack stops periodic capture for wallet. Stored snapshots are kept.
func (s *Service) Untrack(ctx context.Context, wallet string) (string, error) {
	w, err := walletpnl.NormalizeWallet(wallet)
	if err != nil {
		return "", err
	}
	if err := s.wallets.Deactivate(ctx, w); err != nil {
		return "", fmt.Errorf("untrack wallet: %w", err)
	}
	return w, nil
}

// Tracked lists active tracked wallets.
func (s *Service) Tracked(ctx context.Context) ([]*domain.TrackedWallet, error) {
	return s.wallets.ListActive(ctx)
}

// Snapshots returns stored snapshots for wallet over [start, end].
func (s *Service) Snapshots(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error) {
	w, err := walletpnl.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	if _, err := pnl.CheckRange(start, end, 0); err != nil {
		return nil, err
	}
	return s.snapshots.GetByRange(ctx, w, start, end)
}

// Latest returns the most recent stored snapshot for wallet.
func (s *Service) Latest(ctx context.Context, wallet string) (*domain.EquitySnapshot, error) {
	w, err := walletpnl.NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	return s.snapshots.GetLatest(ctx, w)
}

// Seed tracks the given wallets without capturing. Invalid entries are skipped
// and reported in the returned error.
func (s *Service) Seed(ctx context.Context, wallets map[string]string) error {
	var errs []error
	for wallet, label := range wallets {
		w, err := walletpnl.NormalizeWallet(wallet)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var name *string
		if label != "" {
			l := label
			name = &l
		}
		if _, err := s.wallets.Add(ctx, w, name); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", w, err))
		}
	}
	return errors.Join(errs...)
}
