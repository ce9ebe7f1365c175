package snapshot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/hyperliquid"
)

// DefaultLiveMinInterval is the default minimum spacing of live captures per wallet.
const DefaultLiveMinInterval = 5 * time.Minute

// DefaultLiveRefresh is how often the watcher re-reads the tracked wallet list.
const DefaultLiveRefresh = time.Minute

// StateRecorder stores an observed account state as a snapshot.
type StateRecorder interface {
	CaptureState(ctx context.Context, wallet string, state *hyperliquid.ClearinghouseState, trigger string) (*domain.EquitySnapshot, error)
	Tracked(ctx context.Context) ([]*domain.TrackedWallet, error)
}

// LiveWatcherOptions configures a LiveWatcher.
type LiveWatcherOptions struct {
	Stream      hyperliquid.AccountStream
	Recorder    StateRecorder
	MinInterval time.Duration
	Refresh     time.Duration
	Logger      *zap.Logger
}

// LiveWatcher keeps today's snapshot fresh from pushed account updates.
// Each tracked wallet is subscribed once; updates are stored at most once
// per MinInterval.
type LiveWatcher struct {
	stream      hyperliquid.AccountStream
	recorder    StateRecorder
	minInterval time.Duration
	refresh     time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	lastSave map[string]time.Time
	wg       sync.WaitGroup
}

// NewLiveWatcher creates a LiveWatcher.
func NewLiveWatcher(opts LiveWatcherOptions) *LiveWatcher {
	w := &LiveWatcher{
		stream:      opts.Stream,
		recorder:    opts.Recorder,
		minInterval: opts.MinInterval,
		refresh:     opts.Refresh,
		logger:      opts.Logger,
		cancels:     make(map[string]context.CancelFunc),
		lastSave:    make(map[string]time.Time),
	}
	if w.minInterval <= 0 {
		w.minInterval = DefaultLiveMinInterval
	}
	if w.refresh <= 0 {
		w.refresh = DefaultLiveRefresh
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Run subscribes tracked wallets and follows changes to the tracked list
// until ctx is cancelled.
func (w *LiveWatcher) Run(ctx context.Context) error {
	w.sync(ctx)

	ticker := time.NewTicker(w.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.stopAll()
			return ctx.Err()
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

// Watching returns the number of subscribed wallets.
func (w *LiveWatcher) Watching() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.cancels)
}

// sync subscribes newly tracked wallets and drops untracked ones.
func (w *LiveWatcher) sync(ctx context.Context) {
	tracked, err := w.recorder.Tracked(ctx)
	if err != nil {
		w.logger.Warn("live watcher: list tracked wallets failed", zap.Error(err))
		return
	}

	want := make(map[string]bool, len(tracked))
	for _, tw := range tracked {
		want[tw.Wallet] = true
	}

	w.mu.Lock()
	var drop []string
	for wallet := range w.cancels {
		if !want[wallet] {
			drop = append(drop, wallet)
		}
	}
	var add []string
	for wallet := range want {
		if _, ok := w.cancels[wallet]; !ok {
			add = append(add, wallet)
		}
	}
	w.mu.Unlock()

	for _, wallet := range drop {
		w.unwatch(ctx, wallet)
	}
	for _, wallet := range add {
		if err := w.watch(ctx, wallet); err != nil {
			w.logger.Warn("live watcher: subscribe failed", zap.String("wallet", wallet), zap.Error(err))
		}
	}
}

func (w *LiveWatcher) watch(ctx context.Context, wallet string) error {
	updates, err := w.stream.SubscribeAccount(ctx, wallet)
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancels[wallet] = cancel
	w.mu.Unlock()

	w.logger.Info("live watcher: subscribed", zap.String("wallet", wallet))
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-subCtx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					w.mu.Lock()
					delete(w.cancels, wallet)
					w.mu.Unlock()
					cancel()
					return
				}
				w.handle(subCtx, u)
			}
		}
	}()
	return nil
}

func (w *LiveWatcher) unwatch(ctx context.Context, wallet string) {
	w.mu.Lock()
	cancel, ok := w.cancels[wallet]
	delete(w.cancels, wallet)
	delete(w.lastSave, wallet)
	w.mu.Unlock()
	if !ok {
		return
	}
	cancel()
	if err := w.stream.Unsubscribe(ctx, wallet); err != nil {
		w.logger.Debug("live watcher: unsubscribe failed", zap.String("wallet", wallet), zap.Error(err))
	}
	w.logger.Info("live watcher: unsubscribed", zap.String("wallet", wallet))
}

func (w *LiveWatcher) stopAll() {
	w.mu.Lock()
	for wallet, cancel := range w.cancels {
		cancel()
		delete(w.cancels, wallet)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *LiveWatcher) handle(ctx context.Context, u hyperliquid.AccountUpdate) {
	if u.State == nil {
		return
	}

	w.mu.Lock()
	last, seen := w.lastSave[u.User]
	due := !seen || u.ReceivedAt.Sub(last) >= w.minInterval
	if due {
		w.lastSave[u.User] = u.ReceivedAt
	}
	w.mu.Unlock()
	if !due {
		return
	}

	if _, err := w.recorder.CaptureState(ctx, u.User, u.State, TriggerLive); err != nil {
		w.logger.Warn("live snapshot failed", zap.String("wallet", u.User), zap.Error(err))
	}
}
