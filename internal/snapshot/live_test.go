package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/hyperliquid"
)

type fakeStream struct {
	mu           sync.Mutex
	subs         map[string]chan hyperliquid.AccountUpdate
	unsubscribed []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{subs: make(map[string]chan hyperliquid.AccountUpdate)}
}

func (s *fakeStream) SubscribeAccount(ctx context.Context, user string) (<-chan hyperliquid.AccountUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan hyperliquid.AccountUpdate, 8)
	s.subs[user] = ch
	return ch, nil
}

func (s *fakeStream) Unsubscribe(ctx context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = append(s.unsubscribed, user)
	delete(s.subs, user)
	return nil
}

func (s *fakeStream) Close() error { return nil }

func (s *fakeStream) push(user string, u hyperliquid.AccountUpdate) bool {
	s.mu.Lock()
	ch, ok := s.subs[user]
	s.mu.Unlock()
	if ok {
		ch <- u
	}
	return ok
}

func state(accountValue string) *hyperliquid.ClearinghouseState {
	return &hyperliquid.ClearinghouseState{MarginSummary: hyperliquid.MarginSummary{AccountValue: accountValue}}
}

func TestLiveWatcher_ThrottlesAndFollowsTrackedList(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.wallets.Add(ctx, walletA, nil)
	require.NoError(t, err)

	stream := newFakeStream()
	w := NewLiveWatcher(LiveWatcherOptions{
		Stream:      stream,
		Recorder:    f.svc,
		MinInterval: time.Minute,
		Refresh:     10 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Watching() == 1 }, time.Second, 5*time.Millisecond)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.True(t, stream.push(walletA, hyperliquid.AccountUpdate{User: walletA, State: state("100"), ReceivedAt: t0}))
	require.Eventually(t, func() bool {
		s, err := f.snapshots.Get(ctx, walletA, "2025-03-10")
		return err == nil && s.EquityUSD.String() == "100"
	}, time.Second, 5*time.Millisecond)

	// Within the interval: ignored.
	stream.push(walletA, hyperliquid.AccountUpdate{User: walletA, State: state("150"), ReceivedAt: t0.Add(30 * time.Second)})
	// After the interval: stored.
	stream.push(walletA, hyperliquid.AccountUpdate{User: walletA, State: state("200"), ReceivedAt: t0.Add(2 * time.Minute)})
	require.Eventually(t, func() bool {
		s, err := f.snapshots.Get(ctx, walletA, "2025-03-10")
		return err == nil && s.EquityUSD.String() == "200"
	}, time.Second, 5*time.Millisecond)

	// Newly tracked wallets are picked up, untracked ones dropped.
	_, err = f.wallets.Add(ctx, walletB, nil)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Deactivate(ctx, walletA))
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		_, hasB := stream.subs[walletB]
		return hasB && len(stream.unsubscribed) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, w.Watching())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 0, w.Watching())
}
