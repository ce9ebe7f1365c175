package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is the first backoff step after a dropped connection.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the period of application-level {"method":"ping"} frames.
	PingInterval time.Duration
	// ReadTimeout is the longest silence tolerated before reconnecting.
	ReadTimeout time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscriptionResponse.
	SubscribeTimeout time.Duration
	// Logger receives connection diagnostics. Nil means no logging.
	Logger *zap.Logger
	// OnReconnect is called after every successful reconnect.
	OnReconnect func()
}

// DefaultWSConfig returns the settings used against the public endpoint.
// The venue drops idle connections after 60s, so pings go out every 30s.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

var errClientClosed = errors.New("hyperliquid ws: client closed")

// accountSub is one webData2 subscription.
type accountSub struct {
	updates chan AccountUpdate
}

// WSClient implements AccountStream over one gorilla/websocket connection.
// A single reader goroutine owns reconnection: on a read error it redials
// with exponential backoff and replays every subscription.
type WSClient struct {
	endpoint string
	cfg      WSClientConfig
	log      *zap.Logger
	dialer   websocket.Dialer

	writeMu sync.Mutex // guards conn and serializes writes
	conn    *websocket.Conn

	mu      sync.Mutex
	subs    map[string]*accountSub   // by lowercased user
	pending map[string]chan struct{} // requests awaiting subscriptionResponse

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ AccountStream = (*WSClient)(nil)

// NewWSClient dials endpoint and starts the reader and ping loops.
// A nil config uses DefaultWSConfig.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = DefaultWSConfig().SubscribeTimeout
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = DefaultWSURL
	}

	c := &WSClient{
		endpoint: endpoint,
		cfg:      cfg,
		log:      log.Named("hyperliquid.ws"),
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		subs:     make(map[string]*accountSub),
		pending:  make(map[string]chan struct{}),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid ws dial: %w", err)
	}
	return conn, nil
}

// SubscribeAccount subscribes to webData2 updates for user.
// Updates are delivered latest-wins: a slow reader loses stale states, never the newest.
func (c *WSClient) SubscribeAccount(ctx context.Context, user string) (<-chan AccountUpdate, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}
	user = strings.ToLower(user)
	sub := &accountSub{updates: make(chan AccountUpdate, 16)}

	// registered before the request so a reconnect mid-handshake replays it
	c.mu.Lock()
	if _, exists := c.subs[user]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("hyperliquid ws: already subscribed to %s", user)
	}
	c.subs[user] = sub
	c.mu.Unlock()

	if err := c.request(ctx, subscribe, user); err != nil {
		c.mu.Lock()
		if c.subs[user] == sub {
			delete(c.subs, user)
		}
		c.mu.Unlock()
		return nil, err
	}
	return sub.updates, nil
}

// Unsubscribe stops updates for user and closes its channel.
func (c *WSClient) Unsubscribe(ctx context.Context, user string) error {
	user = strings.ToLower(user)
	c.mu.Lock()
	sub, ok := c.subs[user]
	delete(c.subs, user)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	close(sub.updates)

	if c.closed.Load() {
		return nil
	}
	return c.request(ctx, unsubscribe, user)
}

type method string

const (
	subscribe   method = "subscribe"
	unsubscribe method = "unsubscribe"
)

// request sends a subscription frame and waits for the venue to echo it
// back as a subscriptionResponse.
func (c *WSClient) request(ctx context.Context, m method, user string) error {
	confirm := make(chan struct{}, 1)
	c.mu.Lock()
	c.pending[user] = confirm
	c.mu.Unlock()
	forget := func() {
		c.mu.Lock()
		if c.pending[user] == confirm {
			delete(c.pending, user)
		}
		c.mu.Unlock()
	}

	if err := c.write(subscriptionFrame(m, user)); err != nil {
		forget()
		return fmt.Errorf("hyperliquid ws %s: %w", m, err)
	}

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()
	select {
	case _, ok := <-confirm:
		if !ok {
			return errClientClosed
		}
		return nil
	case <-timer.C:
		forget()
		return fmt.Errorf("hyperliquid ws %s: no confirmation within %s", m, c.cfg.SubscribeTimeout)
	case <-c.done:
		return errClientClosed
	case <-ctx.Done():
		forget()
		return ctx.Err()
	}
}

func subscriptionFrame(m method, user string) wsRequest {
	return wsRequest{
		Method:       string(m),
		Subscription: &wsSubscription{Type: "webData2", User: user},
	}
}

// write sends one JSON frame on the current connection.
func (c *WSClient) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Close stops both loops and closes every subscription channel. It is
// safe to call more than once.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.writeMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}
	c.writeMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for user, sub := range c.subs {
		close(sub.updates)
		delete(c.subs, user)
	}
	for user, ch := range c.pending {
		close(ch)
		delete(c.pending, user)
	}
	return nil
}

func (c *WSClient) current() *websocket.Conn {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn
}

// readLoop dispatches frames until Close, reconnecting on read errors.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		conn := c.current()
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err == nil {
			c.dispatch(msg)
			continue
		}
		if c.closed.Load() {
			return
		}
		c.log.Warn("connection lost, reconnecting", zap.Error(err))
		if !c.reconnect() {
			return
		}
	}
}

// reconnect redials with exponential backoff until it succeeds or the
// client closes, then replays subscriptions. Replayed frames are not
// awaited since this goroutine is the one that reads confirmations.
func (c *WSClient) reconnect() bool {
	delay := c.cfg.ReconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.writeMu.Lock()
			if c.closed.Load() {
				c.writeMu.Unlock()
				_ = conn.Close()
				return false
			}
			if c.conn != nil {
				_ = c.conn.Close()
			}
			c.conn = conn
			c.writeMu.Unlock()
			break
		}

		c.log.Warn("reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
		delay = min(delay*2, c.cfg.MaxReconnectDelay)
	}

	if c.cfg.OnReconnect != nil {
		c.cfg.OnReconnect()
	}

	c.mu.Lock()
	users := make([]string, 0, len(c.subs))
	for user := range c.subs {
		users = append(users, user)
	}
	c.mu.Unlock()
	for _, user := range users {
		if err := c.write(subscriptionFrame(subscribe, user)); err != nil {
			c.log.Warn("resubscribe failed", zap.String("user", user), zap.Error(err))
		}
	}
	return true
}

func (c *WSClient) dispatch(msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.log.Debug("unparseable message", zap.Error(err))
		return
	}

	switch env.Channel {
	case "subscriptionResponse":
		c.confirm(env.Data)
	case "webData2":
		c.deliver(env.Data)
	case "error":
		c.log.Warn("venue error", zap.ByteString("data", env.Data))
	}
}

// confirm releases the request waiting on this subscriptionResponse.
func (c *WSClient) confirm(data json.RawMessage) {
	var resp wsRequest
	if err := json.Unmarshal(data, &resp); err != nil || resp.Subscription == nil {
		return
	}
	user := strings.ToLower(resp.Subscription.User)

	c.mu.Lock()
	ch, ok := c.pending[user]
	delete(c.pending, user)
	c.mu.Unlock()
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// deliver pushes a webData2 state to its subscriber, evicting the oldest
// buffered state when the channel is full.
func (c *WSClient) deliver(data json.RawMessage) {
	var payload wsWebData2
	if err := json.Unmarshal(data, &payload); err != nil {
		c.log.Debug("bad webData2 payload", zap.Error(err))
		return
	}
	update := AccountUpdate{
		User:       strings.ToLower(payload.User),
		State:      payload.ClearinghouseState,
		ReceivedAt: time.Now().UTC(),
	}

	// held across the send so Unsubscribe cannot close the channel mid-send
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[update.User]
	if !ok {
		return
	}
	for {
		select {
		case sub.updates <- update:
			return
		default:
		}
		select {
		case <-sub.updates:
		default:
		}
	}
}

func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(wsRequest{Method: "ping"}); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
			}
		}
	}
}

type wsRequest struct {
	Method       string          `json:"method"`
	Subscription *wsSubscription `json:"subscription,omitempty"`
}

type wsSubscription struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsWebData2 struct {
	User               string              `json:"user"`
	ClearinghouseState *ClearinghouseState `json:"clearinghouseState"`
}
