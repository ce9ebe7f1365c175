package hyperliquid

import (
	"context"
	"time"
)

// DefaultWSURL is the public HyperLiquid WebSocket endpoint.
const DefaultWSURL = "wss://api.hyperliquid.xyz/ws"

// AccountStream defines the HyperLiquid WebSocket account subscription interface.
type AccountStream interface {
	// SubscribeAccount subscribes to webData2 updates for user.
	SubscribeAccount(ctx context.Context, user string) (<-chan AccountUpdate, error)

	// Unsubscribe stops updates for user and closes its channel.
	Unsubscribe(ctx context.Context, user string) error

	// Close closes the WebSocket connection.
	Close() error
}

// AccountUpdate is a webData2 push carrying the user's perp account state.
type AccountUpdate struct {
	User       string
	State      *ClearinghouseState
	ReceivedAt time.Time
}
