package api

import (
	"context"
	"errors"
	"net/http"

	"hyperliquid-pnl-lab/internal/hyperliquid"
	"hyperliquid-pnl-lab/internal/pnl"
	"hyperliquid-pnl-lab/internal/snapshot"
	"hyperliquid-pnl-lab/internal/storage"
	"hyperliquid-pnl-lab/internal/walletpnl"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pnl.ErrInvalidDateRange),
		errors.Is(err, walletpnl.ErrInvalidWallet),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, snapshot.ErrNoAccountState),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, pnl.ErrMalformedUpstreamData),
		errors.Is(err, hyperliquid.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}
