package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
)

const (
	DefaultBaseURL = "https://api.hyperliquid.xyz"

	defaultRequestTimeout = 30 * time.Second
	defaultAttempts       = 3
	defaultBackoffFloor   = time.Second
	defaultBackoffCeiling = 10 * time.Second

	// Venue page limits.
	FillsPageSize   = 2000
	FundingPageSize = 500
)

// Info request types.
const (
	InfoClearinghouseState     = "clearinghouseState"
	InfoSpotClearinghouseState = "spotClearinghouseState"
	InfoUserFillsByTime        = "userFillsByTime"
	InfoUserFunding            = "userFunding"
)

// ErrPaginationStalled is returned when a time-cursored listing cannot make
// progress. It matches ErrUpstream.
var ErrPaginationStalled = fmt.Errorf("%w: pagination stalled", ErrUpstream)

// APIError is a non-2xx response from the info endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperliquid status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match any APIError against ErrUpstream.
func (e *APIError) Unwrap() error {
	return ErrUpstream
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CallObserver receives the outcome of every info call (after retries).
type CallObserver func(infoType string, elapsed time.Duration, err error)

// HTTPClient implements InfoClient over the HyperLiquid REST info endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	retries  int           // extra attempts after the first
	floor    time.Duration // first backoff wait, doubled per retry
	ceiling  time.Duration
	observe  CallObserver
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout bounds each info request, including reading the body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retries = n }
}

// WithBackoff sets the first retry wait and the cap it doubles up to.
// A zero ceiling keeps the current cap.
func WithBackoff(floor, ceiling time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.floor = floor
		if ceiling > 0 {
			c.ceiling = ceiling
		}
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// WithObserver installs a per-call observer, used for metrics.
func WithObserver(fn CallObserver) ClientOption {
	return func(c *HTTPClient) {
		c.observe = fn
	}
}

// NewHTTPClient creates a client for baseURL (e.g. https://api.hyperliquid.xyz).
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/info",
		http:     &http.Client{Timeout: defaultRequestTimeout},
		retries:  defaultAttempts,
		floor:    defaultBackoffFloor,
		ceiling:  defaultBackoffCeiling,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ InfoClient = (*HTTPClient)(nil)

// infoRequest is the JSON body of an info call.
type infoRequest struct {
	Type            string `json:"type"`
	User            string `json:"user,omitempty"`
	StartTime       *int64 `json:"startTime,omitempty"`
	EndTime         *int64 `json:"endTime,omitempty"`
	AggregateByTime *bool  `json:"aggregateByTime,omitempty"`
}

// call posts an info request with retries and exponential backoff.
// Transport errors, 429 and 5xx are retried; other statuses are not.
func (c *HTTPClient) call(ctx context.Context, req infoRequest, result interface{}) (err error) {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(req.Type, time.Since(start), err) }()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	wait := c.floor
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			wait = min(wait*2, c.ceiling)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: http request: %v", ErrUpstream, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read response: %v", ErrUpstream, err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
			if !apiErr.retryable() {
				return fmt.Errorf("%s: %w", req.Type, apiErr)
			}
			lastErr = apiErr
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("%w: decode %s: %v", ErrUpstream, req.Type, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%s: max retries exceeded: %w", req.Type, lastErr)
}

// ClearinghouseState retrieves perp account state. Returns nil for a null body.
func (c *HTTPClient) ClearinghouseState(ctx context.Context, user string) (*ClearinghouseState, error) {
	var state *ClearinghouseState
	if err := c.call(ctx, infoRequest{Type: InfoClearinghouseState, User: user}, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// SpotClearinghouseState retrieves spot balances. Returns nil for a null body.
func (c *HTTPClient) SpotClearinghouseState(ctx context.Context, user string) (*SpotClearinghouseState, error) {
	var state *SpotClearinghouseState
	if err := c.call(ctx, infoRequest{Type: InfoSpotClearinghouseState, User: user}, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// UserFillsByTime retrieves fills in [startMs, endMs]. The venue caps a page
// at FillsPageSize; the next page resumes from the last seen timestamp and
// duplicates at the boundary are dropped by hash and trade ID. A full page
// with nothing new fails with ErrPaginationStalled rather than truncating.
func (c *HTTPClient) UserFillsByTime(ctx context.Context, user string, startMs, endMs int64) ([]domain.RawFill, error) {
	var all []domain.RawFill
	seen := make(map[string]struct{})
	aggregate := false
	cursor := startMs

	for {
		from, to := cursor, endMs
		var page []domain.RawFill
		req := infoRequest{
			Type:            InfoUserFillsByTime,
			User:            user,
			StartTime:       &from,
			EndTime:         &to,
			AggregateByTime: &aggregate,
		}
		if err := c.call(ctx, req, &page); err != nil {
			return nil, err
		}

		added := 0
		for _, f := range page {
			key := f.Hash + "|" + strconv.FormatInt(f.Tid, 10)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, f)
			added++
			if f.Time > cursor {
				cursor = f.Time
			}
		}

		if len(page) < FillsPageSize || cursor >= endMs {
			break
		}
		if added == 0 {
			return nil, stalled(InfoUserFillsByTime, cursor, FillsPageSize)
		}
	}
	return all, nil
}

// UserFunding retrieves funding payments in [startMs, endMs], paginated the
// same way as fills.
func (c *HTTPClient) UserFunding(ctx context.Context, user string, startMs, endMs int64) ([]domain.RawFunding, error) {
	var all []domain.RawFunding
	seen := make(map[string]struct{})
	cursor := startMs

	for {
		from, to := cursor, endMs
		var page []rawFundingEntry
		req := infoRequest{Type: InfoUserFunding, User: user, StartTime: &from, EndTime: &to}
		if err := c.call(ctx, req, &page); err != nil {
			return nil, err
		}

		added := 0
		for _, e := range page {
			key := strconv.FormatInt(e.Time, 10) + "|" + e.Delta.Coin + "|" + e.Hash
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, e.flatten())
			added++
			if e.Time > cursor {
				cursor = e.Time
			}
		}

		if len(page) < FundingPageSize || cursor >= endMs {
			break
		}
		if added == 0 {
			return nil, stalled(InfoUserFunding, cursor, FundingPageSize)
		}
	}
	return all, nil
}

// stalled reports a full page that brought nothing new: more than pageSize
// records share the cursor millisecond and the time-based cursor cannot get
// past them without dropping records.
func stalled(infoType string, cursor int64, pageSize int) error {
	return fmt.Errorf("%w: %s at %d, more than %d records share one timestamp",
		ErrPaginationStalled, infoType, cursor, pageSize)
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	return errors.Is(err, ErrUpstream)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
