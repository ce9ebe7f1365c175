package pnl

import "errors"

var (
	// ErrInvalidDateRange is returned for malformed, inverted, gapped or oversized date ranges.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrMalformedUpstreamData is returned when a fill or funding record fails parsing.
	// The whole computation fails; records are never skipped.
	ErrMalformedUpstreamData = errors.New("malformed upstream data")
)
