package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	dates, err := DateRange("2024-12-30", "2025-01-02", DefaultMaxRangeDays)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-30", "2024-12-31", "2025-01-01", "2025-01-02"}, dates)

	single, err := DateRange("2025-03-01", "2025-03-01", DefaultMaxRangeDays)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-01"}, single)

	leap, err := DateRange("2024-02-28", "2024-03-01", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, leap)
}

func TestDateRange_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		maxDays    int
	}{
		{"inverted", "2025-01-03", "2025-01-01", 0},
		{"malformed start", "2025-1-3", "2025-01-05", 0},
		{"malformed end", "2025-01-01", "tomorrow", 0},
		{"impossible day", "2025-02-30", "2025-03-02", 0},
		{"over cap", "2024-01-01", "2025-01-01", 365},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DateRange(tt.start, tt.end, tt.maxDays)
			assert.ErrorIs(t, err, ErrInvalidDateRange)
		})
	}
}

func TestDateRange_CapBoundary(t *testing.T) {
	dates, err := DateRange("2025-01-01", "2025-12-31", 365)
	require.NoError(t, err)
	assert.Len(t, dates, 365)

	dates, err = DateRange("2024-01-01", "2025-01-01", 0)
	require.NoError(t, err)
	assert.Len(t, dates, 367)
}

func TestCheckRange(t *testing.T) {
	days, err := CheckRange("2025-01-01", "2025-01-31", 31)
	require.NoError(t, err)
	assert.Equal(t, 31, days)

	days, err = CheckRange("0001-01-01", "9999-12-31", 0)
	require.NoError(t, err)
	assert.Equal(t, 3652059, days)

	_, err = CheckRange("0001-01-01", "9999-12-31", 365)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = CheckRange("2025-01-02", "2025-01-01", 0)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = CheckRange("2025-01-01", "2025-1-2", 0)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestValidateDates(t *testing.T) {
	assert.NoError(t, ValidateDates([]string{"2025-01-31", "2025-02-01"}))

	for name, dates := range map[string][]string{
		"empty":      nil,
		"gap":        {"2025-01-01", "2025-01-03"},
		"duplicate":  {"2025-01-01", "2025-01-01"},
		"descending": {"2025-01-02", "2025-01-01"},
		"malformed":  {"2025-01-01", "01/02/2025"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateDates(dates), ErrInvalidDateRange)
		})
	}
}

func TestDateOfMillis_UTCBoundary(t *testing.T) {
	assert.Equal(t, "2025-01-01", DateOfMillis(ms("2025-01-02", 0)-1))
	assert.Equal(t, "2025-01-02", DateOfMillis(ms("2025-01-02", 0)))
}
