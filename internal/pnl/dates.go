package pnl

import (
	"fmt"
	"time"
)

// DateLayout is the calendar day key format (UTC).
const DateLayout = "2006-01-02"

// DefaultMaxRangeDays caps the number of days a single request may cover.
const DefaultMaxRangeDays = 365

// ParseDate parses a YYYY-MM-DD day key as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidDateRange, s)
	}
	return t, nil
}

// DateOf returns the UTC calendar day key of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DateOfMillis returns the UTC calendar day key of a Unix millisecond timestamp.
func DateOfMillis(ms int64) string {
	return DateOf(time.UnixMilli(ms))
}

// CheckRange validates [start, end] and returns its inclusive day count
// without materializing the day keys. maxDays <= 0 disables the length cap.
func CheckRange(start, end string, maxDays int) (int, error) {
	_, _, days, err := parseRange(start, end)
	if err != nil {
		return 0, err
	}
	if maxDays > 0 && days > maxDays {
		return 0, fmt.Errorf("%w: %d days exceeds limit of %d", ErrInvalidDateRange, days, maxDays)
	}
	return days, nil
}

// DateRange builds the inclusive sequence of day keys from start to end.
// maxDays <= 0 disables the length cap.
func DateRange(start, end string, maxDays int) ([]string, error) {
	from, to, days, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	if maxDays > 0 && days > maxDays {
		return nil, fmt.Errorf("%w: %d days exceeds limit of %d", ErrInvalidDateRange, days, maxDays)
	}

	dates := make([]string, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

func parseRange(start, end string) (from, to time.Time, days int, err error) {
	if from, err = ParseDate(start); err != nil {
		return
	}
	if to, err = ParseDate(end); err != nil {
		return
	}
	if from.After(to) {
		err = fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange, start, end)
		return
	}
	// Unix seconds, since time.Duration saturates past ~292 years.
	days = int((to.Unix()-from.Unix())/86400) + 1
	return
}

// ValidateDates checks that dates is non-empty, well formed and strictly
// ascending in unit-day steps.
func ValidateDates(dates []string) error {
	if len(dates) == 0 {
		return fmt.Errorf("%w: empty date sequence", ErrInvalidDateRange)
	}

	prev, err := ParseDate(dates[0])
	if err != nil {
		return err
	}
	for i := 1; i < len(dates); i++ {
		cur, err := ParseDate(dates[i])
		if err != nil {
			return err
		}
		if !cur.Equal(prev.AddDate(0, 0, 1)) {
			return fmt.Errorf("%w: %s does not follow %s", ErrInvalidDateRange, dates[i], dates[i-1])
		}
		prev = cur
	}
	return nil
}
