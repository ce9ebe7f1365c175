package pnl

import (
	"sort"

	"hyperliquid-pnl-lab/internal/domain"
)

// DayBucket holds the events of one UTC calendar day.
type DayBucket struct {
	Date    string
	Trades  []domain.NormalizedTrade   // ordered by timestamp
	Funding []domain.NormalizedFunding // ordered by timestamp
}

// Bucket partitions trades and funding into one bucket per date, in the
// order of dates. Days without activity get an empty bucket. Events outside
// the range are dropped.
func Bucket(dates []string, trades []domain.NormalizedTrade, funding []domain.NormalizedFunding) ([]DayBucket, error) {
	if err := ValidateDates(dates); err != nil {
		return nil, err
	}

	buckets := make([]DayBucket, len(dates))
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		buckets[i].Date = d
		index[d] = i
	}

	for _, t := range trades {
		if i, ok := index[DateOf(t.Timestamp)]; ok {
			buckets[i].Trades = append(buckets[i].Trades, t)
		}
	}
	for _, f := range funding {
		if i, ok := index[DateOf(f.Timestamp)]; ok {
			buckets[i].Funding = append(buckets[i].Funding, f)
		}
	}

	for i := range buckets {
		b := &buckets[i]
		sort.SliceStable(b.Trades, func(x, y int) bool {
			return b.Trades[x].Timestamp.Before(b.Trades[y].Timestamp)
		})
		sort.SliceStable(b.Funding, func(x, y int) bool {
			return b.Funding[x].Timestamp.Before(b.Funding[y].Timestamp)
		})
	}

	return buckets, nil
}
