package domain

// MarketKind distinguishes perpetual and spot fills.
type MarketKind string

const (
	MarketPerp MarketKind = "perp"
	MarketSpot MarketKind = "spot"
)

// String returns the string representation of MarketKind.
func (m MarketKind) String() string {
	return string(m)
}

// IsValid checks if the market kind is a valid value.
func (m MarketKind) IsValid() bool {
	return m == MarketPerp || m == MarketSpot
}

// Side is the direction of a normalized trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}
