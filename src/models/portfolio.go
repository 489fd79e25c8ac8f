package models

// PositionValue represents an open investment marked to the latest
// observed instant-buy price.
type PositionValue struct {
	InvestmentID int64  `json:"investment_id"`
	ItemID       int    `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int64  `json:"quantity"`
	CostBasis    int64  `json:"cost_basis"`
	CurrentValue int64  `json:"current_value"`
	UnrealizedPL int64  `json:"unrealized_pl"`
	PriceKnown   bool   `json:"price_known"`
}

// ClosedPositionValue represents a completed sale with its locked-in result.
type ClosedPositionValue struct {
	InvestmentID int64  `json:"investment_id"`
	ItemID       int    `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int64  `json:"quantity"`
	RealizedPL   int64  `json:"realized_pl"`
	TaxPaid      int64  `json:"tax_paid"`
}

// PortfolioSummary aggregates a user's full set of investment records.
type PortfolioSummary struct {
	OpenPositions   []PositionValue       `json:"open_positions"`
	ClosedPositions []ClosedPositionValue `json:"closed_positions"`

	TotalPortfolioValue int64 `json:"total_portfolio_value"`
	TotalUnrealizedPL   int64 `json:"total_unrealized_pl"`
	TotalRealizedPL     int64 `json:"total_realized_pl"`
	TotalTaxPaid        int64 `json:"total_tax_paid"`
}

// HistoryPoint is one calendar day of the reconstructed portfolio value curve.
type HistoryPoint struct {
	Date       string `json:"date"` // YYYY-MM-DD
	TotalValue int64  `json:"total_value"`
}

// Lookback is the user-selected window for portfolio history reconstruction.
type Lookback string

const (
	LookbackMonth   Lookback = "1m"
	LookbackQuarter Lookback = "3m"
	LookbackYear    Lookback = "1y"
	LookbackAllTime Lookback = "all"
)

// ParseLookback validates a window parameter. An empty value defaults to
// the one-month window.
func ParseLookback(s string) (Lookback, bool) {
	switch s {
	case "", string(LookbackMonth):
		return LookbackMonth, true
	case string(LookbackQuarter):
		return LookbackQuarter, true
	case string(LookbackYear):
		return LookbackYear, true
	case string(LookbackAllTime):
		return LookbackAllTime, true
	}
	return "", false
}
